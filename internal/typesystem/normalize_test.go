package typesystem

import "testing"

func TestUnionNormalization(t *testing.T) {
	in := NewInterner()

	litA := in.LiteralString("a")
	litB := in.LiteralString("b")

	testCases := []struct {
		name string
		got  TypeID
		want TypeID
	}{
		{"empty_is_never", in.Union(), NeverType},
		{"single_member", in.Union(StringType), StringType},
		{"dedup", in.Union(StringType, StringType), StringType},
		{"never_dropped", in.Union(StringType, NeverType), StringType},
		{"any_absorbs", in.Union(StringType, AnyType), AnyType},
		{"unknown_absorbs", in.Union(StringType, UnknownType), UnknownType},
		{"error_wins_over_any", in.Union(AnyType, ErrorType), ErrorType},
		{"boolean_from_halves", in.Union(TrueType, FalseType), BooleanType},
		{"literal_absorbed_by_base", in.Union(litA, StringType), StringType},
		{"number_literal_absorbed", in.Union(in.LiteralNumber(1), NumberType), NumberType},
		{
			"order_insensitive",
			in.Union(StringType, NumberType),
			in.Union(NumberType, StringType),
		},
		{
			"flattens_nested",
			in.Union(in.Union(litA, litB), NumberType),
			in.Union(litA, litB, NumberType),
		},
		{
			"template_absorbed_by_string",
			in.Union(in.Template([]TemplateSpan{{Text: in.InternString("v")}, {Type: NumberType}}), StringType),
			StringType,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %s (%d), want %s (%d)", in.Sprint(tc.got), tc.got, in.Sprint(tc.want), tc.want)
			}
		})
	}

	t.Run("distinct_literals_survive", func(t *testing.T) {
		u := in.Union(litA, litB)
		members, ok := in.UnionMembers(u)
		if !ok || len(members) != 2 {
			t.Fatalf("expected 2-member union, got %s", in.Sprint(u))
		}
	})
}

func TestIntersectionNormalization(t *testing.T) {
	in := NewInterner()

	litA := in.LiteralString("a")
	litB := in.LiteralString("b")

	testCases := []struct {
		name string
		got  TypeID
		want TypeID
	}{
		{"empty_is_unknown", in.Intersection(), UnknownType},
		{"single_member", in.Intersection(NumberType), NumberType},
		{"unknown_dropped", in.Intersection(StringType, UnknownType), StringType},
		{"never_wins", in.Intersection(StringType, NeverType), NeverType},
		{"error_wins_over_never", in.Intersection(NeverType, ErrorType), ErrorType},
		{"any_absorbs", in.Intersection(StringType, AnyType), AnyType},
		{"disjoint_primitives", in.Intersection(StringType, NumberType), NeverType},
		{"conflicting_literals", in.Intersection(litA, litB), NeverType},
		{"literal_meets_base", in.Intersection(litA, StringType), litA},
		{"dedup", in.Intersection(StringType, StringType), StringType},
		{
			"order_insensitive",
			in.Intersection(in.Object(nil), StringType),
			in.Intersection(StringType, in.Object(nil)),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %s (%d), want %s (%d)", in.Sprint(tc.got), tc.got, in.Sprint(tc.want), tc.want)
			}
		})
	}
}

func TestIntersectionObjectMerge(t *testing.T) {
	in := NewInterner()

	a := in.InternString("a")
	b := in.InternString("b")

	t.Run("merges_properties", func(t *testing.T) {
		left := in.Object([]Property{{Name: a, Type: StringType}})
		right := in.Object([]Property{{Name: b, Type: NumberType}})
		merged := in.Intersection(left, right)

		shape, ok := in.ObjectShapeOf(merged)
		if !ok {
			t.Fatalf("expected merged object, got %s", in.Sprint(merged))
		}
		if len(shape.Properties) != 2 {
			t.Fatalf("expected 2 properties, got %d", len(shape.Properties))
		}
	})

	t.Run("shared_property_intersects", func(t *testing.T) {
		lit := in.LiteralString("x")
		left := in.Object([]Property{{Name: a, Type: lit}})
		right := in.Object([]Property{{Name: a, Type: StringType}})
		merged := in.Intersection(left, right)

		shape, ok := in.ObjectShapeOf(merged)
		if !ok {
			t.Fatalf("expected merged object, got %s", in.Sprint(merged))
		}
		p, ok := shape.PropertyByName(a)
		if !ok || p.Type != lit {
			t.Errorf("shared property type = %s, want %s", in.Sprint(p.Type), in.Sprint(lit))
		}
	})

	t.Run("optional_becomes_required", func(t *testing.T) {
		left := in.Object([]Property{{Name: a, Type: StringType, Optional: true}})
		right := in.Object([]Property{{Name: a, Type: StringType}})
		merged := in.Intersection(left, right)

		shape, ok := in.ObjectShapeOf(merged)
		if !ok {
			t.Fatalf("expected merged object, got %s", in.Sprint(merged))
		}
		p, _ := shape.PropertyByName(a)
		if p.Optional {
			t.Error("required side should win over optional")
		}
	})

	t.Run("conflicting_literal_property_is_never", func(t *testing.T) {
		left := in.Object([]Property{{Name: a, Type: in.LiteralString("x")}})
		right := in.Object([]Property{{Name: a, Type: in.LiteralString("y")}})
		if got := in.Intersection(left, right); got != NeverType {
			t.Errorf("got %s, want never", in.Sprint(got))
		}
	})
}
