package typesystem

import "testing"

// monoResolver serves bodies without declared type parameters.
type monoResolver map[DefID]TypeID

func (r monoResolver) Resolve(d DefID) (TypeID, bool) {
	t, ok := r[d]
	return t, ok
}

func newTestEvaluator() (*Interner, *DefStore, *Evaluator) {
	in := NewInterner()
	defs := NewDefStore(in)
	return in, defs, NewEvaluator(in, defs)
}

func TestEvaluatePassthrough(t *testing.T) {
	in, _, e := newTestEvaluator()

	obj := in.Object([]Property{{Name: in.InternString("a"), Type: StringType}})
	for _, id := range []TypeID{StringType, NeverType, obj, in.Array(NumberType), in.Union(StringType, NumberType)} {
		if got := e.Evaluate(id); got != id {
			t.Errorf("Evaluate(%s) = %s, want unchanged", in.Sprint(id), in.Sprint(got))
		}
	}
}

func TestEvaluateLazy(t *testing.T) {
	in, defs, e := newTestEvaluator()

	body := in.Object([]Property{{Name: in.InternString("x"), Type: NumberType}})
	def := defs.AddTypeAlias("Point", nil, body)

	if got := e.Evaluate(in.Lazy(def)); got != body {
		t.Errorf("Evaluate(lazy) = %s, want the registered body", in.Sprint(got))
	}

	// Aliases chase through aliases.
	alias := defs.AddTypeAlias("Alias", nil, in.Lazy(def))
	if got := e.Evaluate(in.Lazy(alias)); got != body {
		t.Errorf("Evaluate(alias chain) = %s, want the underlying body", in.Sprint(got))
	}
}

func TestEvaluateHeritageMerges(t *testing.T) {
	in, defs, e := newTestEvaluator()

	name := in.InternString("name")
	age := in.InternString("age")
	base := defs.AddInterface("Named", nil, in.Object([]Property{{Name: name, Type: StringType}}))
	derived := defs.AddInterface("Person", nil, in.Object([]Property{{Name: age, Type: NumberType}}))
	defs.SetExtends(derived, base)

	want := in.Object([]Property{
		{Name: name, Type: StringType},
		{Name: age, Type: NumberType},
	})
	if got := e.Evaluate(in.Lazy(derived)); got != want {
		t.Errorf("Evaluate(derived) = %s, want the merged shape", in.Sprint(got))
	}

	// Heritage cycles terminate like any other cycle.
	a := defs.AddInterface("A", nil, in.Object(nil))
	b := defs.AddInterface("B", nil, in.Object(nil))
	defs.SetExtends(a, b)
	defs.SetExtends(b, a)
	got := e.Evaluate(in.Lazy(a))
	if got == ErrorType {
		t.Errorf("cyclic heritage = %s, want a non-error result", in.Sprint(got))
	}
}

func TestEvaluateResolutionFailureIsError(t *testing.T) {
	in, _, e := newTestEvaluator()

	got := e.Evaluate(in.Lazy(DefID(99)))
	if got != ErrorType {
		t.Errorf("unresolved lazy reference = %s, want error", in.Sprint(got))
	}
	if got == AnyType {
		t.Error("resolution failure must never produce any")
	}
}

func TestEvaluateTypeQuery(t *testing.T) {
	in, defs, e := newTestEvaluator()

	def := defs.AddTypeAlias("width", nil, NumberType)
	if got := e.Evaluate(in.TypeQuery(def)); got != NumberType {
		t.Errorf("resolved type query = %s, want number", in.Sprint(got))
	}

	// A query against an unknown value stays deferred rather than failing.
	missing := in.TypeQuery(DefID(42))
	if got := e.Evaluate(missing); got != missing {
		t.Errorf("unresolved type query = %s, want unchanged", in.Sprint(got))
	}
}

func TestEvaluateGenericApplication(t *testing.T) {
	in, defs, e := newTestEvaluator()

	tName := in.InternString("T")
	box := defs.AddTypeAlias("Box", []TypeParamInfo{{Name: tName}},
		in.Object([]Property{{Name: in.InternString("value"), Type: in.TypeParameter(TypeParamInfo{Name: tName})}}))

	got := e.Evaluate(in.Application(in.Lazy(box), []TypeID{StringType}))
	want := in.Object([]Property{{Name: in.InternString("value"), Type: StringType}})
	if got != want {
		t.Errorf("Box<string> = %s, want %s", in.Sprint(got), in.Sprint(want))
	}
}

func TestEvaluateGenericDefaults(t *testing.T) {
	in, defs, e := newTestEvaluator()

	tName := in.InternString("T")
	uName := in.InternString("U")

	def := defs.AddTypeAlias("Pair", []TypeParamInfo{
		{Name: tName, Default: NumberType},
		{Name: uName},
	}, in.Tuple([]TupleElement{
		{Type: in.TypeParameter(TypeParamInfo{Name: tName})},
		{Type: in.TypeParameter(TypeParamInfo{Name: uName})},
	}))

	got := e.Evaluate(in.Application(in.Lazy(def), nil))
	want := in.Tuple([]TupleElement{{Type: NumberType}, {Type: UnknownType}})
	if got != want {
		t.Errorf("defaulted application = %s, want %s", in.Sprint(got), in.Sprint(want))
	}
}

func TestEvaluateApplicationWithoutParamInfo(t *testing.T) {
	in := NewInterner()

	tName := in.InternString("T")
	body := in.Object([]Property{{Name: in.InternString("value"), Type: in.TypeParameter(TypeParamInfo{Name: tName})}})
	resolver := monoResolver{DefID(1): body}
	e := NewEvaluator(in, resolver)

	// The resolver cannot say what T is, so the body's free parameter
	// makes the application unresolvable.
	got := e.Evaluate(in.Application(in.Lazy(DefID(1)), []TypeID{StringType}))
	if got != ErrorType {
		t.Errorf("application without parameter info = %s, want error", in.Sprint(got))
	}
}

func TestEvaluateConditional(t *testing.T) {
	in, _, e := newTestEvaluator()

	yes := in.LiteralString("yes")
	no := in.LiteralString("no")

	cond := func(check TypeID, distributive bool) TypeID {
		return in.Conditional(Conditional{
			Check:        check,
			Extends:      StringType,
			True:         yes,
			False:        no,
			Distributive: distributive,
		})
	}

	testCases := []struct {
		name string
		c    TypeID
		want TypeID
	}{
		{"literal_matches", cond(in.LiteralString("a"), false), yes},
		{"number_does_not", cond(NumberType, false), no},
		{"union_fails_plain", cond(in.Union(StringType, NumberType), false), no},
		{"union_distributes", cond(in.Union(StringType, NumberType), true), in.Union(yes, no)},
		{"never_distributes_to_never", cond(NeverType, true), NeverType},
		{"any_takes_both_branches", cond(AnyType, true), in.Union(yes, no)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Evaluate(tc.c); got != tc.want {
				t.Errorf("got %s, want %s", in.Sprint(got), in.Sprint(tc.want))
			}
		})
	}

	t.Run("free_check_stays_deferred", func(t *testing.T) {
		free := cond(in.TypeParameter(TypeParamInfo{Name: in.InternString("T")}), true)
		if got := e.Evaluate(free); got != free {
			t.Errorf("conditional over a free parameter = %s, want unchanged", in.Sprint(got))
		}
	})
}

func TestEvaluateConditionalInfer(t *testing.T) {
	in, _, e := newTestEvaluator()

	eName := in.InternString("E")
	uName := in.InternString("U")

	t.Run("array_element", func(t *testing.T) {
		c := in.Conditional(Conditional{
			Check:   in.Array(NumberType),
			Extends: in.Array(in.Infer(TypeParamInfo{Name: eName})),
			True:    in.TypeParameter(TypeParamInfo{Name: eName}),
			False:   NeverType,
		})
		if got := e.Evaluate(c); got != NumberType {
			t.Errorf("inferred element = %s, want number", in.Sprint(got))
		}
	})

	t.Run("tuple_positions", func(t *testing.T) {
		aName := in.InternString("A")
		bName := in.InternString("B")
		c := in.Conditional(Conditional{
			Check: in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}}),
			Extends: in.Tuple([]TupleElement{
				{Type: in.Infer(TypeParamInfo{Name: aName})},
				{Type: in.Infer(TypeParamInfo{Name: bName})},
			}),
			True: in.Tuple([]TupleElement{
				{Type: in.TypeParameter(TypeParamInfo{Name: bName})},
				{Type: in.TypeParameter(TypeParamInfo{Name: aName})},
			}),
			False: NeverType,
		})
		want := in.Tuple([]TupleElement{{Type: NumberType}, {Type: StringType}})
		if got := e.Evaluate(c); got != want {
			t.Errorf("swapped tuple = %s, want %s", in.Sprint(got), in.Sprint(want))
		}
	})

	t.Run("repeated_name_unions", func(t *testing.T) {
		c := in.Conditional(Conditional{
			Check: in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}}),
			Extends: in.Tuple([]TupleElement{
				{Type: in.Infer(TypeParamInfo{Name: uName})},
				{Type: in.Infer(TypeParamInfo{Name: uName})},
			}),
			True:  in.TypeParameter(TypeParamInfo{Name: uName}),
			False: NeverType,
		})
		want := in.Union(StringType, NumberType)
		if got := e.Evaluate(c); got != want {
			t.Errorf("merged binding = %s, want %s", in.Sprint(got), in.Sprint(want))
		}
	})

	t.Run("unbound_infer_is_unknown", func(t *testing.T) {
		c := in.Conditional(Conditional{
			Check:   in.Tuple(nil),
			Extends: in.Array(in.Infer(TypeParamInfo{Name: eName})),
			True:    in.TypeParameter(TypeParamInfo{Name: eName}),
			False:   NeverType,
		})
		if got := e.Evaluate(c); got != UnknownType {
			t.Errorf("unbound infer = %s, want unknown", in.Sprint(got))
		}
	})

	t.Run("constraint_violation_takes_false", func(t *testing.T) {
		c := in.Conditional(Conditional{
			Check:   in.Array(NumberType),
			Extends: in.Array(in.Infer(TypeParamInfo{Name: eName, Constraint: StringType})),
			True:    in.TypeParameter(TypeParamInfo{Name: eName}),
			False:   in.LiteralString("fallback"),
		})
		if got := e.Evaluate(c); got != in.LiteralString("fallback") {
			t.Errorf("constrained infer = %s, want the false branch", in.Sprint(got))
		}
	})
}

func TestEvaluateMapped(t *testing.T) {
	in, _, e := newTestEvaluator()

	kName := in.InternString("K")
	kParam := TypeParamInfo{Name: kName}
	kRef := in.TypeParameter(kParam)

	a := in.InternString("a")
	b := in.InternString("b")

	source := in.Object([]Property{
		{Name: a, Type: StringType},
		{Name: b, Type: NumberType, Optional: true, Readonly: true},
	})

	t.Run("partial_adds_optionality", func(t *testing.T) {
		partial := in.Mapped(MappedShape{
			Param:      kParam,
			Constraint: in.KeyOf(source),
			Template:   in.IndexAccess(source, kRef),
			Optional:   ModifierAdd,
		})
		got := e.Evaluate(partial)
		shape, ok := in.ObjectShapeOf(got)
		if !ok {
			t.Fatalf("expected object, got %s", in.Sprint(got))
		}
		pa, _ := shape.PropertyByName(a)
		if !pa.Optional || pa.Type != StringType {
			t.Errorf("a = %s optional=%v, want optional string", in.Sprint(pa.Type), pa.Optional)
		}
		pb, _ := shape.PropertyByName(b)
		if !pb.Optional || !pb.Readonly {
			t.Error("homomorphic map should keep b's readonly and stay optional")
		}
	})

	t.Run("readonly_removal", func(t *testing.T) {
		unlock := in.Mapped(MappedShape{
			Param:      kParam,
			Constraint: in.KeyOf(source),
			Template:   in.IndexAccess(source, kRef),
			Readonly:   ModifierRemove,
		})
		got := e.Evaluate(unlock)
		shape, ok := in.ObjectShapeOf(got)
		if !ok {
			t.Fatalf("expected object, got %s", in.Sprint(got))
		}
		pb, _ := shape.PropertyByName(b)
		if pb.Readonly {
			t.Error("readonly modifier removal left b readonly")
		}
	})

	t.Run("key_remap_with_template", func(t *testing.T) {
		remap := in.Mapped(MappedShape{
			Param:      kParam,
			Constraint: in.KeyOf(source),
			NameType:   in.Template([]TemplateSpan{{Text: in.InternString("get_"), Type: kRef}}),
			Template:   BooleanType,
		})
		got := e.Evaluate(remap)
		shape, ok := in.ObjectShapeOf(got)
		if !ok {
			t.Fatalf("expected object, got %s", in.Sprint(got))
		}
		if _, ok := shape.PropertyByName(in.InternString("get_a")); !ok {
			t.Errorf("remapped keys missing, got %s", in.Sprint(got))
		}
		if _, ok := shape.PropertyByName(a); ok {
			t.Error("original key should be gone after remap")
		}
	})

	t.Run("never_remap_drops_all", func(t *testing.T) {
		drop := in.Mapped(MappedShape{
			Param:      kParam,
			Constraint: in.KeyOf(source),
			NameType:   NeverType,
			Template:   BooleanType,
		})
		if got := e.Evaluate(drop); got != in.Object(nil) {
			t.Errorf("never remap = %s, want empty object", in.Sprint(got))
		}
	})

	t.Run("string_key_becomes_index", func(t *testing.T) {
		indexed := in.Mapped(MappedShape{
			Param:      kParam,
			Constraint: StringType,
			Template:   BooleanType,
		})
		got := e.Evaluate(indexed)
		shape, ok := in.ObjectShapeOf(got)
		if !ok || shape.StringIndex == nil {
			t.Fatalf("expected string index signature, got %s", in.Sprint(got))
		}
		if shape.StringIndex.Value != BooleanType || len(shape.Properties) != 0 {
			t.Errorf("index shape wrong: %s", in.Sprint(got))
		}
	})
}

func TestEvaluateKeyOf(t *testing.T) {
	in, _, e := newTestEvaluator()

	a := in.InternString("a")
	b := in.InternString("b")
	c := in.InternString("c")

	obj := in.Object([]Property{{Name: a, Type: StringType}, {Name: b, Type: NumberType}})

	testCases := []struct {
		name    string
		operand TypeID
		want    TypeID
	}{
		{"object", obj, in.Union(in.LiteralString("a"), in.LiteralString("b"))},
		{"any", AnyType, in.Union(StringType, NumberType, SymbolType)},
		{"never", NeverType, in.Union(StringType, NumberType, SymbolType)},
		{"unknown", UnknownType, NeverType},
		{"empty_object", in.Object(nil), NeverType},
		{"array", in.Array(StringType), in.Union(NumberType, in.LiteralString("length"))},
		{
			"union_intersects_keys",
			in.Union(
				obj,
				in.Object([]Property{{Name: b, Type: StringType}, {Name: c, Type: BooleanType}}),
			),
			in.LiteralString("b"),
		},
		{
			"intersection_unions_keys",
			in.Intersection(StringType, in.Object([]Property{{Name: a, Type: NumberType}})),
			in.Union(NumberType, in.LiteralString("length"), in.LiteralString("a")),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Evaluate(in.KeyOf(tc.operand)); got != tc.want {
				t.Errorf("keyof %s = %s, want %s", in.Sprint(tc.operand), in.Sprint(got), in.Sprint(tc.want))
			}
		})
	}

	t.Run("tuple_adds_index_literals", func(t *testing.T) {
		got := e.Evaluate(in.KeyOf(in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}})))
		members, ok := in.UnionMembers(got)
		if !ok {
			t.Fatalf("expected union, got %s", in.Sprint(got))
		}
		want := map[TypeID]bool{
			NumberType:                 false,
			in.LiteralString("length"): false,
			in.LiteralString("0"):      false,
			in.LiteralString("1"):      false,
		}
		for _, m := range members {
			if _, tracked := want[m]; tracked {
				want[m] = true
			}
		}
		for id, seen := range want {
			if !seen {
				t.Errorf("keyof tuple missing %s in %s", in.Sprint(id), in.Sprint(got))
			}
		}
	})
}

func TestEvaluateIndexAccess(t *testing.T) {
	in, _, e := newTestEvaluator()

	a := in.InternString("a")
	opt := in.InternString("opt")
	obj := in.Object([]Property{
		{Name: a, Type: StringType},
		{Name: opt, Type: NumberType, Optional: true},
	})

	t.Run("named_property", func(t *testing.T) {
		if got := e.Evaluate(in.IndexAccess(obj, in.LiteralString("a"))); got != StringType {
			t.Errorf("obj[\"a\"] = %s, want string", in.Sprint(got))
		}
	})

	t.Run("optional_property_adds_undefined", func(t *testing.T) {
		got := e.Evaluate(in.IndexAccess(obj, in.LiteralString("opt")))
		if got != in.Union(NumberType, UndefinedType) {
			t.Errorf("obj[\"opt\"] = %s, want number | undefined", in.Sprint(got))
		}
	})

	t.Run("missing_property_is_error", func(t *testing.T) {
		if got := e.Evaluate(in.IndexAccess(obj, in.LiteralString("nope"))); got != ErrorType {
			t.Errorf("missing key = %s, want error", in.Sprint(got))
		}
	})

	t.Run("index_union_distributes", func(t *testing.T) {
		idx := in.Union(in.LiteralString("a"), in.LiteralString("opt"))
		got := e.Evaluate(in.IndexAccess(obj, idx))
		if got != in.Union(StringType, NumberType, UndefinedType) {
			t.Errorf("obj[\"a\" | \"opt\"] = %s", in.Sprint(got))
		}
	})

	t.Run("object_union_distributes", func(t *testing.T) {
		other := in.Object([]Property{{Name: a, Type: BooleanType}})
		got := e.Evaluate(in.IndexAccess(in.Union(obj, other), in.LiteralString("a")))
		if got != in.Union(StringType, BooleanType) {
			t.Errorf("(obj | other)[\"a\"] = %s", in.Sprint(got))
		}
	})

	t.Run("tuple_positions", func(t *testing.T) {
		tup := in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}})
		if got := e.Evaluate(in.IndexAccess(tup, in.LiteralNumber(1))); got != NumberType {
			t.Errorf("tuple[1] = %s, want number", in.Sprint(got))
		}
		if got := e.Evaluate(in.IndexAccess(tup, in.LiteralNumber(5))); got != ErrorType {
			t.Errorf("tuple[5] = %s, want error", in.Sprint(got))
		}
	})

	t.Run("array_by_number", func(t *testing.T) {
		arr := in.Array(StringType)
		if got := e.Evaluate(in.IndexAccess(arr, NumberType)); got != StringType {
			t.Errorf("arr[number] = %s, want string", in.Sprint(got))
		}
	})

	t.Run("length_of_fixed_tuple", func(t *testing.T) {
		tup := in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}})
		if got := e.Evaluate(in.IndexAccess(tup, in.LiteralString("length"))); got != in.LiteralNumber(2) {
			t.Errorf("tuple[\"length\"] = %s, want 2", in.Sprint(got))
		}
	})

	t.Run("nullish_object_is_error", func(t *testing.T) {
		if got := e.Evaluate(in.IndexAccess(NullType, in.LiteralString("a"))); got != ErrorType {
			t.Errorf("null[\"a\"] = %s, want error", in.Sprint(got))
		}
	})
}

func TestEvaluateIndexAccessUncheckedFlag(t *testing.T) {
	in := NewInterner()
	defs := NewDefStore(in)
	cfg := DefaultCheckConfig()
	cfg.NoUncheckedIndexedAccess = true
	e := NewChecker(in, defs, cfg).Evaluator()

	arr := in.Array(StringType)
	got := e.Evaluate(in.IndexAccess(arr, NumberType))
	if got != in.Union(StringType, UndefinedType) {
		t.Errorf("arr[number] with unchecked access = %s, want string | undefined", in.Sprint(got))
	}
}

func TestEvaluateTemplate(t *testing.T) {
	in, _, e := newTestEvaluator()

	t.Run("union_hole_expands", func(t *testing.T) {
		hole := in.Union(in.LiteralString("a"), in.LiteralString("b"))
		tpl := in.Template([]TemplateSpan{{Text: in.InternString("k-"), Type: hole}})
		got := e.Evaluate(tpl)
		want := in.Union(in.LiteralString("k-a"), in.LiteralString("k-b"))
		if got != want {
			t.Errorf("expansion = %s, want %s", in.Sprint(got), in.Sprint(want))
		}
	})

	t.Run("boolean_hole_expands", func(t *testing.T) {
		tpl := in.Template([]TemplateSpan{{Text: in.InternString("is:"), Type: BooleanType}})
		got := e.Evaluate(tpl)
		want := in.Union(in.LiteralString("is:false"), in.LiteralString("is:true"))
		if got != want {
			t.Errorf("expansion = %s, want %s", in.Sprint(got), in.Sprint(want))
		}
	})

	t.Run("number_literal_hole", func(t *testing.T) {
		tpl := in.Template([]TemplateSpan{{Type: in.LiteralNumber(1.5)}})
		if got := e.Evaluate(tpl); got != in.LiteralString("1.5") {
			t.Errorf("got %s, want \"1.5\"", in.Sprint(got))
		}
	})

	t.Run("string_hole_stays_pattern", func(t *testing.T) {
		tpl := in.Template([]TemplateSpan{{Text: in.InternString("v"), Type: StringType}})
		got := e.Evaluate(tpl)
		if _, ok := in.TemplateSpans(got); !ok {
			t.Errorf("infinite hole should keep the template, got %s", in.Sprint(got))
		}
	})

	t.Run("never_hole_is_never", func(t *testing.T) {
		tpl := in.Template([]TemplateSpan{{Text: in.InternString("v"), Type: NeverType}})
		if got := e.Evaluate(tpl); got != NeverType {
			t.Errorf("never hole = %s, want never", in.Sprint(got))
		}
	})
}

func TestEvaluateStringIntrinsics(t *testing.T) {
	in, _, e := newTestEvaluator()

	testCases := []struct {
		name    string
		kind    StringIntrinsicKind
		operand TypeID
		want    TypeID
	}{
		{"uppercase", StringUppercase, in.LiteralString("abc"), in.LiteralString("ABC")},
		{"lowercase", StringLowercase, in.LiteralString("ABC"), in.LiteralString("abc")},
		{"capitalize", StringCapitalize, in.LiteralString("abc"), in.LiteralString("Abc")},
		{"uncapitalize", StringUncapitalize, in.LiteralString("Abc"), in.LiteralString("abc")},
		{"plain_string", StringUppercase, StringType, StringType},
		{"non_string_is_error", StringUppercase, NumberType, ErrorType},
		{
			"maps_over_union",
			StringUppercase,
			in.Union(in.LiteralString("a"), in.LiteralString("b")),
			in.Union(in.LiteralString("A"), in.LiteralString("B")),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Evaluate(in.StringIntrinsic(tc.kind, tc.operand))
			if got != tc.want {
				t.Errorf("got %s, want %s", in.Sprint(got), in.Sprint(tc.want))
			}
		})
	}
}

func TestEvaluateDepthBudget(t *testing.T) {
	in, defs, e := newTestEvaluator()

	chain := func(n int) TypeID {
		prev := StringType
		for i := 0; i < n; i++ {
			def := defs.AddTypeAlias("", nil, prev)
			prev = in.Lazy(def)
		}
		return prev
	}

	if got := e.Evaluate(chain(maxEvalDepth - 10)); got != StringType {
		t.Errorf("within-budget chain = %s, want string", in.Sprint(got))
	}

	// A fresh evaluator, so the shallow chain's cache cannot help.
	in2 := NewInterner()
	defs2 := NewDefStore(in2)
	e2 := NewEvaluator(in2, defs2)
	prev := StringType
	for i := 0; i < maxEvalDepth+10; i++ {
		def := defs2.AddTypeAlias("", nil, prev)
		prev = in2.Lazy(def)
	}
	if got := e2.Evaluate(prev); got != ErrorType {
		t.Errorf("over-budget chain = %s, want error", in2.Sprint(got))
	}
}

func TestEvaluateSelfReferentialAlias(t *testing.T) {
	in, defs, e := newTestEvaluator()

	def := defs.AddTypeAlias("Loop", nil, NoType)
	self := in.Lazy(def)
	defs.SetBody(def, self)

	// The direct cycle cannot make progress; it settles on itself.
	if got := e.Evaluate(self); got != self {
		t.Errorf("self-referential alias = %s, want itself", in.Sprint(got))
	}
	if got := e.Evaluate(self); got != self {
		t.Error("second evaluation should be stable")
	}
}

func TestEvaluateRecursiveGeneric(t *testing.T) {
	in, defs, e := newTestEvaluator()

	tName := in.InternString("T")
	next := in.InternString("next")

	def := defs.AddTypeAlias("Chain", []TypeParamInfo{{Name: tName}}, NoType)
	defs.SetBody(def, in.Object([]Property{{
		Name: next,
		Type: in.Application(in.Lazy(def), []TypeID{in.TypeParameter(TypeParamInfo{Name: tName})}),
	}}))

	app := in.Application(in.Lazy(def), []TypeID{StringType})
	got := e.Evaluate(app)

	shape, ok := in.ObjectShapeOf(got)
	if !ok {
		t.Fatalf("expected object shell, got %s", in.Sprint(got))
	}
	p, ok := shape.PropertyByName(next)
	if !ok || p.Type != app {
		t.Errorf("next should refer back to the same application handle, got %s", in.Sprint(p.Type))
	}
	if again := e.Evaluate(app); again != got {
		t.Error("re-evaluation should return the same stable handle")
	}
}

func TestEvaluateSelfReferentialMapped(t *testing.T) {
	in, defs, e := newTestEvaluator()

	def := defs.AddTypeAlias("M", nil, NoType)
	mapped := in.Mapped(MappedShape{
		Param:      TypeParamInfo{Name: in.InternString("K")},
		Constraint: in.KeyOf(in.Lazy(def)),
		Template:   StringType,
	})
	defs.SetBody(def, mapped)

	// Re-entry contributes no keys, so the fixpoint is the empty object.
	if got := e.Evaluate(mapped); got != in.Object(nil) {
		t.Errorf("self-referential mapped type = %s, want empty object", in.Sprint(got))
	}
}

func TestEvaluateErrorPropagation(t *testing.T) {
	in, _, e := newTestEvaluator()

	missing := in.Lazy(DefID(404))

	testCases := []struct {
		name string
		id   TypeID
	}{
		{"keyof", in.KeyOf(missing)},
		{"index_access_object", in.IndexAccess(missing, in.LiteralString("a"))},
		{"index_access_index", in.IndexAccess(in.Object(nil), missing)},
		{"template_hole", in.Template([]TemplateSpan{{Text: in.InternString("x"), Type: missing}})},
		{"string_intrinsic", in.StringIntrinsic(StringUppercase, missing)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Evaluate(tc.id); got != ErrorType {
				t.Errorf("got %s, want error", in.Sprint(got))
			}
		})
	}
}
