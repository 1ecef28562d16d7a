package typesystem

import (
	"testing"

	"github.com/funvibe/funbit/pkg/funbit"
)

// buildSample constructs the same moderately nested type in any interner.
func buildSample(in *Interner) TypeID {
	return in.Object([]Property{
		{Name: in.InternString("id"), Type: in.Union(NumberType, StringType)},
		{Name: in.InternString("tags"), Type: in.Readonly(in.Array(StringType)), Optional: true},
		{Name: in.InternString("pick"), Type: in.Function(FunctionShape{
			Params: []Param{{Name: in.InternString("key"), Type: in.LiteralString("a")}},
			Return: in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType, Optional: true}}),
		})},
	})
}

// Fingerprints depend on structure alone, so interners that issued
// completely different handles for the same type still agree.
func TestFingerprintStableAcrossInternOrder(t *testing.T) {
	fresh := NewInterner()
	direct := buildSample(fresh)

	// Shift every id space before building the same type again.
	crowded := NewInterner()
	crowded.LiteralString("decoy")
	crowded.Array(BooleanType)
	crowded.Union(NullType, UndefinedType)
	crowded.Object([]Property{{Name: crowded.InternString("z"), Type: BigIntType}})
	shifted := buildSample(crowded)

	if direct == shifted {
		t.Fatal("test setup expects the two interners to issue different handles")
	}

	a, err := NewFingerprinter(fresh, nil).Fingerprint(direct)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := NewFingerprinter(crowded, nil).Fingerprint(shifted)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Errorf("digests diverged across interners: %016x vs %016x", a, b)
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	in := NewInterner()
	f := NewFingerprinter(in, nil)

	a := in.InternString("a")
	testCases := []struct {
		name string
		x, y TypeID
	}{
		{"different_intrinsics", StringType, NumberType},
		{"literal_vs_base", in.LiteralString("a"), StringType},
		{"string_vs_number_literal", in.LiteralString("1"), in.LiteralNumber(1)},
		{"array_vs_keyof", in.Array(StringType), in.KeyOf(StringType)},
		{"array_vs_tuple", in.Array(StringType), in.Tuple([]TupleElement{{Type: StringType}})},
		{"optional_property", in.Object([]Property{{Name: a, Type: StringType}}),
			in.Object([]Property{{Name: a, Type: StringType, Optional: true}})},
		{"readonly_property", in.Object([]Property{{Name: a, Type: StringType}}),
			in.Object([]Property{{Name: a, Type: StringType, Readonly: true}})},
		{"union_member_count", in.Union(StringType, NumberType), in.Union(StringType, NumberType, BooleanType)},
		{"bigint_sign", in.LiteralBigInt(false, "7"), in.LiteralBigInt(true, "7")},
		{"distributive_flag", in.Conditional(Conditional{
			Check: in.TypeParameter(TypeParamInfo{Name: in.InternString("T")}), Extends: StringType,
			True: TrueType, False: FalseType, Distributive: true,
		}), in.Conditional(Conditional{
			Check: in.TypeParameter(TypeParamInfo{Name: in.InternString("T")}), Extends: StringType,
			True: TrueType, False: FalseType,
		})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dx, err := f.Fingerprint(tc.x)
			if err != nil {
				t.Fatalf("Fingerprint(x): %v", err)
			}
			dy, err := f.Fingerprint(tc.y)
			if err != nil {
				t.Fatalf("Fingerprint(y): %v", err)
			}
			if dx == dy {
				t.Errorf("%s and %s collided", in.Sprint(tc.x), in.Sprint(tc.y))
			}
		})
	}
}

// The encoding opens with the kind tag, then kind-specific segments; a
// matcher over the bit string can pick the header apart.
func TestFingerprintEncodingHeader(t *testing.T) {
	in := NewInterner()
	f := NewFingerprinter(in, nil)

	t.Run("intrinsic", func(t *testing.T) {
		bits, err := f.Encode(StringType)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		var kind, which int
		m := funbit.NewMatcher()
		funbit.Integer(m, &kind, funbit.WithSize(8))
		funbit.Integer(m, &which, funbit.WithSize(8))
		if _, err := funbit.Match(m, bits); err != nil {
			t.Fatalf("Match: %v", err)
		}
		if kind != int(KindIntrinsic) || which != int(IntrinsicString) {
			t.Errorf("header = (%d, %d), want (%d, %d)", kind, which, KindIntrinsic, IntrinsicString)
		}
	})

	t.Run("union_counts_members", func(t *testing.T) {
		bits, err := f.Encode(in.Union(StringType, NumberType, BooleanType))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		var kind, count int
		var rest []byte
		m := funbit.NewMatcher()
		funbit.Integer(m, &kind, funbit.WithSize(8))
		funbit.Integer(m, &count, funbit.WithSize(16))
		funbit.RestBinary(m, &rest)
		if _, err := funbit.Match(m, bits); err != nil {
			t.Fatalf("Match: %v", err)
		}
		if kind != int(KindUnion) || count != 3 {
			t.Errorf("header = (%d, %d), want (%d, 3)", kind, count, KindUnion)
		}
		if len(rest) == 0 {
			t.Error("member encodings missing after the header")
		}
	})
}

// With a namer, definition references hash by declared name, which keeps
// digests stable across sessions that registered definitions in a
// different order. Without one, only the raw id is available.
func TestFingerprintNamedReferences(t *testing.T) {
	inA := NewInterner()
	defsA := NewDefStore(inA)
	defsA.AddTypeAlias("Decoy", nil, BooleanType)
	pointA := defsA.AddTypeAlias("Point", nil, inA.Object(nil))

	inB := NewInterner()
	defsB := NewDefStore(inB)
	pointB := defsB.AddTypeAlias("Point", nil, inB.Object(nil))

	if pointA == pointB {
		t.Fatal("test setup expects different definition ids")
	}

	named := func(in *Interner, namer DefNamer, id TypeID) uint64 {
		d, err := NewFingerprinter(in, namer).Fingerprint(id)
		if err != nil {
			t.Fatalf("Fingerprint: %v", err)
		}
		return d
	}

	withNamerA := named(inA, defsA, inA.Lazy(pointA))
	withNamerB := named(inB, defsB, inB.Lazy(pointB))
	if withNamerA != withNamerB {
		t.Error("named references should agree across registration orders")
	}

	rawA := named(inA, nil, inA.Lazy(pointA))
	rawB := named(inB, nil, inB.Lazy(pointB))
	if rawA == rawB {
		t.Error("unnamed references fall back to ids and should differ here")
	}
}

func TestFingerprintDeepType(t *testing.T) {
	in := NewInterner()
	f := NewFingerprinter(in, nil)

	deep := StringType
	for i := 0; i < 100; i++ {
		deep = in.Array(deep)
	}

	if _, err := f.Fingerprint(deep); err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
}
