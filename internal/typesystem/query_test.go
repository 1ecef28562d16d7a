package typesystem

import "testing"

func newTestSolver(config CheckConfig) (*Interner, *DefStore, *Solver) {
	in := NewInterner()
	defs := NewDefStore(in)
	return in, defs, NewSolver(in, defs, config)
}

// The solver is a facade; one pass over each operation is enough, the
// underlying engines carry their own suites.
func TestSolverFacade(t *testing.T) {
	in, defs, s := newTestSolver(DefaultCheckConfig())

	if !s.IsAssignable(in.LiteralString("a"), StringType) {
		t.Error("literal should be assignable to its base")
	}
	if s.Explain(StringType, NumberType) == nil {
		t.Error("Explain should report the failed pair")
	}
	if s.Explain(StringType, StringType) != nil {
		t.Error("Explain on a compatible pair should be nil")
	}

	body := in.Object([]Property{{Name: in.InternString("x"), Type: NumberType}})
	def := defs.AddTypeAlias("Point", nil, body)
	if got := s.Evaluate(in.Lazy(def)); got != body {
		t.Errorf("Evaluate = %s, want the alias body", in.Sprint(got))
	}

	union := in.Union(StringType, NumberType)
	if got := s.Narrow(union, Guard{Kind: GuardTypeof, Tag: "string", Assume: true}); got != StringType {
		t.Errorf("Narrow = %s, want string", in.Sprint(got))
	}
	if got := s.TruthinessOf(NullType); got != TruthinessFalsy {
		t.Errorf("TruthinessOf(null) = %v, want falsy", got)
	}
	if got := s.SprintWith(defs, in.Lazy(def)); got != "Point" {
		t.Errorf("SprintWith = %q, want %q", got, "Point")
	}
}

func TestPropertyOfObject(t *testing.T) {
	in, _, s := newTestSolver(DefaultCheckConfig())

	obj := in.Object([]Property{
		{Name: in.InternString("name"), Type: StringType},
		{Name: in.InternString("age"), Type: NumberType, Optional: true},
		{Name: in.InternString("id"), Type: StringType, Readonly: true},
	})

	t.Run("found", func(t *testing.T) {
		r := s.PropertyOf(obj, "name")
		if r.Access != PropertyFound || r.Type != StringType {
			t.Fatalf("got %+v, want found string", r)
		}
	})

	t.Run("optional_includes_undefined", func(t *testing.T) {
		r := s.PropertyOf(obj, "age")
		if r.Access != PropertyFound || !r.Optional {
			t.Fatalf("got %+v, want optional hit", r)
		}
		if want := in.Union(NumberType, UndefinedType); r.Type != want {
			t.Errorf("type = %s, want %s", in.Sprint(r.Type), in.Sprint(want))
		}
	})

	t.Run("readonly_flag", func(t *testing.T) {
		if r := s.PropertyOf(obj, "id"); !r.Readonly {
			t.Errorf("got %+v, want readonly hit", r)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if r := s.PropertyOf(obj, "nope"); r.Access != PropertyNotFound {
			t.Errorf("got %+v, want not found", r)
		}
	})
}

func TestPropertyOfSpecialReceivers(t *testing.T) {
	_, _, s := newTestSolver(DefaultCheckConfig())

	testCases := []struct {
		name string
		id   TypeID
		want PropertyAccess
	}{
		{"any", AnyType, PropertyOnAny},
		{"error", ErrorType, PropertyOnError},
		{"unknown", UnknownType, PropertyOnUnknown},
		{"null", NullType, PropertyOnNullish},
		{"undefined", UndefinedType, PropertyOnNullish},
		{"void", VoidType, PropertyOnNullish},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if r := s.PropertyOf(tc.id, "x"); r.Access != tc.want {
				t.Errorf("access = %v, want %v", r.Access, tc.want)
			}
		})
	}
}

// A union property access succeeds when at least one member carries the
// property; it only misses when no member does.
func TestPropertyOfUnion(t *testing.T) {
	in, _, s := newTestSolver(DefaultCheckConfig())

	a := in.InternString("a")
	b := in.InternString("b")
	withA1 := in.Object([]Property{{Name: a, Type: StringType}})
	withA2 := in.Object([]Property{{Name: a, Type: NumberType}})
	withB := in.Object([]Property{{Name: b, Type: BooleanType}})

	t.Run("all_members_join", func(t *testing.T) {
		r := s.PropertyOf(in.Union(withA1, withA2), "a")
		if r.Access != PropertyFound || r.Optional {
			t.Fatalf("got %+v, want a required hit", r)
		}
		if want := in.Union(NumberType, StringType); r.Type != want {
			t.Errorf("type = %s, want %s", in.Sprint(r.Type), in.Sprint(want))
		}
	})

	t.Run("partial_members_still_hit", func(t *testing.T) {
		r := s.PropertyOf(in.Union(withA1, withB), "a")
		if r.Access != PropertyFound {
			t.Fatalf("got %+v, want a hit from the carrying member", r)
		}
		if r.Type != StringType {
			t.Errorf("type = %s, want string", in.Sprint(r.Type))
		}
		if !r.Optional {
			t.Error("members without the property must make the join optional")
		}
	})

	t.Run("no_member_misses", func(t *testing.T) {
		if r := s.PropertyOf(in.Union(withA1, withA2), "b"); r.Access != PropertyNotFound {
			t.Errorf("got %+v, want not found", r)
		}
	})

	t.Run("nullish_member_joins_optional", func(t *testing.T) {
		r := s.PropertyOf(in.Union(withA1, NullType), "a")
		if r.Access != PropertyFound || !r.Optional {
			t.Fatalf("got %+v, want an optional hit past the null member", r)
		}
	})

	t.Run("all_nullish", func(t *testing.T) {
		if r := s.PropertyOf(in.Union(NullType, UndefinedType), "a"); r.Access != PropertyOnNullish {
			t.Errorf("got %+v, want nullish access", r)
		}
	})

	t.Run("index_member_marks_join", func(t *testing.T) {
		indexed := in.ObjectWithIndex(ObjectShape{
			StringIndex: &IndexSignature{Key: StringType, Value: NumberType},
		})
		r := s.PropertyOf(in.Union(withA1, indexed), "a")
		if r.Access != PropertyFromIndex {
			t.Fatalf("got %+v, want an index-sourced hit", r)
		}
		if want := in.Union(NumberType, StringType); r.Type != want {
			t.Errorf("type = %s, want %s", in.Sprint(r.Type), in.Sprint(want))
		}
	})
}

func TestPropertyOfIntersection(t *testing.T) {
	in, _, s := newTestSolver(DefaultCheckConfig())

	brand := in.Intersection(StringType,
		in.Object([]Property{{Name: in.InternString("__brand"), Type: in.LiteralString("id")}}))

	r := s.PropertyOf(brand, "__brand")
	if r.Access != PropertyFound || r.Type != in.LiteralString("id") {
		t.Fatalf("got %+v, want the branded literal", r)
	}

	// The primitive member keeps serving its apparent surface.
	if r := s.PropertyOf(brand, "length"); r.Access != PropertyFound || r.Type != NumberType {
		t.Errorf("length via intersection = %+v, want number", r)
	}
}

func TestPropertyOfApparentMembers(t *testing.T) {
	in, _, s := newTestSolver(DefaultCheckConfig())

	t.Run("array_length", func(t *testing.T) {
		r := s.PropertyOf(in.Array(StringType), "length")
		if r.Access != PropertyFound || r.Type != NumberType {
			t.Fatalf("got %+v, want number", r)
		}
	})

	t.Run("array_element", func(t *testing.T) {
		r := s.PropertyOf(in.Array(StringType), "0")
		if r.Access != PropertyFromIndex || r.Type != StringType {
			t.Fatalf("got %+v, want the element type", r)
		}
	})

	t.Run("string_length", func(t *testing.T) {
		r := s.PropertyOf(StringType, "length")
		if r.Access != PropertyFound || r.Type != NumberType || !r.Readonly {
			t.Fatalf("got %+v, want readonly number", r)
		}
	})

	t.Run("string_literal_length", func(t *testing.T) {
		if r := s.PropertyOf(in.LiteralString("abc"), "length"); r.Access != PropertyFound {
			t.Errorf("got %+v, want a hit", r)
		}
	})

	t.Run("fixed_tuple_length_is_literal", func(t *testing.T) {
		pair := in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}})
		r := s.PropertyOf(pair, "length")
		if r.Type != in.LiteralNumber(2) {
			t.Errorf("length = %s, want the literal 2", in.Sprint(r.Type))
		}
	})

	t.Run("open_tuple_length_widens", func(t *testing.T) {
		open := in.Tuple([]TupleElement{{Type: StringType}, {Type: in.Array(NumberType), Rest: true}})
		if r := s.PropertyOf(open, "length"); r.Type != NumberType {
			t.Errorf("length = %s, want number", in.Sprint(r.Type))
		}
	})

	t.Run("tuple_position", func(t *testing.T) {
		pair := in.Tuple([]TupleElement{{Type: StringType}, {Type: NumberType}})
		if r := s.PropertyOf(pair, "1"); r.Access != PropertyFound || r.Type != NumberType {
			t.Fatalf("got %+v, want number at position 1", r)
		}
		if r := s.PropertyOf(pair, "5"); r.Access != PropertyNotFound {
			t.Errorf("out-of-range position = %+v, want not found", r)
		}
	})

	t.Run("readonly_array", func(t *testing.T) {
		r := s.PropertyOf(in.Readonly(in.Array(StringType)), "length")
		if r.Access != PropertyFound || !r.Readonly {
			t.Fatalf("got %+v, want a readonly hit", r)
		}
	})

	t.Run("primitive_toString", func(t *testing.T) {
		r := s.PropertyOf(NumberType, "toString")
		if r.Access != PropertyFound {
			t.Fatalf("got %+v, want a hit", r)
		}
		if _, ok := in.FunctionOf(r.Type); !ok {
			t.Errorf("toString = %s, want a function", in.Sprint(r.Type))
		}
	})

	t.Run("string_charAt", func(t *testing.T) {
		r := s.PropertyOf(in.LiteralString("hi"), "charAt")
		if r.Access != PropertyFound {
			t.Fatalf("got %+v, want a hit", r)
		}
		f, ok := in.FunctionOf(r.Type)
		if !ok || f.Return != StringType {
			t.Errorf("charAt = %s, want (pos: number) => string", in.Sprint(r.Type))
		}
	})

	t.Run("number_toFixed", func(t *testing.T) {
		r := s.PropertyOf(NumberType, "toFixed")
		if r.Access != PropertyFound {
			t.Fatalf("got %+v, want a hit", r)
		}
		f, ok := in.FunctionOf(r.Type)
		if !ok || f.Return != StringType || f.MinArity() != 0 {
			t.Errorf("toFixed = %s, want (fractionDigits?: number) => string", in.Sprint(r.Type))
		}
		if r := s.PropertyOf(StringType, "toFixed"); r.Access != PropertyNotFound {
			t.Errorf("string toFixed = %+v, want not found", r)
		}
	})

	t.Run("valueOf_returns_the_base_primitive", func(t *testing.T) {
		r := s.PropertyOf(in.LiteralBoolean(true), "valueOf")
		if r.Access != PropertyFound {
			t.Fatalf("got %+v, want a hit", r)
		}
		f, ok := in.FunctionOf(r.Type)
		if !ok || f.Return != BooleanType {
			t.Errorf("valueOf = %s, want () => boolean", in.Sprint(r.Type))
		}
	})

	t.Run("array_search_members", func(t *testing.T) {
		nums := in.Array(NumberType)

		r := s.PropertyOf(nums, "includes")
		f, ok := in.FunctionOf(r.Type)
		if r.Access != PropertyFound || !ok || f.Return != BooleanType || f.Params[0].Type != NumberType {
			t.Errorf("includes = %+v, want (searchElement: number) => boolean", r)
		}

		r = s.PropertyOf(nums, "at")
		f, ok = in.FunctionOf(r.Type)
		if r.Access != PropertyFound || !ok || f.Return != in.Union(NumberType, UndefinedType) {
			t.Errorf("at = %+v, want (index: number) => number | undefined", r)
		}

		r = s.PropertyOf(nums, "join")
		f, ok = in.FunctionOf(r.Type)
		if r.Access != PropertyFound || !ok || f.Return != StringType || f.MinArity() != 0 {
			t.Errorf("join = %+v, want (separator?: string) => string", r)
		}
	})

	t.Run("object_has_no_toString", func(t *testing.T) {
		if r := s.PropertyOf(in.Object(nil), "toString"); r.Access != PropertyNotFound {
			t.Errorf("got %+v, want not found; only declared members count on objects", r)
		}
	})
}

func TestPropertyOfIndexSignatures(t *testing.T) {
	in, _, strict := newTestSolver(DefaultCheckConfig())

	dict := in.ObjectWithIndex(ObjectShape{
		StringIndex: &IndexSignature{Key: StringType, Value: NumberType},
	})

	if r := strict.PropertyOf(dict, "anything"); r.Access != PropertyFromIndex || r.Type != NumberType {
		t.Fatalf("got %+v, want number from the index", r)
	}

	unchecked := DefaultCheckConfig()
	unchecked.NoUncheckedIndexedAccess = true
	in2, _, s2 := newTestSolver(unchecked)
	dict2 := in2.ObjectWithIndex(ObjectShape{
		StringIndex: &IndexSignature{Key: StringType, Value: NumberType},
	})

	r := s2.PropertyOf(dict2, "anything")
	if want := in2.Union(NumberType, UndefinedType); r.Type != want {
		t.Errorf("unchecked read = %s, want %s", in2.Sprint(r.Type), in2.Sprint(want))
	}
	if r := s2.PropertyOf(in2.Array(StringType), "0"); r.Type != in2.Union(StringType, UndefinedType) {
		t.Errorf("unchecked element read = %s, want string | undefined", in2.Sprint(r.Type))
	}
}

func TestPropertyOfForcesReceiver(t *testing.T) {
	in, defs, s := newTestSolver(DefaultCheckConfig())

	body := in.Object([]Property{{Name: in.InternString("x"), Type: NumberType}})
	def := defs.AddTypeAlias("Point", nil, body)

	if r := s.PropertyOf(in.Lazy(def), "x"); r.Access != PropertyFound || r.Type != NumberType {
		t.Fatalf("got %+v, want the property behind the alias", r)
	}
	if r := s.PropertyOf(in.Lazy(DefID(404)), "x"); r.Access != PropertyOnError {
		t.Errorf("got %+v, want the error outcome for a broken reference", r)
	}
}

func TestPropertyOfHybridCallable(t *testing.T) {
	in, _, s := newTestSolver(DefaultCheckConfig())

	call := in.InternSignature(FunctionShape{Return: StringType})
	hybrid := in.Callable(CallableShape{
		CallSignatures: []FuncID{call},
		Shape: in.InternMembers([]Property{
			{Name: in.InternString("version"), Type: NumberType},
		}),
	})

	if r := s.PropertyOf(hybrid, "version"); r.Access != PropertyFound || r.Type != NumberType {
		t.Fatalf("got %+v, want the declared member", r)
	}
	if r := s.PropertyOf(hybrid, "missing"); r.Access != PropertyNotFound {
		t.Errorf("got %+v, want not found", r)
	}
}

func TestCallSignatures(t *testing.T) {
	in, _, s := newTestSolver(DefaultCheckConfig())

	fn := in.Function(FunctionShape{
		Params: []Param{{Name: in.InternString("x"), Type: StringType}},
		Return: NumberType,
	})
	ctor := in.Function(FunctionShape{Return: ObjectKeyword, Constructor: true})

	t.Run("plain_function", func(t *testing.T) {
		sigs := s.CallSignaturesOf(fn)
		if len(sigs) != 1 || sigs[0].Return != NumberType {
			t.Fatalf("got %d signatures, want the single declared one", len(sigs))
		}
		if s.ConstructSignaturesOf(fn) != nil {
			t.Error("a plain function has no construct signatures")
		}
	})

	t.Run("constructor_function", func(t *testing.T) {
		if s.CallSignaturesOf(ctor) != nil {
			t.Error("a constructor has no call signatures")
		}
		if sigs := s.ConstructSignaturesOf(ctor); len(sigs) != 1 {
			t.Fatalf("got %d construct signatures, want 1", len(sigs))
		}
	})

	t.Run("overloads_in_order", func(t *testing.T) {
		str := in.InternSignature(FunctionShape{
			Params: []Param{{Name: in.InternString("s"), Type: StringType}},
			Return: StringType,
		})
		num := in.InternSignature(FunctionShape{
			Params: []Param{{Name: in.InternString("n"), Type: NumberType}},
			Return: NumberType,
		})
		overloaded := in.Callable(CallableShape{CallSignatures: []FuncID{str, num}})

		sigs := s.CallSignaturesOf(overloaded)
		if len(sigs) != 2 {
			t.Fatalf("got %d signatures, want 2", len(sigs))
		}
		if sigs[0].Return != StringType || sigs[1].Return != NumberType {
			t.Error("overload order must be declaration order")
		}
	})

	t.Run("non_callable", func(t *testing.T) {
		if s.CallSignaturesOf(in.Object(nil)) != nil {
			t.Error("objects without signatures are not callable")
		}
	})
}
