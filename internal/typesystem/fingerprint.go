package typesystem

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/funvibe/funbit/pkg/funbit"
)

// maxFingerprintDepth caps structural recursion while fingerprinting.
// Shared subtrees re-expand on every reference, so the cap also bounds
// pathological blowup from heavily self-similar types.
const maxFingerprintDepth = 64

// Fingerprinter renders a type's structure into a stable digest. The
// encoding walks structure, not handles, so two sessions that intern the
// same type in different orders still produce the same fingerprint;
// that is what makes digests comparable across epochs and processes.
type Fingerprinter struct {
	in    *Interner
	namer DefNamer
}

// NewFingerprinter builds a fingerprinter. namer may be nil, in which
// case definition references encode by raw id and fingerprints are only
// stable within one registration order.
func NewFingerprinter(in *Interner, namer DefNamer) *Fingerprinter {
	return &Fingerprinter{in: in, namer: namer}
}

// Encode renders a type's structure as a bit string: kind tags, counts
// and atoms in a fixed canonical layout. The encoding is a comparison
// artifact; it cannot be decoded back into a type.
func (f *Fingerprinter) Encode(id TypeID) (*funbit.BitString, error) {
	b := funbit.NewBuilder()
	if err := f.encode(b, id, 0); err != nil {
		return nil, err
	}
	bits, err := funbit.Build(b)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.in.Sprint(id), err)
	}
	return bits, nil
}

// Fingerprint condenses a type's structural encoding into 64 bits.
func (f *Fingerprinter) Fingerprint(id TypeID) (uint64, error) {
	bits, err := f.Encode(id)
	if err != nil {
		return 0, err
	}
	sum := sha256.Sum256(bits.ToBytes())
	return binary.BigEndian.Uint64(sum[:8]), nil
}

func (f *Fingerprinter) encode(b *funbit.Builder, id TypeID, depth int) error {
	if depth > maxFingerprintDepth {
		funbit.AddInteger(b, 0xff, funbit.WithSize(8))
		return nil
	}
	in := f.in
	key := in.keyOf(id)
	funbit.AddInteger(b, int(key.kind), funbit.WithSize(8))

	switch key.kind {
	case KindIntrinsic:
		funbit.AddInteger(b, int(key.x), funbit.WithSize(8))

	case KindLiteral:
		funbit.AddInteger(b, int(key.x), funbit.WithSize(8))
		lit, _ := in.LiteralOf(id)
		switch lit.Kind {
		case LitString, LitBigInt:
			f.encodeString(b, in.StringOf(lit.Str))
			if lit.Neg {
				funbit.AddInteger(b, 1, funbit.WithSize(8))
			}
		case LitNumber:
			funbit.AddFloat(b, lit.Num, funbit.WithSize(64))
		case LitBoolean:
			v := 0
			if lit.Bool {
				v = 1
			}
			funbit.AddInteger(b, v, funbit.WithSize(8))
		}

	case KindUnion, KindIntersection:
		members := in.list(ListID(key.x))
		funbit.AddInteger(b, len(members), funbit.WithSize(16))
		for _, m := range members {
			if err := f.encode(b, m, depth+1); err != nil {
				return err
			}
		}

	case KindObject:
		shape := in.shape(ShapeID(key.x))
		funbit.AddInteger(b, len(shape.Properties), funbit.WithSize(16))
		for _, p := range shape.Properties {
			f.encodeString(b, in.StringOf(p.Name))
			funbit.AddInteger(b, propertyBits(p), funbit.WithSize(8))
			if err := f.encode(b, p.Type, depth+1); err != nil {
				return err
			}
		}
		for _, sig := range []*IndexSignature{shape.StringIndex, shape.NumberIndex} {
			if sig == nil {
				funbit.AddInteger(b, 0, funbit.WithSize(8))
				continue
			}
			funbit.AddInteger(b, 1, funbit.WithSize(8))
			if err := f.encode(b, sig.Value, depth+1); err != nil {
				return err
			}
		}

	case KindArray, KindKeyOf, KindReadonly, KindNoInfer:
		return f.encode(b, TypeID(key.x), depth+1)

	case KindTuple:
		elems := in.tupleList(TupleListID(key.x))
		funbit.AddInteger(b, len(elems), funbit.WithSize(16))
		for _, e := range elems {
			flags := 0
			if e.Optional {
				flags |= 1
			}
			if e.Rest {
				flags |= 2
			}
			funbit.AddInteger(b, flags, funbit.WithSize(8))
			if err := f.encode(b, e.Type, depth+1); err != nil {
				return err
			}
		}

	case KindFunction:
		return f.encodeFunc(b, FuncID(key.x), depth)

	case KindCallable:
		c := in.callableShape(CallableID(key.x))
		funbit.AddInteger(b, len(c.CallSignatures), funbit.WithSize(8))
		for _, fid := range c.CallSignatures {
			if err := f.encodeFunc(b, fid, depth); err != nil {
				return err
			}
		}
		funbit.AddInteger(b, len(c.ConstructSignatures), funbit.WithSize(8))
		for _, fid := range c.ConstructSignatures {
			if err := f.encodeFunc(b, fid, depth); err != nil {
				return err
			}
		}

	case KindTypeParam, KindInfer:
		info := in.paramInfo(ParamID(key.x))
		f.encodeString(b, in.StringOf(info.Name))

	case KindLazy, KindTypeQuery, KindUniqueSymbol, KindNamespace:
		def := DefID(key.x)
		if f.namer != nil {
			if name, ok := f.namer.DefName(def); ok {
				f.encodeString(b, name)
				return nil
			}
		}
		funbit.AddInteger(b, int(def), funbit.WithSize(32))

	case KindApplication:
		if err := f.encode(b, TypeID(key.x), depth+1); err != nil {
			return err
		}
		args := in.list(ListID(key.y))
		funbit.AddInteger(b, len(args), funbit.WithSize(8))
		for _, a := range args {
			if err := f.encode(b, a, depth+1); err != nil {
				return err
			}
		}

	case KindConditional:
		c := in.cond(CondID(key.x))
		flag := 0
		if c.Distributive {
			flag = 1
		}
		funbit.AddInteger(b, flag, funbit.WithSize(8))
		for _, part := range []TypeID{c.Check, c.Extends, c.True, c.False} {
			if err := f.encode(b, part, depth+1); err != nil {
				return err
			}
		}

	case KindMapped:
		m := in.mapped(MappedID(key.x))
		f.encodeString(b, in.StringOf(m.Param.Name))
		funbit.AddInteger(b, int(m.Readonly)<<4|int(m.Optional), funbit.WithSize(8))
		for _, part := range []TypeID{m.Constraint, m.NameType, m.Template} {
			if part == NoType {
				funbit.AddInteger(b, 0, funbit.WithSize(8))
				continue
			}
			funbit.AddInteger(b, 1, funbit.WithSize(8))
			if err := f.encode(b, part, depth+1); err != nil {
				return err
			}
		}

	case KindTemplate:
		spans := in.spanList(SpanListID(key.x))
		funbit.AddInteger(b, len(spans), funbit.WithSize(8))
		for _, sp := range spans {
			f.encodeString(b, in.StringOf(sp.Text))
			if sp.Type == NoType {
				funbit.AddInteger(b, 0, funbit.WithSize(8))
				continue
			}
			funbit.AddInteger(b, 1, funbit.WithSize(8))
			if err := f.encode(b, sp.Type, depth+1); err != nil {
				return err
			}
		}

	case KindIndexAccess:
		if err := f.encode(b, TypeID(key.x), depth+1); err != nil {
			return err
		}
		return f.encode(b, TypeID(key.y), depth+1)

	case KindStringIntrinsic:
		funbit.AddInteger(b, int(key.x), funbit.WithSize(8))
		return f.encode(b, TypeID(key.y), depth+1)
	}
	return nil
}

func (f *Fingerprinter) encodeString(b *funbit.Builder, s string) {
	funbit.AddInteger(b, len(s), funbit.WithSize(16))
	funbit.AddBinary(b, []byte(s))
}

func (f *Fingerprinter) encodeFunc(b *funbit.Builder, id FuncID, depth int) error {
	in := f.in
	fn := in.funcShape(id)
	flags := 0
	if fn.Constructor {
		flags |= 1
	}
	if fn.Method {
		flags |= 2
	}
	funbit.AddInteger(b, flags, funbit.WithSize(8))
	funbit.AddInteger(b, len(fn.Params), funbit.WithSize(8))
	for _, p := range fn.Params {
		pf := 0
		if p.Optional {
			pf |= 1
		}
		if p.Rest {
			pf |= 2
		}
		funbit.AddInteger(b, pf, funbit.WithSize(8))
		if err := f.encode(b, p.Type, depth+1); err != nil {
			return err
		}
	}
	return f.encode(b, fn.Return, depth+1)
}

func propertyBits(p Property) int {
	flags := 0
	if p.Optional {
		flags |= 1
	}
	if p.Readonly {
		flags |= 2
	}
	if p.Method {
		flags |= 4
	}
	return flags
}
