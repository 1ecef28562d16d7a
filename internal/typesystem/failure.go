package typesystem

import (
	"fmt"
	"strings"
)

// FailureCode says which compatibility rule rejected an assignment.
type FailureCode uint8

const (
	FailNone FailureCode = iota
	FailTypeMismatch
	FailIntrinsicMismatch
	FailLiteralMismatch
	FailMissingProperty
	FailPropertyTypeMismatch
	FailOptionalPropertyRequired
	FailReadonlyPropertyMismatch
	FailExcessProperty
	FailWeakTypeNoOverlap
	FailReturnTypeMismatch
	FailParameterTypeMismatch
	FailTooManyParameters
	FailTupleLengthMismatch
	FailTupleElementMismatch
	FailArrayElementMismatch
	FailIndexSignatureMismatch
	FailNoUnionMemberMatches
	FailIntersectionMemberFails
	FailDepthExceeded
)

// Failure is a structured explanation of why source was not assignable to
// target. It stays structured all the way to the diagnostic layer; nothing
// in the solver renders strings during checking, so a failure that ends up
// inside a cache or a discarded branch costs no formatting work.
type Failure struct {
	Code   FailureCode
	Source TypeID
	Target TypeID

	// Property names the offending property or index-signature key when
	// the code concerns one.
	Property StringID

	// Index is the offending position for tuple-element and parameter
	// codes; Count carries the expected length for length mismatches.
	Index int
	Count int

	// Nested is the underlying failure, when one exists.
	Nested *Failure
}

func failure(code FailureCode, source, target TypeID) *Failure {
	return &Failure{Code: code, Source: source, Target: target}
}

// Describe renders the failure chain as diagnostic lines, outermost first,
// using namer for definition names. Formatting happens here and nowhere
// earlier.
func (f *Failure) Describe(in *Interner, namer DefNamer) []string {
	var lines []string
	for cur := f; cur != nil; cur = cur.Nested {
		lines = append(lines, cur.describeOne(in, namer))
	}
	return lines
}

// Format renders the chain with two-space indentation per nesting level.
func (f *Failure) Format(in *Interner, namer DefNamer) string {
	lines := f.Describe(in, namer)
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat("  ", i))
		sb.WriteString(line)
	}
	return sb.String()
}

func (f *Failure) describeOne(in *Interner, namer DefNamer) string {
	src := in.SprintWith(namer, f.Source)
	tgt := in.SprintWith(namer, f.Target)
	prop := func() string { return in.StringOf(f.Property) }
	switch f.Code {
	case FailMissingProperty:
		return fmt.Sprintf("Property '%s' is missing in type '%s' but required in type '%s'.", prop(), src, tgt)
	case FailPropertyTypeMismatch:
		return fmt.Sprintf("Types of property '%s' are incompatible.", prop())
	case FailOptionalPropertyRequired:
		return fmt.Sprintf("Property '%s' is optional in type '%s' but required in type '%s'.", prop(), src, tgt)
	case FailReadonlyPropertyMismatch:
		return fmt.Sprintf("Cannot assign to '%s' because it is a read-only property.", prop())
	case FailExcessProperty:
		return fmt.Sprintf("Object literal may only specify known properties, and '%s' does not exist in type '%s'.", prop(), tgt)
	case FailWeakTypeNoOverlap:
		return fmt.Sprintf("Type '%s' has no properties in common with type '%s'.", src, tgt)
	case FailReturnTypeMismatch:
		return fmt.Sprintf("The return types '%s' and '%s' are incompatible.", src, tgt)
	case FailParameterTypeMismatch:
		return fmt.Sprintf("Types of parameters at position %d are incompatible.", f.Index)
	case FailTooManyParameters:
		return fmt.Sprintf("Target signature provides too few arguments. Expected %d or more, but got %d.", f.Index, f.Count)
	case FailTupleLengthMismatch:
		return fmt.Sprintf("Source has %d element(s) but target requires %d.", f.Index, f.Count)
	case FailTupleElementMismatch:
		return fmt.Sprintf("Type at position %d in source is not compatible with type at position %d in target.", f.Index, f.Index)
	case FailArrayElementMismatch:
		return fmt.Sprintf("Type '%s' is not assignable to type '%s'.", src, tgt)
	case FailIndexSignatureMismatch:
		return fmt.Sprintf("'%s' index signatures are incompatible.", prop())
	case FailDepthExceeded:
		return fmt.Sprintf("Excessive stack depth comparing types '%s' and '%s'.", src, tgt)
	case FailIntersectionMemberFails, FailNoUnionMemberMatches, FailTypeMismatch,
		FailIntrinsicMismatch, FailLiteralMismatch:
		return fmt.Sprintf("Type '%s' is not assignable to type '%s'.", src, tgt)
	default:
		return fmt.Sprintf("Type '%s' is not assignable to type '%s'.", src, tgt)
	}
}
