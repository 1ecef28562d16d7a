package diagnostics

import "github.com/funvibe/deft/internal/typesystem"

// Code is a fixed numeric diagnostic code. The numbers are part of the
// compatibility surface: tooling keys on them, so they never change
// meaning or get reused.
type Code int

const (
	CodeNotAssignable         Code = 2322
	CodePropertyNotFound      Code = 2339
	CodeArgumentNotAssignable Code = 2345
	CodeExcessProperty        Code = 2353
	CodeComparisonNoOverlap   Code = 2367
	CodePossiblyNull          Code = 2531
	CodePossiblyUndefined     Code = 2532
	CodeReadonlyAssignment    Code = 2540
	CodePropertySuggestion    Code = 2551
	CodeObjectUnknown         Code = 2571
	CodeExcessivelyDeep       Code = 2589
	CodePropertiesMissing     Code = 2739
	CodeWeakType              Code = 2740
	CodePropertyMissing       Code = 2741
)

// CodeFor maps a structured compatibility failure to its diagnostic
// code. Only the outermost failure picks the code; nested entries
// become related information.
func CodeFor(f *typesystem.Failure) Code {
	if f == nil {
		return CodeNotAssignable
	}
	switch f.Code {
	case typesystem.FailDepthExceeded:
		return CodeExcessivelyDeep
	case typesystem.FailMissingProperty:
		return CodePropertyMissing
	case typesystem.FailWeakTypeNoOverlap:
		return CodeWeakType
	case typesystem.FailExcessProperty:
		return CodeExcessProperty
	case typesystem.FailReadonlyPropertyMismatch:
		return CodeReadonlyAssignment
	default:
		return CodeNotAssignable
	}
}
