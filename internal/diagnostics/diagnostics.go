// Package diagnostics renders the solver's structured results into the
// fixed diagnostic surface: numeric codes and bit-exact message strings.
// The solver itself never formats anything; every string a user sees is
// produced here.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/funvibe/deft/internal/typesystem"
)

// Diagnostic is one rendered finding. Related carries the nested
// explanation chain, outermost cause first.
type Diagnostic struct {
	Code    Code
	Message string
	Related []Diagnostic
}

// String renders the diagnostic in the reporting format: the code and
// message on the first line, related information indented beneath it.
func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "error %d: %s", d.Code, d.Message)
	writeRelated(&sb, d.Related, 1)
	return sb.String()
}

func writeRelated(sb *strings.Builder, related []Diagnostic, depth int) {
	for _, r := range related {
		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(r.Message)
		writeRelated(sb, r.Related, depth+1)
	}
}

// Formatter renders types and failures through one interner and one
// namer, so messages print declared definition names.
type Formatter struct {
	in    *typesystem.Interner
	namer typesystem.DefNamer
}

// NewFormatter builds a formatter. namer may be nil.
func NewFormatter(in *typesystem.Interner, namer typesystem.DefNamer) *Formatter {
	return &Formatter{in: in, namer: namer}
}

func (f *Formatter) sprint(id typesystem.TypeID) string {
	return f.in.SprintWith(f.namer, id)
}

// Assignment renders a failed assignability check. The outermost failure
// picks the code; the rest of the chain nests as related information.
func (f *Formatter) Assignment(fail *typesystem.Failure) Diagnostic {
	if fail == nil {
		return Diagnostic{}
	}
	d := Diagnostic{Code: CodeFor(fail), Message: fail.Describe(f.in, f.namer)[0]}
	for cur := fail.Nested; cur != nil; cur = cur.Nested {
		d.Related = append(d.Related, Diagnostic{
			Code:    CodeFor(cur),
			Message: cur.Describe(f.in, f.namer)[0],
		})
	}
	return d
}

// Argument renders a failed call-argument check: the argument wrapper
// line, then the assignment chain as related information.
func (f *Formatter) Argument(source, target typesystem.TypeID, fail *typesystem.Failure) Diagnostic {
	d := Diagnostic{
		Code: CodeArgumentNotAssignable,
		Message: fmt.Sprintf("Argument of type '%s' is not assignable to parameter of type '%s'.",
			f.sprint(source), f.sprint(target)),
	}
	if fail != nil {
		d.Related = append(d.Related, f.Assignment(fail))
	}
	return d
}

// MissingProperties renders the aggregate form used when several
// required properties are absent at once.
func (f *Formatter) MissingProperties(source, target typesystem.TypeID, names []string) Diagnostic {
	return Diagnostic{
		Code: CodePropertiesMissing,
		Message: fmt.Sprintf("Type '%s' is missing the following properties from type '%s': %s",
			f.sprint(source), f.sprint(target), strings.Join(names, ", ")),
	}
}

// Property renders a property-access outcome that is worth reporting.
// candidates feeds the did-you-mean suggestion for misses; pass the
// receiver's member names. Successful accesses return ok=false.
func (f *Formatter) Property(receiver typesystem.TypeID, name string, r typesystem.PropertyResult, candidates []string) (Diagnostic, bool) {
	switch r.Access {
	case typesystem.PropertyNotFound:
		if hint, ok := Suggest(name, candidates); ok {
			return Diagnostic{
				Code: CodePropertySuggestion,
				Message: fmt.Sprintf("Property '%s' does not exist on type '%s'. Did you mean '%s'?",
					name, f.sprint(receiver), hint),
			}, true
		}
		return Diagnostic{
			Code:    CodePropertyNotFound,
			Message: fmt.Sprintf("Property '%s' does not exist on type '%s'.", name, f.sprint(receiver)),
		}, true
	case typesystem.PropertyOnNullish:
		if receiver == typesystem.NullType {
			return Diagnostic{Code: CodePossiblyNull, Message: "Object is possibly 'null'."}, true
		}
		return Diagnostic{Code: CodePossiblyUndefined, Message: "Object is possibly 'undefined'."}, true
	case typesystem.PropertyOnUnknown:
		return Diagnostic{Code: CodeObjectUnknown, Message: "Object is of type 'unknown'."}, true
	}
	return Diagnostic{}, false
}

// Comparison renders the no-overlap verdict for an equality check.
func (f *Formatter) Comparison(a, b typesystem.TypeID) Diagnostic {
	return Diagnostic{
		Code: CodeComparisonNoOverlap,
		Message: fmt.Sprintf("This comparison appears to be unintentional because the types '%s' and '%s' have no overlap.",
			f.sprint(a), f.sprint(b)),
	}
}

// Suggest picks the closest candidate within an edit distance the name's
// length can plausibly explain as a typo.
func Suggest(name string, candidates []string) (string, bool) {
	best := ""
	bestDist := len(name)/3 + 1
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := editDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
