// Package mutator perturbs type notation at the source level. Interned
// types are immutable, so mutation happens on text before parsing: small
// local edits that usually keep the input near the grammar, where parser
// error paths live.
package mutator

import (
	"math/rand"
	"strings"
)

// Mutator applies random edits to type notation.
type Mutator struct {
	rnd *rand.Rand
}

// New creates a Mutator with the given seed.
func New(seed int64) *Mutator {
	return &Mutator{rnd: rand.New(rand.NewSource(seed))}
}

var keywordSwaps = [][2]string{
	{"string", "number"},
	{"boolean", "symbol"},
	{"any", "unknown"},
	{"never", "void"},
	{"keyof", "readonly"},
	{"extends", "in"},
	{"infer", "typeof"},
	{"null", "undefined"},
}

var structural = []byte{'|', '&', '?', ':', ';', ',', '<', '>', '[', ']', '{', '}', '(', ')', '.', '`'}

// Mutate returns src with one to three random edits applied. The result
// may or may not parse; callers only assert that handling it never
// panics.
func (m *Mutator) Mutate(src string) string {
	edits := m.rnd.Intn(3) + 1
	for i := 0; i < edits; i++ {
		src = m.mutateOnce(src)
	}
	return src
}

func (m *Mutator) mutateOnce(src string) string {
	if len(src) == 0 {
		return string(structural[m.rnd.Intn(len(structural))])
	}
	switch m.rnd.Intn(6) {
	case 0:
		return m.swapKeyword(src)
	case 1:
		// Flip a union into an intersection or back.
		if i := m.findByte(src, '|'); i >= 0 {
			return src[:i] + "&" + src[i+1:]
		}
		if i := m.findByte(src, '&'); i >= 0 {
			return src[:i] + "|" + src[i+1:]
		}
		return m.insertByte(src)
	case 2:
		i := m.rnd.Intn(len(src))
		return src[:i] + src[i+1:]
	case 3:
		i := m.rnd.Intn(len(src))
		return src[:i] + string(src[i]) + src[i:]
	case 4:
		return m.insertByte(src)
	default:
		// Toggle an optional marker next to a member name.
		if i := m.findByte(src, '?'); i >= 0 {
			return src[:i] + src[i+1:]
		}
		if i := m.findByte(src, ':'); i >= 0 {
			return src[:i] + "?" + src[i:]
		}
		return m.insertByte(src)
	}
}

func (m *Mutator) swapKeyword(src string) string {
	order := m.rnd.Perm(len(keywordSwaps))
	for _, idx := range order {
		pair := keywordSwaps[idx]
		from, to := pair[0], pair[1]
		if m.rnd.Intn(2) == 0 {
			from, to = to, from
		}
		if i := strings.Index(src, from); i >= 0 {
			return src[:i] + to + src[i+len(from):]
		}
	}
	return m.insertByte(src)
}

func (m *Mutator) insertByte(src string) string {
	i := m.rnd.Intn(len(src) + 1)
	return src[:i] + string(structural[m.rnd.Intn(len(structural))]) + src[i:]
}

func (m *Mutator) findByte(src string, b byte) int {
	var idxs []int
	for i := 0; i < len(src); i++ {
		if src[i] == b {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return -1
	}
	return idxs[m.rnd.Intn(len(idxs))]
}
