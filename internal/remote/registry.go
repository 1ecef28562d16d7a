package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/funvibe/deft/internal/typeexpr"
	"github.com/funvibe/deft/internal/typesystem"
)

// UnknownDefError reports a name neither the local store nor the
// resolver service knows. Callers branch on it to tell a missing
// definition from a failing transport.
type UnknownDefError struct {
	Def  typesystem.DefID
	Name string
}

func (e *UnknownDefError) Error() string {
	return fmt.Sprintf("no definition for %q", e.Name)
}

// Registry layers a resolver service over a local definition store. The
// parser's name lookup hands out a placeholder definition the first time
// an unknown name is mentioned, and forcing the placeholder fetches,
// compiles and caches its body. A miss, a transport failure or an
// uncompilable body marks the definition failed for the rest of the
// session, so evaluation settles on the error type instead of retrying.
type Registry struct {
	client *Client
	in     *typesystem.Interner
	defs   *typesystem.DefStore

	mu      sync.Mutex
	pending map[typesystem.DefID]string
	failed  map[typesystem.DefID]error
}

// NewRegistry builds a registry over a store and a client.
func NewRegistry(in *typesystem.Interner, defs *typesystem.DefStore, client *Client) *Registry {
	return &Registry{
		client:  client,
		in:      in,
		defs:    defs,
		pending: map[typesystem.DefID]string{},
		failed:  map[typesystem.DefID]error{},
	}
}

// Lookup resolves a name to a lazy reference, allocating a placeholder
// for names the local store has not seen. It satisfies typeexpr.Lookup,
// so every identifier parses; whether it resolves is decided at force
// time.
func (r *Registry) Lookup(name string) (typesystem.TypeID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.defs.Lookup(name); ok {
		return r.in.Lazy(id), true
	}
	id := r.defs.AddTypeAlias(name, nil, typesystem.NoType)
	r.pending[id] = name
	return r.in.Lazy(id), true
}

// Resolve implements typesystem.Resolver. Placeholders are fetched on
// first force; later forces serve the cached body.
func (r *Registry) Resolve(def typesystem.DefID) (typesystem.TypeID, bool) {
	if !r.force(def) {
		return typesystem.NoType, false
	}
	return r.defs.Resolve(def)
}

// TypeParams implements typesystem.GenericResolver.
func (r *Registry) TypeParams(def typesystem.DefID) []typesystem.TypeParamInfo {
	r.force(def)
	return r.defs.TypeParams(def)
}

// Err reports why a definition failed to resolve, or nil.
func (r *Registry) Err(def typesystem.DefID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[def]
}

// force materializes a definition's body. It reports false for unknown
// names, failed calls and uncompilable bodies.
func (r *Registry) force(def typesystem.DefID) bool {
	r.mu.Lock()
	if r.failed[def] != nil {
		r.mu.Unlock()
		return false
	}
	name, isPending := r.pending[def]
	r.mu.Unlock()

	if !isPending {
		_, ok := r.defs.Resolve(def)
		return ok
	}

	served, found, err := r.client.Resolve(context.Background(), name)
	if err != nil {
		r.fail(def, err)
		return false
	}
	if !found {
		r.fail(def, &UnknownDefError{Def: def, Name: name})
		return false
	}
	if err := r.compile(def, served); err != nil {
		r.fail(def, fmt.Errorf("definition %q: %w", name, err))
		return false
	}

	r.mu.Lock()
	delete(r.pending, def)
	r.mu.Unlock()
	return true
}

// compile turns a served definition into an interned body. The lookup
// routes back through the registry, so bodies may reference further
// remote names, including their own.
func (r *Registry) compile(def typesystem.DefID, served Def) error {
	var params []typesystem.TypeParamInfo
	if served.Params != "" {
		var err error
		params, err = typeexpr.ParseTypeParams(served.Params, r.in, r.Lookup)
		if err != nil {
			return err
		}
		r.defs.SetParams(def, params)
	}
	body, err := typeexpr.Parse(served.Type, r.in, typeexpr.ParamLookup(r.in, params, r.Lookup))
	if err != nil {
		return err
	}
	r.defs.SetBody(def, body)
	return nil
}

func (r *Registry) fail(def typesystem.DefID, err error) {
	r.mu.Lock()
	r.failed[def] = err
	delete(r.pending, def)
	r.mu.Unlock()
}
