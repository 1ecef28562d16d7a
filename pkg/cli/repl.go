package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/funvibe/deft/internal/config"
	"github.com/funvibe/deft/internal/fixtures"
	"github.com/funvibe/deft/internal/remote"
	"github.com/funvibe/deft/internal/typesystem"
	"github.com/funvibe/deft/pkg/solver"
)

const replHelp = `A bare type expression parses and prints canonically.

  A <: B                check assignability
  explain A <: B        show the diagnostic for A <: B
  eval T                force a deferred type
  T :: GUARD            narrow T by a guard
  type Name<Ps> = Body  define a named type

Guards: typeof string, instanceof Date, predicate Fish, in name,
truthy, equals "x", equals-loose null, discriminant kind = "x",
every string. A leading ! narrows the failing branch: T :: !typeof string.

  :config  show the strictness in effect
  :load F  load definitions from a fixture file or archive
  :stats   show epoch size
  :reset   discard the epoch, definitions included, and start fresh
  :quit    leave
`

func runREPL(args []string) int {
	var configPath, resolverAddr string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "deft repl: --config requires a path")
				return 2
			}
			configPath = args[i+1]
			i++
		case "--resolver":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "deft repl: --resolver requires an address")
				return 2
			}
			resolverAddr = args[i+1]
			i++
		default:
			fmt.Fprintf(os.Stderr, "deft repl: unexpected argument %s\n", args[i])
			return 2
		}
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft repl: %s\n", err)
		return 1
	}
	session, reg, cleanup, err := newSession(cfg, resolverAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft repl: %s\n", err)
		return 1
	}
	defer cleanup()

	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil && !config.IsTestMode {
		histPath = filepath.Join(home, config.HistoryFileName)
		if f, err := os.Open(histPath); err == nil {
			rl.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Printf("deft %s (:help for commands, :quit to leave)\n", config.Version)
	if resolverAddr != "" {
		fmt.Printf("resolving unknown names via %s\n", resolverAddr)
	}

	r := &repl{session: session, reg: reg, out: os.Stdout}
	for {
		input, err := rl.Prompt("deft> ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			fmt.Println()
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		rl.AppendHistory(input)
		if r.handle(input) {
			break
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			rl.WriteHistory(f)
			f.Close()
		}
	}
	return 0
}

// newSession opens the interactive session, wired to a resolver service
// when an address is given. The registry accessor tracks epoch swaps
// and returns nil for local sessions; the cleanup releases the remote
// connection.
func newSession(cfg *config.Config, resolverAddr string) (*solver.Session, func() *remote.Registry, func(), error) {
	if resolverAddr == "" {
		s := solver.New(cfg.Strictness.CheckConfig())
		return s, func() *remote.Registry { return nil }, func() {}, nil
	}
	client, err := remote.Dial(resolverAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	// The factory runs again on every swap; the accessor follows it.
	var reg *remote.Registry
	s := solver.NewWith(cfg.Strictness.CheckConfig(), func(in *typesystem.Interner, defs *typesystem.DefStore) solver.Wiring {
		reg = remote.NewRegistry(in, defs, client)
		return solver.Wiring{Resolver: reg, Lookup: reg.Lookup}
	})
	return s, func() *remote.Registry { return reg }, func() { client.Close() }, nil
}

type repl struct {
	session *solver.Session
	reg     func() *remote.Registry
	out     io.Writer
}

// handle executes one line and reports whether the session should end.
// Neither cut marker can occur inside a type expression, so splitting
// before parsing is safe.
func (r *repl) handle(input string) bool {
	line := strings.TrimSpace(input)
	switch {
	case line == "":
	case strings.HasPrefix(line, ":"):
		return r.command(line)
	case strings.HasPrefix(line, "type "):
		r.define(strings.TrimPrefix(line, "type "))
	case strings.HasPrefix(line, "explain "):
		r.explain(strings.TrimPrefix(line, "explain "))
	case strings.Contains(line, "<:"):
		src, tgt, _ := strings.Cut(line, "<:")
		r.assignable(src, tgt)
	case strings.Contains(line, "::"):
		subject, guard, _ := strings.Cut(line, "::")
		r.narrow(subject, guard)
	case strings.HasPrefix(line, "eval "):
		r.eval(strings.TrimPrefix(line, "eval "))
	default:
		r.print(line)
	}
	return false
}

func (r *repl) command(line string) bool {
	switch {
	case line == ":quit" || line == ":exit":
		return true
	case line == ":help":
		fmt.Fprint(r.out, replHelp)
	case line == ":config":
		c := r.session.Config()
		fmt.Fprintf(r.out, "strict_null_checks: %v\n", c.StrictNullChecks)
		fmt.Fprintf(r.out, "strict_function_types: %v\n", c.StrictFunctionTypes)
		fmt.Fprintf(r.out, "exact_optional_property_types: %v\n", c.ExactOptionalPropertyTypes)
		fmt.Fprintf(r.out, "no_unchecked_indexed_access: %v\n", c.NoUncheckedIndexedAccess)
	case line == ":stats":
		fmt.Fprintln(r.out, r.session.Checkpoint())
	case line == ":reset":
		fmt.Fprintf(r.out, "fresh epoch %s\n", r.session.Swap())
	case line == ":load" || strings.HasPrefix(line, ":load "):
		r.load(strings.TrimSpace(strings.TrimPrefix(line, ":load")))
	default:
		r.errorf("unknown command %s, :help lists commands", line)
	}
	return false
}

// load registers every definition of a fixture file into the session.
// Two passes, so definitions can reference each other regardless of
// declaration order.
func (r *repl) load(path string) {
	if path == "" {
		r.errorf("usage: :load FILE")
		return
	}
	fs, err := fixtures.LoadPath(path)
	if err != nil {
		r.errorf("%s", err)
		return
	}
	for _, f := range fs {
		for _, d := range f.Defs {
			if err := r.session.Define(d.Name, "", "unknown"); err != nil {
				r.errorf("def %s: %s", d.Name, err)
				return
			}
		}
	}
	count := 0
	for _, f := range fs {
		for _, d := range f.Defs {
			if err := r.session.Define(d.Name, d.Params, d.Type); err != nil {
				r.errorf("def %s: %s", d.Name, err)
				return
			}
			count++
		}
	}
	fmt.Fprintf(r.out, "loaded %d definitions\n", count)
}

func (r *repl) define(rest string) {
	name, params, body, err := splitDefine(rest)
	if err != nil {
		r.errorf("%s", err)
		return
	}
	if err := r.session.Define(name, params, body); err != nil {
		r.errorf("%s", err)
		return
	}
	id, ok := r.session.Defs().Lookup(name)
	if !ok {
		return
	}
	d, ok := r.session.Defs().Definition(id)
	if !ok {
		return
	}
	ps := paramsString(r.session.Interner(), r.session.Sprint, d.TypeParams)
	if ps != "" {
		ps = "<" + ps + ">"
	}
	fmt.Fprintf(r.out, "type %s%s = %s\n", name, ps, r.session.Sprint(d.Body))
}

func (r *repl) explain(rest string) {
	srcText, tgtText, found := strings.Cut(rest, "<:")
	if !found {
		r.errorf("explain wants `explain A <: B`")
		return
	}
	src, err := r.session.Parse(strings.TrimSpace(srcText))
	if err != nil {
		r.errorf("source: %s", err)
		return
	}
	tgt, err := r.session.Parse(strings.TrimSpace(tgtText))
	if err != nil {
		r.errorf("target: %s", err)
		return
	}
	fail := r.session.Explain(src, tgt)
	if fail == nil {
		fmt.Fprintf(r.out, "%s, no diagnostic\n", paintGreen("assignable"))
		return
	}
	fmt.Fprintln(r.out, r.session.Formatter().Assignment(fail).String())
}

func (r *repl) assignable(srcText, tgtText string) {
	src, err := r.session.Parse(strings.TrimSpace(srcText))
	if err != nil {
		r.errorf("source: %s", err)
		return
	}
	tgt, err := r.session.Parse(strings.TrimSpace(tgtText))
	if err != nil {
		r.errorf("target: %s", err)
		return
	}
	if r.session.IsAssignable(src, tgt) {
		fmt.Fprintln(r.out, paintGreen("true"))
	} else {
		fmt.Fprintln(r.out, paintRed("false"))
	}
}

func (r *repl) narrow(subjectText, guardText string) {
	subject, err := r.session.Parse(strings.TrimSpace(subjectText))
	if err != nil {
		r.errorf("subject: %s", err)
		return
	}
	spec, err := parseGuard(guardText)
	if err != nil {
		r.errorf("%s", err)
		return
	}
	g, err := spec.Guard(r.session.Parse)
	if err != nil {
		r.errorf("%s", err)
		return
	}
	fmt.Fprintln(r.out, r.session.Sprint(r.session.Narrow(subject, g)))
}

func (r *repl) eval(rest string) {
	id, err := r.session.Parse(strings.TrimSpace(rest))
	if err != nil {
		r.errorf("%s", err)
		return
	}
	forced := r.session.Evaluate(id)
	fmt.Fprintln(r.out, r.session.Sprint(forced))
	if forced == typesystem.ErrorType {
		r.noteResolutionFailures(id)
	}
}

// noteResolutionFailures names the remote definitions inside t that
// failed to resolve, so an error result is traceable to its cause.
func (r *repl) noteResolutionFailures(t typesystem.TypeID) {
	if r.reg == nil {
		return
	}
	reg := r.reg()
	if reg == nil {
		return
	}
	in := r.session.Interner()
	seen := map[typesystem.DefID]bool{}
	in.Walk(t, func(id typesystem.TypeID) bool {
		def, ok := in.LazyDef(id)
		if !ok {
			def, ok = in.TypeQueryDef(id)
		}
		if !ok || seen[def] {
			return true
		}
		seen[def] = true
		err := reg.Err(def)
		var unknown *remote.UnknownDefError
		switch {
		case err == nil:
		case errors.As(err, &unknown):
			fmt.Fprintf(r.out, "note: %s is not defined locally or remotely\n", unknown.Name)
		default:
			fmt.Fprintf(r.out, "note: %s\n", err)
		}
		return true
	})
}

func (r *repl) print(line string) {
	id, err := r.session.Parse(line)
	if err != nil {
		r.errorf("%s", err)
		return
	}
	fmt.Fprintln(r.out, r.session.Sprint(id))
}

func (r *repl) errorf(format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n", paintRed("error:"), fmt.Sprintf(format, args...))
}

// splitDefine splits `Name<Params> = Body` into its parts. The parameter
// list is scanned with bracket depth, so defaults such as
// `T = (x: string) => void` keep their arrows.
func splitDefine(rest string) (name, params, body string, err error) {
	rest = strings.TrimSpace(rest)
	i := 0
	for i < len(rest) && rest[i] != '<' && rest[i] != '=' && rest[i] != ' ' && rest[i] != '\t' {
		i++
	}
	name = rest[:i]
	if name == "" {
		return "", "", "", fmt.Errorf("type wants `type Name<Params> = Body`")
	}
	rest = strings.TrimSpace(rest[i:])
	if strings.HasPrefix(rest, "<") {
		depth, end := 0, -1
		for j := 0; j < len(rest) && end < 0; j++ {
			switch rest[j] {
			case '<':
				depth++
			case '>':
				if rest[j-1] == '=' { // the arrow in =>, not a bracket
					continue
				}
				depth--
				if depth == 0 {
					end = j
				}
			}
		}
		if end < 0 {
			return "", "", "", fmt.Errorf("unclosed type parameter list")
		}
		params = rest[1:end]
		rest = strings.TrimSpace(rest[end+1:])
	}
	if !strings.HasPrefix(rest, "=") {
		return "", "", "", fmt.Errorf("type wants `type Name<Params> = Body`")
	}
	body = strings.TrimSpace(rest[1:])
	if body == "" {
		return "", "", "", fmt.Errorf("type %s has no body", name)
	}
	return name, params, body, nil
}

// parseGuard reads the interactive guard notation, a kind keyword and
// its operand. A leading ! narrows the failing branch.
func parseGuard(src string) (*fixtures.GuardSpec, error) {
	src = strings.TrimSpace(src)
	spec := &fixtures.GuardSpec{}
	if strings.HasPrefix(src, "!") {
		f := false
		spec.Assume = &f
		src = strings.TrimSpace(src[1:])
	}
	kind, rest, _ := strings.Cut(src, " ")
	rest = strings.TrimSpace(rest)
	spec.Kind = kind
	if rest == "" && kind != "truthy" {
		return nil, fmt.Errorf("%s guard wants an operand", kind)
	}
	switch kind {
	case "typeof":
		spec.Tag = rest
	case "instanceof", "predicate", "equals", "every":
		spec.Target = rest
	case "equals-loose":
		spec.Kind = "equals"
		spec.Loose = true
		spec.Target = rest
	case "in":
		spec.Property = rest
	case "truthy":
	case "discriminant":
		prop, val, ok := strings.Cut(rest, "=")
		if !ok {
			return nil, fmt.Errorf("discriminant guard wants `property = value`")
		}
		spec.Property = strings.TrimSpace(prop)
		spec.Target = strings.TrimSpace(val)
	default:
		return nil, fmt.Errorf("unknown guard kind %q", kind)
	}
	return spec, nil
}
