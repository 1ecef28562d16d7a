package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/funvibe/deft/internal/config"
	"github.com/funvibe/deft/internal/fixtures"
	"github.com/funvibe/deft/internal/remote"
	"github.com/funvibe/deft/internal/typesystem"
)

func runServe(args []string) int {
	listen := config.DefaultListenAddr
	var paths []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--listen":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "deft serve: --listen requires an address")
				return 2
			}
			listen = args[i+1]
			i++
		default:
			paths = append(paths, args[i])
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "deft serve: no fixture paths given")
		return 2
	}

	source, err := loadSource(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft serve: %s\n", err)
		return 1
	}

	srv, err := remote.NewServer(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft serve: %s\n", err)
		return 1
	}
	lis, err := net.Listen("tcp", listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft serve: %s\n", err)
		return 1
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		srv.Stop()
	}()

	fmt.Printf("serving %d definitions on %s\n", len(source), lis.Addr())
	if err := srv.Serve(lis); err != nil {
		fmt.Fprintf(os.Stderr, "deft serve: %s\n", err)
		return 1
	}
	return 0
}

// loadSource flattens fixture definitions into one served namespace.
// The merged set compiles as a whole first, so a served definition can
// never fail on the client for a reason the server could have caught.
func loadSource(paths []string) (remote.MapSource, error) {
	fs, err := fixtures.LoadAll(paths)
	if err != nil {
		return nil, err
	}

	source := remote.MapSource{}
	merged := &fixtures.Fixture{Name: "serve"}
	for _, f := range fs {
		for _, d := range f.Defs {
			if _, dup := source[d.Name]; dup {
				return nil, fmt.Errorf("definition %q served by more than one fixture", d.Name)
			}
			kind := d.Kind
			if kind == "" {
				kind = "alias"
			}
			source[d.Name] = remote.Def{Kind: kind, Params: d.Params, Type: d.Type}
			merged.Defs = append(merged.Defs, d)
		}
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("no definitions to serve")
	}

	in := typesystem.NewInterner()
	defs := typesystem.NewDefStore(in)
	if err := fixtures.RegisterDefs(in, defs, merged); err != nil {
		return nil, err
	}
	return source, nil
}
