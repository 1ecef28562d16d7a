// Package remote resolves type definitions over gRPC. A solver using a
// Registry sees remote definitions as ordinary lazy references: unknown
// names parse into placeholder definitions, and the first force fetches
// the body from a resolver service, compiles it, and caches it in the
// local store. The wire schema is parsed dynamically at startup, so no
// generated stubs are involved.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// protoSource is the deft.v1.Resolver schema. proto/resolver.proto at
// the repository root carries the same contract for foreign
// implementations.
const protoSource = `syntax = "proto3";

package deft.v1;

service Resolver {
  rpc Resolve(ResolveRequest) returns (ResolveResponse);
}

message ResolveRequest {
  string name = 1;
}

message ResolveResponse {
  bool found = 1;
  string kind = 2;
  string params = 3;
  string type = 4;
}
`

const (
	serviceName = "deft.v1.Resolver"
	methodPath  = "/deft.v1.Resolver/Resolve"
)

// DefaultTimeout bounds one resolution round trip.
const DefaultTimeout = 5 * time.Second

// Def is one definition as it travels over the wire: the declaration
// split into kind, type parameter list and body expression.
type Def struct {
	Kind   string
	Params string
	Type   string
}

// loadMethod parses the wire schema and returns the Resolve method
// descriptor.
func loadMethod() (*desc.MethodDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			"resolver.proto": protoSource,
		}),
	}
	fds, err := parser.ParseFiles("resolver.proto")
	if err != nil {
		return nil, fmt.Errorf("failed to parse wire schema: %w", err)
	}
	for _, fd := range fds {
		if svc := fd.FindService(serviceName); svc != nil {
			if md := svc.FindMethodByName("Resolve"); md != nil {
				return md, nil
			}
		}
	}
	return nil, fmt.Errorf("wire schema lacks %s/Resolve", serviceName)
}

// Client calls a resolver service.
type Client struct {
	conn    *grpc.ClientConn
	method  *desc.MethodDescriptor
	timeout time.Duration
}

// Dial connects to a resolver service. The connection is lazy; an
// unreachable target surfaces on the first call.
func Dial(target string) (*Client, error) {
	md, err := loadMethod()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &Client{conn: conn, method: md, timeout: DefaultTimeout}, nil
}

// SetTimeout overrides the per-call deadline.
func (c *Client) SetTimeout(d time.Duration) { c.timeout = d }

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Resolve asks the service for a definition. found is false when the
// server does not know the name; an error means the call itself failed.
func (c *Client) Resolve(ctx context.Context, name string) (Def, bool, error) {
	req := dynamic.NewMessage(c.method.GetInputType())
	if err := req.TrySetFieldByName("name", name); err != nil {
		return Def{}, false, fmt.Errorf("failed to build request: %w", err)
	}
	resp := dynamic.NewMessage(c.method.GetOutputType())

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.conn.Invoke(ctx, methodPath, req, resp); err != nil {
		return Def{}, false, fmt.Errorf("resolve %s: %w", name, err)
	}

	if !getBool(resp, "found") {
		return Def{}, false, nil
	}
	return Def{
		Kind:   getString(resp, "kind"),
		Params: getString(resp, "params"),
		Type:   getString(resp, "type"),
	}, true, nil
}

func getBool(msg *dynamic.Message, name string) bool {
	v, _ := msg.TryGetFieldByName(name)
	b, _ := v.(bool)
	return b
}

func getString(msg *dynamic.Message, name string) string {
	v, _ := msg.TryGetFieldByName(name)
	s, _ := v.(string)
	return s
}
