package remote

import (
	"context"
	"net"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
)

// Source supplies the definitions a server is willing to serve.
type Source interface {
	Definition(name string) (Def, bool)
}

// MapSource serves a fixed definition set.
type MapSource map[string]Def

// Definition implements Source.
func (m MapSource) Definition(name string) (Def, bool) {
	d, ok := m[name]
	return d, ok
}

// Server exposes a Source as a resolver service. The service is
// registered dynamically from the wire schema, mirroring how clients
// call it.
type Server struct {
	grpc   *grpc.Server
	source Source
}

// NewServer builds a resolver server over a source.
func NewServer(source Source) (*Server, error) {
	md, err := loadMethod()
	if err != nil {
		return nil, err
	}
	s := &Server{grpc: grpc.NewServer(), source: source}
	s.grpc.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Resolve",
			Handler: func(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				return srv.(*Server).handleResolve(md, dec)
			},
		}},
		Metadata: "resolver.proto",
	}, s)
	return s, nil
}

func (s *Server) handleResolve(md *desc.MethodDescriptor, dec func(any) error) (any, error) {
	req := dynamic.NewMessage(md.GetInputType())
	if err := dec(req); err != nil {
		return nil, err
	}
	name := getString(req, "name")

	resp := dynamic.NewMessage(md.GetOutputType())
	if d, ok := s.source.Definition(name); ok {
		resp.SetFieldByName("found", true)
		resp.SetFieldByName("kind", d.Kind)
		resp.SetFieldByName("params", d.Params)
		resp.SetFieldByName("type", d.Type)
	}
	return resp, nil
}

// Serve blocks serving connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop drains in-flight calls and shuts the server down.
func (s *Server) Stop() { s.grpc.GracefulStop() }
