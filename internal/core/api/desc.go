package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Service descriptor for spelfilter.v1.FilterService.
 *
 * Every method is unary and takes and returns a google.protobuf.Struct, so
 * the service needs no generated code: the descriptor below is what
 * protoc-gen-go-grpc would emit for
 *
 *   service FilterService {
 *     rpc Check(google.protobuf.Struct) returns (google.protobuf.Struct);
 *     ...
 *   }
 *
 * Request and response fields are documented on each handler.
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "spelfilter.v1.FilterService"

// Method names.
const (
	MethodCheck        = "Check"
	MethodFilter       = "Filter"
	MethodSaveFilter   = "SaveFilter"
	MethodListFilters  = "ListFilters"
	MethodRunFilter    = "RunFilter"
	MethodDeleteFilter = "DeleteFilter"
)

// FullMethod returns the /service/method path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// FilterServiceServer is the server side of FilterService.
type FilterServiceServer interface {
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Filter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFilters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(FilterServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FilterServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FilterServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FilterServiceDesc describes FilterService for grpc.Server.RegisterService.
var FilterServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FilterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodCheck, FilterServiceServer.Check),
		unaryHandler(MethodFilter, FilterServiceServer.Filter),
		unaryHandler(MethodSaveFilter, FilterServiceServer.SaveFilter),
		unaryHandler(MethodListFilters, FilterServiceServer.ListFilters),
		unaryHandler(MethodRunFilter, FilterServiceServer.RunFilter),
		unaryHandler(MethodDeleteFilter, FilterServiceServer.DeleteFilter),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "spelfilter/v1/filter_service.proto",
}

// RegisterFilterServiceServer registers srv on s.
func RegisterFilterServiceServer(s grpc.ServiceRegistrar, srv FilterServiceServer) {
	s.RegisterService(&FilterServiceDesc, srv)
}

// FilterServiceClient calls FilterService over a client connection.
type FilterServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewFilterServiceClient wraps cc.
func NewFilterServiceClient(cc grpc.ClientConnInterface) *FilterServiceClient {
	return &FilterServiceClient{cc: cc}
}

// Call invokes method with req.
func (c *FilterServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
