// Package rpc exposes the jet selector over gRPC.
//
// Messages are google.protobuf.Struct values carrying the same JSON shapes as
// the HTTP API, so the service needs no generated code. The wire contract is:
//
//	service jetid.v1.JetSelector {
//	  rpc Select(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Cuts(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName      = "jetid.v1.JetSelector"
	selectFullMethod = "/" + serviceName + "/Select"
	cutsFullMethod   = "/" + serviceName + "/Cuts"
)

// #region service-desc

// JetSelectorServer is the server side of jetid.v1.JetSelector.
type JetSelectorServer interface {
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cuts(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes jetid.v1.JetSelector for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*JetSelectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Select", Handler: selectHandler},
		{MethodName: "Cuts", Handler: cutsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jetid/v1/jetid.proto",
}

func selectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JetSelectorServer).Select(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: selectFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JetSelectorServer).Select(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func cutsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JetSelectorServer).Cuts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: cutsFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JetSelectorServer).Cuts(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
