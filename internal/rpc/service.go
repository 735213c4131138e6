// Package rpc serves a decision layer over gRPC. Messages are
// google.protobuf.Struct payloads carrying the layer's JSON request and
// response shapes.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service name.
const ServiceName = "feedbacklayer.v1.FeedbackLayer"

const (
	decideMethod   = "/" + ServiceName + "/Decide"
	feedbackMethod = "/" + ServiceName + "/Feedback"
	snapshotMethod = "/" + ServiceName + "/Snapshot"
)

// FeedbackLayerServer is the server API for the FeedbackLayer service.
type FeedbackLayerServer interface {
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Feedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the FeedbackLayer service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeedbackLayerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: unary(decideMethod, FeedbackLayerServer.Decide)},
		{MethodName: "Feedback", Handler: unary(feedbackMethod, FeedbackLayerServer.Feedback)},
		{MethodName: "Snapshot", Handler: unary(snapshotMethod, FeedbackLayerServer.Snapshot)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "feedbacklayer/v1/feedbacklayer.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv FeedbackLayerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryCall func(FeedbackLayerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FeedbackLayerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FeedbackLayerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion service-desc

// #region struct-codec
// toStruct converts a JSON-tagged value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return s, nil
}

// fromStruct decodes s into v, rejecting unknown fields.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// #endregion struct-codec
