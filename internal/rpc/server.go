package rpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
)

// #region server
// Server implements FeedbackLayerServer over one shared layer.
type Server struct {
	layer *layer.Layer
}

// NewServer wraps l.
func NewServer(l *layer.Layer) *Server {
	return &Server{layer: l}
}

// SnapshotReply is the Snapshot response payload.
type SnapshotReply struct {
	Entries []association.Entry `json:"entries"`
}

// Decide selects a mode.
func (s *Server) Decide(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req layer.DecideRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	d, err := s.layer.Decide(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(d)
}

// Feedback applies a reward.
func (s *Server) Feedback(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req layer.FeedbackRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.layer.Feedback(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(res)
}

// Snapshot returns every materialized association.
func (s *Server) Snapshot(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(SnapshotReply{Entries: s.layer.Snapshot()})
}

func reply(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, layer.ErrUnknownMode),
		errors.Is(err, layer.ErrInvalidWeight),
		errors.Is(err, layer.ErrInvalidReward),
		errors.Is(err, layer.ErrInvalidLearningRate):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion server

// #region interceptor
// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

// #endregion interceptor
