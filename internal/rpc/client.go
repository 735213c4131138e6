package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
	"github.com/danielpatrickdp/feedback-layer/internal/update"
)

// #region client-struct
// Client wraps a gRPC connection to a FeedbackLayer server.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the FeedbackLayer server at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region calls
// Decide asks the server to select a mode.
func (c *Client) Decide(ctx context.Context, req layer.DecideRequest) (layer.Decision, error) {
	var d layer.Decision
	if err := c.invoke(ctx, decideMethod, req, &d); err != nil {
		return layer.Decision{}, fmt.Errorf("decide rpc: %w", err)
	}
	return d, nil
}

// Feedback applies a reward on the server.
func (c *Client) Feedback(ctx context.Context, req layer.FeedbackRequest) (update.Result, error) {
	var res update.Result
	if err := c.invoke(ctx, feedbackMethod, req, &res); err != nil {
		return update.Result{}, fmt.Errorf("feedback rpc: %w", err)
	}
	return res, nil
}

// Snapshot fetches every materialized association.
func (c *Client) Snapshot(ctx context.Context) ([]association.Entry, error) {
	var reply SnapshotReply
	if err := c.invoke(ctx, snapshotMethod, struct{}{}, &reply); err != nil {
		return nil, fmt.Errorf("snapshot rpc: %w", err)
	}
	return reply.Entries, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, resp); err != nil {
		return err
	}
	return fromStruct(resp, out)
}

// #endregion calls
