package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/jetid/internal/cutflow"
	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/runner"
)

// #region types

// JetDecision is one jet of a Select response as seen by a client.
type JetDecision struct {
	Index      int             `json:"index"`
	Passed     bool            `json:"passed"`
	Cuts       map[string]bool `json:"cuts"`
	FailedCuts []string        `json:"failed_cuts,omitempty"`
}

// SelectResponse is the decoded Select response.
type SelectResponse struct {
	RunID    string        `json:"run_id,omitempty"`
	Jets     []JetDecision `json:"jets"`
	Selected int           `json:"selected"`
	Cutflow  []cutflow.Row `json:"cutflow"`
}

// #endregion types

// #region client-struct

// Client wraps the gRPC connection to a jetid server.
type Client struct {
	conn *grpc.ClientConn
}

// #endregion client-struct

// #region constructor

// NewClient connects to addr without transport security. Extra options are
// appended, so tests can swap the dialer.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// #endregion constructor

// #region select

// Select sends jets for evaluation.
func (c *Client) Select(ctx context.Context, jets []jetid.Candidate) (SelectResponse, error) {
	in, err := toStruct(runner.SelectRequest{Jets: jets})
	if err != nil {
		return SelectResponse{}, fmt.Errorf("encode select: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, selectFullMethod, in, out); err != nil {
		return SelectResponse{}, fmt.Errorf("select rpc: %w", err)
	}
	var resp SelectResponse
	if err := fromStruct(out, &resp); err != nil {
		return SelectResponse{}, fmt.Errorf("decode select: %w", err)
	}
	return resp, nil
}

// #endregion select

// #region cuts

// Cuts fetches the server's cut configuration.
func (c *Client) Cuts(ctx context.Context) (runner.CutsResponse, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, cutsFullMethod, &emptypb.Empty{}, out); err != nil {
		return runner.CutsResponse{}, fmt.Errorf("cuts rpc: %w", err)
	}
	var resp runner.CutsResponse
	if err := fromStruct(out, &resp); err != nil {
		return runner.CutsResponse{}, fmt.Errorf("decode cuts: %w", err)
	}
	return resp, nil
}

// #endregion cuts
