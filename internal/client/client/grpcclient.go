package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service implementing the remote
// contract. Every method takes and returns a google.protobuf.Struct shaped
// like the JSON bodies of the HTTP contract.
const ServiceName = "sessionkeeper.auth.v1.AuthService"

const (
	MethodRegister = "Register"
	MethodLogin    = "Login"
	MethodVerify   = "Verify"
	MethodProfile  = "Profile"
	MethodLogout   = "Logout"
)

type GRPCClient struct {
	conn *grpc.ClientConn
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient creates a lazily connecting client for target. Extra dial
// options are appended after the defaults (insecure transport, request id
// interceptor) and may override them.
func NewGRPCClient(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(requestIDInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func requestIDInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx = metadata.AppendToOutgoingContext(ctx, strings.ToLower(common.RequestIDHeaderName), uuid.NewString())
	return invoker(ctx, method, req, reply, cc, opts...)
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	key := strings.ToLower(common.AuthorizationHeaderName)
	md.Set(key, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) Register(ctx context.Context, username string, password string) (*Reply, error) {
	return c.call(ctx, MethodRegister, "", map[string]any{"username": username, "password": password})
}

func (c *GRPCClient) Login(ctx context.Context, username string, password string) (*Reply, error) {
	return c.call(ctx, MethodLogin, "", map[string]any{"username": username, "password": password})
}

func (c *GRPCClient) Verify(ctx context.Context, token string) (*Reply, error) {
	return c.call(ctx, MethodVerify, token, nil)
}

func (c *GRPCClient) Profile(ctx context.Context, token string) (*Reply, error) {
	return c.call(ctx, MethodProfile, token, nil)
}

func (c *GRPCClient) Logout(ctx context.Context, token string) (*Reply, error) {
	return c.call(ctx, MethodLogout, token, nil)
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) call(ctx context.Context, method, token string, fields map[string]any) (*Reply, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if token != "" {
		ctx = withBearer(ctx, token)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return c.mapError(method, err)
	}

	body, err := protojson.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode %s reply: %w", method, err)
	}
	return &Reply{StatusCode: http.StatusOK, Body: body}, nil
}

// mapError turns a gRPC status into either a transport error or a Reply
// carrying the equivalent HTTP status and the status message.
func (c *GRPCClient) mapError(method string, err error) (*Reply, error) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, unavailable(method, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return nil, unavailable(method, err)
	}

	body, _ := json.Marshal(map[string]any{"success": false, "message": st.Message()})
	return &Reply{StatusCode: httpStatusFromCode(st.Code()), Body: body}, nil
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
