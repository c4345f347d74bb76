// Package sdk provides the Connect client for the ACS tenant service. The
// front router uses it to forward calls to tenant workers; it is equally
// usable by external Go callers pointed at the router itself.
package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
)

// Client provides a typed interface to one tenant service endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string

	createUser           *connect.Client[api.CreateUserRequest, api.CreateUserResponse]
	createGroup          *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	createRole           *connect.Client[api.CreateRoleRequest, api.CreateRoleResponse]
	addUserToGroup       *connect.Client[api.MembershipRequest, api.MembershipResponse]
	removeUserFromGroup  *connect.Client[api.MembershipRequest, api.MembershipResponse]
	assignUserToRole     *connect.Client[api.MembershipRequest, api.MembershipResponse]
	unassignUserFromRole *connect.Client[api.MembershipRequest, api.MembershipResponse]
	addRoleToGroup       *connect.Client[api.MembershipRequest, api.MembershipResponse]
	removeRoleFromGroup  *connect.Client[api.MembershipRequest, api.MembershipResponse]
	addGroupToGroup      *connect.Client[api.GroupEdgeRequest, api.GroupEdgeResponse]
	removeGroupFromGroup *connect.Client[api.GroupEdgeRequest, api.GroupEdgeResponse]
	grantPermission      *connect.Client[api.PermissionRequest, api.PermissionResponse]
	denyPermission       *connect.Client[api.PermissionRequest, api.PermissionResponse]
	revokePermission     *connect.Client[api.PermissionRequest, api.PermissionResponse]
	checkPermission      *connect.Client[api.CheckPermissionRequest, api.CheckPermissionResponse]
	getUser              *connect.Client[api.GetUserRequest, api.GetUserResponse]
	getGroup             *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	getRole              *connect.Client[api.GetRoleRequest, api.GetRoleResponse]
}

// ClientOptions configures SDK client construction.
type ClientOptions struct {
	HTTPClient *http.Client

	// Headers are added to every RPC call (e.g. the tenant header when
	// talking to the front router rather than a worker directly).
	Headers map[string]string
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the HTTP client used for RPC calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithHeader adds a header to every RPC call.
func WithHeader(key, value string) ClientOption {
	return func(opts *ClientOptions) {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		opts.Headers[key] = value
	}
}

// NewClient creates a tenant service client for the given base URL. An
// http.Client is created automatically when one is not supplied.
func NewClient(baseURL string, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	connOpts := []connect.ClientOption{connect.WithCodec(api.Codec{})}
	if len(opts.Headers) > 0 {
		connOpts = append(connOpts, connect.WithInterceptors(headerInterceptor(opts.Headers)))
	}

	c := &Client{httpClient: opts.HTTPClient, baseURL: baseURL}
	c.createUser = connect.NewClient[api.CreateUserRequest, api.CreateUserResponse](opts.HTTPClient, baseURL+api.ProcedureCreateUser, connOpts...)
	c.createGroup = connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](opts.HTTPClient, baseURL+api.ProcedureCreateGroup, connOpts...)
	c.createRole = connect.NewClient[api.CreateRoleRequest, api.CreateRoleResponse](opts.HTTPClient, baseURL+api.ProcedureCreateRole, connOpts...)
	c.addUserToGroup = connect.NewClient[api.MembershipRequest, api.MembershipResponse](opts.HTTPClient, baseURL+api.ProcedureAddUserToGroup, connOpts...)
	c.removeUserFromGroup = connect.NewClient[api.MembershipRequest, api.MembershipResponse](opts.HTTPClient, baseURL+api.ProcedureRemoveUserFromGroup, connOpts...)
	c.assignUserToRole = connect.NewClient[api.MembershipRequest, api.MembershipResponse](opts.HTTPClient, baseURL+api.ProcedureAssignUserToRole, connOpts...)
	c.unassignUserFromRole = connect.NewClient[api.MembershipRequest, api.MembershipResponse](opts.HTTPClient, baseURL+api.ProcedureUnassignUserFromRole, connOpts...)
	c.addRoleToGroup = connect.NewClient[api.MembershipRequest, api.MembershipResponse](opts.HTTPClient, baseURL+api.ProcedureAddRoleToGroup, connOpts...)
	c.removeRoleFromGroup = connect.NewClient[api.MembershipRequest, api.MembershipResponse](opts.HTTPClient, baseURL+api.ProcedureRemoveRoleFromGroup, connOpts...)
	c.addGroupToGroup = connect.NewClient[api.GroupEdgeRequest, api.GroupEdgeResponse](opts.HTTPClient, baseURL+api.ProcedureAddGroupToGroup, connOpts...)
	c.removeGroupFromGroup = connect.NewClient[api.GroupEdgeRequest, api.GroupEdgeResponse](opts.HTTPClient, baseURL+api.ProcedureRemoveGroupFromGroup, connOpts...)
	c.grantPermission = connect.NewClient[api.PermissionRequest, api.PermissionResponse](opts.HTTPClient, baseURL+api.ProcedureGrantPermission, connOpts...)
	c.denyPermission = connect.NewClient[api.PermissionRequest, api.PermissionResponse](opts.HTTPClient, baseURL+api.ProcedureDenyPermission, connOpts...)
	c.revokePermission = connect.NewClient[api.PermissionRequest, api.PermissionResponse](opts.HTTPClient, baseURL+api.ProcedureRevokePermission, connOpts...)
	c.checkPermission = connect.NewClient[api.CheckPermissionRequest, api.CheckPermissionResponse](opts.HTTPClient, baseURL+api.ProcedureCheckPermission, connOpts...)
	c.getUser = connect.NewClient[api.GetUserRequest, api.GetUserResponse](opts.HTTPClient, baseURL+api.ProcedureGetUser, connOpts...)
	c.getGroup = connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](opts.HTTPClient, baseURL+api.ProcedureGetGroup, connOpts...)
	c.getRole = connect.NewClient[api.GetRoleRequest, api.GetRoleResponse](opts.HTTPClient, baseURL+api.ProcedureGetRole, connOpts...)
	return c
}

// BaseURL returns the endpoint this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// CloseIdleConnections releases pooled transport connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func headerInterceptor(headers map[string]string) connect.UnaryInterceptorFunc {
	return connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			for k, v := range headers {
				req.Header().Set(k, v)
			}
			return next(ctx, req)
		})
	})
}

func unwrap[T any](resp *connect.Response[T], err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// CreateUser creates a user in the tenant graph.
func (c *Client) CreateUser(ctx context.Context, req *api.CreateUserRequest) (*api.CreateUserResponse, error) {
	return unwrap(c.createUser.CallUnary(ctx, connect.NewRequest(req)))
}

// CreateGroup creates a group in the tenant graph.
func (c *Client) CreateGroup(ctx context.Context, req *api.CreateGroupRequest) (*api.CreateGroupResponse, error) {
	return unwrap(c.createGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// CreateRole creates a role in the tenant graph.
func (c *Client) CreateRole(ctx context.Context, req *api.CreateRoleRequest) (*api.CreateRoleResponse, error) {
	return unwrap(c.createRole.CallUnary(ctx, connect.NewRequest(req)))
}

// AddUserToGroup makes a user a member of a group.
func (c *Client) AddUserToGroup(ctx context.Context, req *api.MembershipRequest) (*api.MembershipResponse, error) {
	return unwrap(c.addUserToGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// RemoveUserFromGroup removes a user's group membership.
func (c *Client) RemoveUserFromGroup(ctx context.Context, req *api.MembershipRequest) (*api.MembershipResponse, error) {
	return unwrap(c.removeUserFromGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// AssignUserToRole assigns a role directly to a user.
func (c *Client) AssignUserToRole(ctx context.Context, req *api.MembershipRequest) (*api.MembershipResponse, error) {
	return unwrap(c.assignUserToRole.CallUnary(ctx, connect.NewRequest(req)))
}

// UnassignUserFromRole removes a role from a user.
func (c *Client) UnassignUserFromRole(ctx context.Context, req *api.MembershipRequest) (*api.MembershipResponse, error) {
	return unwrap(c.unassignUserFromRole.CallUnary(ctx, connect.NewRequest(req)))
}

// AddRoleToGroup attaches a role to a group.
func (c *Client) AddRoleToGroup(ctx context.Context, req *api.MembershipRequest) (*api.MembershipResponse, error) {
	return unwrap(c.addRoleToGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// RemoveRoleFromGroup detaches a role from a group.
func (c *Client) RemoveRoleFromGroup(ctx context.Context, req *api.MembershipRequest) (*api.MembershipResponse, error) {
	return unwrap(c.removeRoleFromGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// AddGroupToGroup adds a parent/child edge to the group hierarchy.
func (c *Client) AddGroupToGroup(ctx context.Context, req *api.GroupEdgeRequest) (*api.GroupEdgeResponse, error) {
	return unwrap(c.addGroupToGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// RemoveGroupFromGroup removes a parent/child edge from the group hierarchy.
func (c *Client) RemoveGroupFromGroup(ctx context.Context, req *api.GroupEdgeRequest) (*api.GroupEdgeResponse, error) {
	return unwrap(c.removeGroupFromGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// GrantPermission records a grant for (URI, verb) on an entity's scheme.
func (c *Client) GrantPermission(ctx context.Context, req *api.PermissionRequest) (*api.PermissionResponse, error) {
	return unwrap(c.grantPermission.CallUnary(ctx, connect.NewRequest(req)))
}

// DenyPermission records an explicit deny for (URI, verb) on an entity's scheme.
func (c *Client) DenyPermission(ctx context.Context, req *api.PermissionRequest) (*api.PermissionResponse, error) {
	return unwrap(c.denyPermission.CallUnary(ctx, connect.NewRequest(req)))
}

// RevokePermission deletes the (URI, verb) rule from an entity.
func (c *Client) RevokePermission(ctx context.Context, req *api.PermissionRequest) (*api.PermissionResponse, error) {
	return unwrap(c.revokePermission.CallUnary(ctx, connect.NewRequest(req)))
}

// CheckPermission evaluates whether an entity may perform verb on URI.
func (c *Client) CheckPermission(ctx context.Context, req *api.CheckPermissionRequest) (*api.CheckPermissionResponse, error) {
	return unwrap(c.checkPermission.CallUnary(ctx, connect.NewRequest(req)))
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, req *api.GetUserRequest) (*api.GetUserResponse, error) {
	return unwrap(c.getUser.CallUnary(ctx, connect.NewRequest(req)))
}

// GetGroup fetches a group by id.
func (c *Client) GetGroup(ctx context.Context, req *api.GetGroupRequest) (*api.GetGroupResponse, error) {
	return unwrap(c.getGroup.CallUnary(ctx, connect.NewRequest(req)))
}

// GetRole fetches a role by id.
func (c *Client) GetRole(ctx context.Context, req *api.GetRoleRequest) (*api.GetRoleResponse, error) {
	return unwrap(c.getRole.CallUnary(ctx, connect.NewRequest(req)))
}

// Health queries the endpoint's liveness handler.
func (c *Client) Health(ctx context.Context) (*api.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned %s", resp.Status)
	}
	var status api.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &status, nil
}
