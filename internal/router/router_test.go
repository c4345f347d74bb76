package router_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaRamirez/ACS-sub017/internal/config"
	"github.com/JoshuaRamirez/ACS-sub017/internal/router"
	"github.com/JoshuaRamirez/ACS-sub017/internal/supervisor"
	"github.com/JoshuaRamirez/ACS-sub017/internal/worker"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/sdk"
)

// stubResolver hands every tenant the same worker client and records which
// tenants were asked for.
type stubResolver struct {
	mu       sync.Mutex
	asked    []string
	client   *sdk.Client
	failWith error
}

func (s *stubResolver) Resolve(_ context.Context, tenantID string) (*sdk.Client, error) {
	s.mu.Lock()
	s.asked = append(s.asked, tenantID)
	s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.client, nil
}

func (s *stubResolver) Status() []supervisor.Handle { return nil }

func (s *stubResolver) lastAsked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.asked) == 0 {
		return ""
	}
	return s.asked[len(s.asked)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		TenantHeader:       "X-Acs-Tenant",
		BaseDomain:         "acs.example.com",
		ReservedSubdomains: []string{"www", "api", "admin"},
	}
}

// startBackend runs a real in-memory worker and returns a client for it.
func startBackend(t *testing.T, tenantID string) *sdk.Client {
	t.Helper()
	w, err := worker.New(tenantID, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Engine().Run(ctx)
	srv := httptest.NewServer(w.Router())
	t.Cleanup(srv.Close)
	return sdk.NewClient(srv.URL)
}

func TestForwardsToResolvedTenant(t *testing.T) {
	resolver := &stubResolver{client: startBackend(t, "t1")}
	front := httptest.NewServer(router.New(testConfig(), resolver))
	t.Cleanup(front.Close)

	c := sdk.NewClient(front.URL, sdk.WithHeader("X-Acs-Tenant", "t1"))
	res, err := c.CreateUser(context.Background(), &api.CreateUserRequest{Name: "alice"})
	require.NoError(t, err)
	require.Equal(t, "alice", res.User.Name)
	require.Equal(t, "t1", resolver.lastAsked())

	got, err := c.GetUser(context.Background(), &api.GetUserRequest{ID: res.User.ID})
	require.NoError(t, err)
	require.Equal(t, res.User, got.User)
}

func TestForwardsViaPathPrefix(t *testing.T) {
	resolver := &stubResolver{client: startBackend(t, "t2")}
	front := httptest.NewServer(router.New(testConfig(), resolver))
	t.Cleanup(front.Close)

	c := sdk.NewClient(front.URL + "/t/t2")
	_, err := c.CreateUser(context.Background(), &api.CreateUserRequest{Name: "bob"})
	require.NoError(t, err)
	require.Equal(t, "t2", resolver.lastAsked())
}

func TestUnresolvedTenantIsRejected(t *testing.T) {
	resolver := &stubResolver{client: startBackend(t, "t1")}
	front := httptest.NewServer(router.New(testConfig(), resolver))
	t.Cleanup(front.Close)

	c := sdk.NewClient(front.URL)
	_, err := c.CreateUser(context.Background(), &api.CreateUserRequest{Name: "alice"})
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	require.Empty(t, resolver.lastAsked())
}

func TestResolveErrorsMapToCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code connect.Code
	}{
		{"unknown tenant", fmt.Errorf("%w: %q", supervisor.ErrUnknownTenant, "t9"), connect.CodeNotFound},
		{"invalid tenant", fmt.Errorf("%w: %q", supervisor.ErrInvalidTenant, "!"), connect.CodeInvalidArgument},
		{"worker down", supervisor.ErrWorkerUnavailable, connect.CodeUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &stubResolver{failWith: tc.err}
			front := httptest.NewServer(router.New(testConfig(), resolver))
			t.Cleanup(front.Close)

			c := sdk.NewClient(front.URL, sdk.WithHeader("X-Acs-Tenant", "t1"))
			_, err := c.CheckPermission(context.Background(), &api.CheckPermissionRequest{EntityID: 1, URI: "/x", Verb: "GET"})
			require.Equal(t, tc.code, connect.CodeOf(err))
		})
	}
}

func TestWorkerErrorsPassThrough(t *testing.T) {
	resolver := &stubResolver{client: startBackend(t, "t1")}
	front := httptest.NewServer(router.New(testConfig(), resolver))
	t.Cleanup(front.Close)

	c := sdk.NewClient(front.URL, sdk.WithHeader("X-Acs-Tenant", "t1"))
	_, err := c.GetUser(context.Background(), &api.GetUserRequest{ID: 404})
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestHealthAndAdminEndpoints(t *testing.T) {
	resolver := &stubResolver{client: startBackend(t, "t1")}
	front := httptest.NewServer(router.New(testConfig(), resolver))
	t.Cleanup(front.Close)

	res, err := http.Get(front.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(front.URL + "/admin/workers")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestResolveTenantPriority(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultTenant = "fallback"

	newReq := func(target, host string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, target, nil)
		if host != "" {
			r.Host = host
		}
		return r
	}

	t.Run("header wins over everything", func(t *testing.T) {
		r := newReq("/t/path-tenant/acs.v1.TenantService/GetUser?tenant=query-tenant", "sub.acs.example.com")
		r.Header.Set(cfg.TenantHeader, "header-tenant")
		id, ok := router.ResolveTenant(r, cfg)
		require.True(t, ok)
		require.Equal(t, "header-tenant", id)
	})

	t.Run("subdomain before path", func(t *testing.T) {
		r := newReq("/t/path-tenant/acs.v1.TenantService/GetUser", "sub.acs.example.com:8080")
		id, ok := router.ResolveTenant(r, cfg)
		require.True(t, ok)
		require.Equal(t, "sub", id)
	})

	t.Run("reserved subdomain is skipped", func(t *testing.T) {
		r := newReq("/t/path-tenant/acs.v1.TenantService/GetUser", "www.acs.example.com")
		id, ok := router.ResolveTenant(r, cfg)
		require.True(t, ok)
		require.Equal(t, "path-tenant", id)
	})

	t.Run("path before query", func(t *testing.T) {
		r := newReq("/t/path-tenant/acs.v1.TenantService/GetUser?tenant=query-tenant", "")
		id, ok := router.ResolveTenant(r, cfg)
		require.True(t, ok)
		require.Equal(t, "path-tenant", id)
	})

	t.Run("query before default", func(t *testing.T) {
		r := newReq("/acs.v1.TenantService/GetUser?tenant=query-tenant", "")
		id, ok := router.ResolveTenant(r, cfg)
		require.True(t, ok)
		require.Equal(t, "query-tenant", id)
	})

	t.Run("default as last resort", func(t *testing.T) {
		r := newReq("/acs.v1.TenantService/GetUser", "")
		id, ok := router.ResolveTenant(r, cfg)
		require.True(t, ok)
		require.Equal(t, "fallback", id)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		bare := testConfig()
		r := newReq("/acs.v1.TenantService/GetUser", "")
		_, ok := router.ResolveTenant(r, bare)
		require.False(t, ok)
	})
}
