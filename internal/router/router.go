// Package router is the multi-tenant front door. It resolves the tenant for
// each request, asks the supervisor for that tenant's worker, and forwards
// the procedure call over a pooled RPC channel. The router holds no domain
// state; every answer comes from a worker.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JoshuaRamirez/ACS-sub017/internal/config"
	"github.com/JoshuaRamirez/ACS-sub017/internal/supervisor"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/sdk"
)

// ErrTenantUnresolved means no source on the request identified a tenant.
var ErrTenantUnresolved = errors.New("tenant unresolved")

// WorkerResolver is the slice of the supervisor the router needs.
type WorkerResolver interface {
	Resolve(ctx context.Context, tenantID string) (*sdk.Client, error)
	Status() []supervisor.Handle
}

// New assembles the front router: tenant resolution middleware, the
// forwarded procedure surface (also mounted under /t/{tenant} for
// path-based tenancy), and the operator endpoints.
func New(cfg *config.Config, workers WorkerResolver) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", cfg.TenantHeader},
	}))
	r.Use(tenantResolver(cfg))

	r.Get("/health", handleHealth)
	r.Get("/admin/workers", handleWorkers(workers))

	procedures := procedureRouter(workers)
	r.Route("/t/{tenant}", func(sub chi.Router) {
		sub.Mount("/", procedures)
	})
	r.Mount("/", procedures)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWorkers reports the supervisor's view of the worker fleet.
func handleWorkers(workers WorkerResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"workers": workers.Status()})
	}
}

// procedureRouter mounts one forwarding handler per procedure.
func procedureRouter(workers WorkerResolver) *chi.Mux {
	r := chi.NewRouter()

	r.Handle(forward(workers, api.ProcedureCreateUser, (*sdk.Client).CreateUser))
	r.Handle(forward(workers, api.ProcedureCreateGroup, (*sdk.Client).CreateGroup))
	r.Handle(forward(workers, api.ProcedureCreateRole, (*sdk.Client).CreateRole))
	r.Handle(forward(workers, api.ProcedureAddUserToGroup, (*sdk.Client).AddUserToGroup))
	r.Handle(forward(workers, api.ProcedureRemoveUserFromGroup, (*sdk.Client).RemoveUserFromGroup))
	r.Handle(forward(workers, api.ProcedureAssignUserToRole, (*sdk.Client).AssignUserToRole))
	r.Handle(forward(workers, api.ProcedureUnassignUserFromRole, (*sdk.Client).UnassignUserFromRole))
	r.Handle(forward(workers, api.ProcedureAddRoleToGroup, (*sdk.Client).AddRoleToGroup))
	r.Handle(forward(workers, api.ProcedureRemoveRoleFromGroup, (*sdk.Client).RemoveRoleFromGroup))
	r.Handle(forward(workers, api.ProcedureAddGroupToGroup, (*sdk.Client).AddGroupToGroup))
	r.Handle(forward(workers, api.ProcedureRemoveGroupFromGroup, (*sdk.Client).RemoveGroupFromGroup))
	r.Handle(forward(workers, api.ProcedureGrantPermission, (*sdk.Client).GrantPermission))
	r.Handle(forward(workers, api.ProcedureDenyPermission, (*sdk.Client).DenyPermission))
	r.Handle(forward(workers, api.ProcedureRevokePermission, (*sdk.Client).RevokePermission))
	r.Handle(forward(workers, api.ProcedureCheckPermission, (*sdk.Client).CheckPermission))
	r.Handle(forward(workers, api.ProcedureGetUser, (*sdk.Client).GetUser))
	r.Handle(forward(workers, api.ProcedureGetGroup, (*sdk.Client).GetGroup))
	r.Handle(forward(workers, api.ProcedureGetRole, (*sdk.Client).GetRole))

	return r
}

// forward builds a handler that relays one procedure to the tenant's worker.
// The request body is decoded once here so malformed payloads are rejected
// at the edge, then re-encoded on the worker channel.
func forward[Req, Res any](
	workers WorkerResolver,
	procedure string,
	call func(*sdk.Client, context.Context, *Req) (*Res, error),
) (string, http.Handler) {
	handler := connect.NewUnaryHandler(
		procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			tenantID, ok := TenantFromContext(ctx)
			if !ok {
				return nil, connect.NewError(connect.CodeInvalidArgument, ErrTenantUnresolved)
			}
			client, err := workers.Resolve(ctx, tenantID)
			if err != nil {
				return nil, mapResolveError(err)
			}
			res, err := call(client, ctx, req.Msg)
			if err != nil {
				return nil, mapForwardError(err)
			}
			return connect.NewResponse(res), nil
		},
		connect.WithCodec(api.Codec{}),
	)
	return procedure, handler
}

func mapResolveError(err error) *connect.Error {
	switch {
	case errors.Is(err, supervisor.ErrInvalidTenant):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, supervisor.ErrUnknownTenant):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeUnavailable, err)
	}
}

// mapForwardError passes worker verdicts through untouched and turns
// transport failures into unavailable, never into an allow.
func mapForwardError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(connect.CodeUnavailable,
		errors.Join(supervisor.ErrWorkerUnavailable, err))
}
