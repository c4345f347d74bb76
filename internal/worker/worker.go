// Package worker hosts one tenant's command engine, domain graph, and
// permission evaluator behind a Connect RPC endpoint. Exactly one worker
// process exists per tenant; the supervisor starts it with the tenant id and
// health-checks it over /health.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/JoshuaRamirez/ACS-sub017/internal/engine"
	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
	"github.com/JoshuaRamirez/ACS-sub017/internal/repository"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
)

// Worker owns the engine and graph for one tenant.
type Worker struct {
	tenantID   string
	instanceID string
	eng        *engine.Engine
	repo       repository.SnapshotRepository
	startedAt  time.Time
}

// New loads the tenant's snapshot (when one exists) and wires the engine.
// The repo may be nil in tests; the worker then runs purely in memory.
func New(tenantID string, repo repository.SnapshotRepository) (*Worker, error) {
	g := graph.New()
	if repo != nil {
		snap, err := repo.Load(context.Background())
		if err != nil {
			return nil, err
		}
		if snap != nil {
			g, err = graph.Restore(snap)
			if err != nil {
				return nil, err
			}
			log.Printf("tenant %s: restored graph (%d users, %d groups, %d roles)",
				tenantID, len(snap.Users), len(snap.Groups), len(snap.Roles))
		}
	}

	w := &Worker{
		tenantID:   tenantID,
		instanceID: uuid.NewString(),
		eng:        engine.New(tenantID, g),
		repo:       repo,
		startedAt:  time.Now(),
	}
	if repo != nil {
		w.eng.AfterApply = w.persist
	}
	return w, nil
}

// Engine exposes the command engine for in-process callers (tests).
func (w *Worker) Engine() *engine.Engine { return w.eng }

// TenantID returns the tenant this worker serves.
func (w *Worker) TenantID() string { return w.tenantID }

// persist runs on the engine loop after each applied mutation. A storage
// failure is logged, not surfaced: the in-memory graph stays authoritative
// for the life of the process.
func (w *Worker) persist(cmd engine.Command, snap *graph.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.repo.Save(ctx, snap); err != nil {
		log.Printf("WARNING: tenant %s: persist after %s failed: %v", w.tenantID, cmd.Name(), err)
	}
}

// Router assembles the worker's HTTP surface: the RPC procedures plus the
// liveness handler the supervisor polls.
func (w *Worker) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", w.handleHealth)
	mountHandlers(r, w.eng)
	return r
}

func (w *Worker) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(api.HealthStatus{
		Status:     "ok",
		TenantID:   w.tenantID,
		InstanceID: w.instanceID,
		Uptime:     time.Since(w.startedAt).Round(time.Second).String(),
	})
}

// Run starts the engine loop and serves the RPC endpoint until ctx is done.
func (w *Worker) Run(ctx context.Context, addr string) error {
	engineCtx, cancelEngine := context.WithCancel(context.Background())
	defer cancelEngine()
	go w.eng.Run(engineCtx)

	srv := &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(w.Router(), &http2.Server{}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("tenant %s: worker listening on %s", w.tenantID, addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return err
		}
		log.Printf("tenant %s: worker stopped", w.tenantID)
		return nil
	}
}

// mapCommandError translates engine/graph failures into Connect codes so the
// router and clients can tell graph-level rejections apart from transport
// faults.
func mapCommandError(err error) error {
	switch {
	case errors.Is(err, graph.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, graph.ErrSelfReference), errors.Is(err, graph.ErrValidationFailed):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, graph.ErrCycleDetected):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, graph.ErrDuplicateAssignment):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, engine.ErrStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
