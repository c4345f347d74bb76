// Package supervisor manages the per-tenant worker fleet: it spawns one
// worker process per tenant on demand, health-checks each worker, replaces
// workers that die or stop answering, and pools RPC clients to the worker
// endpoints for the front router.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/JoshuaRamirez/ACS-sub017/internal/config"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/sdk"
)

var (
	// ErrUnknownTenant means the tenant id is not in the configured tenant list.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrInvalidTenant means the tenant id is syntactically unacceptable.
	ErrInvalidTenant = errors.New("invalid tenant id")

	// ErrWorkerUnavailable means the tenant's worker could not be started or
	// reached. Callers must treat the request as failed, never as allowed.
	ErrWorkerUnavailable = errors.New("worker unavailable")
)

// Tenant ids become file names and subdomain labels, so the accepted alphabet
// is narrow.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// State describes where a worker is in its lifecycle.
type State string

const (
	StateStarting State = "starting"
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateFailed   State = "failed"
)

// Handle is a point-in-time view of one managed worker.
type Handle struct {
	TenantID        string    `json:"tenant_id"`
	Endpoint        string    `json:"endpoint"`
	PID             int       `json:"pid"`
	State           State     `json:"state"`
	StartedAt       time.Time `json:"started_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	Restarts        int       `json:"restarts"`
}

// Process is a running worker as the supervisor sees it.
type Process interface {
	PID() int
	// Stop terminates the process, gracefully when possible.
	Stop() error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
}

// Launcher starts a worker process for a tenant, listening on addr.
type Launcher interface {
	Launch(ctx context.Context, tenantID, addr string) (Process, error)
}

// slot serializes lifecycle operations for one tenant. Holding slot.mu while
// starting a worker means concurrent Resolve calls for the same tenant wait
// for a single start instead of racing to spawn duplicates; other tenants
// proceed in parallel.
type slot struct {
	mu sync.Mutex

	proc      Process
	endpoint  string
	state     State
	startedAt time.Time
	lastCheck time.Time
	restarts  int
	cancelMon context.CancelFunc
}

// Supervisor owns the worker fleet for this router process.
type Supervisor struct {
	cfg      *config.Config
	pool     *ClientPool
	launcher Launcher

	mu    sync.Mutex
	slots map[string]*slot

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLauncher replaces the process launcher. Tests use this to run workers
// in-process.
func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) { s.launcher = l }
}

// New builds a supervisor over the configured tenant set.
func New(cfg *config.Config, opts ...Option) (*Supervisor, error) {
	pool, err := NewClientPool(cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:      cfg,
		pool:     pool,
		launcher: &ExecLauncher{Bin: cfg.WorkerBin, DataDir: cfg.DataDir},
		slots:    make(map[string]*slot),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve returns an RPC client for the tenant's worker, starting the worker
// first when none is running. Resolve is idempotent: concurrent calls for
// the same tenant share one worker.
func (s *Supervisor) Resolve(ctx context.Context, tenantID string) (*sdk.Client, error) {
	if !tenantIDPattern.MatchString(tenantID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}
	if !s.cfg.KnownTenant(tenantID) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, tenantID)
	}

	sl := s.slot(tenantID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.proc != nil && (sl.state == StateHealthy || sl.state == StateDegraded) {
		select {
		case <-sl.proc.Done():
			// Fall through to a restart.
		default:
			return s.pool.Get(sl.endpoint), nil
		}
	}

	if err := s.startLocked(ctx, tenantID, sl); err != nil {
		return nil, err
	}
	return s.pool.Get(sl.endpoint), nil
}

// Status reports every known worker, sorted by tenant id.
func (s *Supervisor) Status() []Handle {
	s.mu.Lock()
	tenants := make([]string, 0, len(s.slots))
	for id := range s.slots {
		tenants = append(tenants, id)
	}
	s.mu.Unlock()
	sort.Strings(tenants)

	handles := make([]Handle, 0, len(tenants))
	for _, id := range tenants {
		sl := s.slot(id)
		sl.mu.Lock()
		h := Handle{
			TenantID:        id,
			Endpoint:        sl.endpoint,
			State:           sl.state,
			StartedAt:       sl.startedAt,
			LastHealthCheck: sl.lastCheck,
			Restarts:        sl.restarts,
		}
		if sl.proc != nil {
			h.PID = sl.proc.PID()
		}
		sl.mu.Unlock()
		handles = append(handles, h)
	}
	return handles
}

// Close stops health monitoring and terminates every worker.
func (s *Supervisor) Close() {
	s.cancel()

	s.mu.Lock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	for _, sl := range slots {
		sl.mu.Lock()
		if sl.cancelMon != nil {
			sl.cancelMon()
		}
		if sl.proc != nil {
			if err := sl.proc.Stop(); err != nil {
				log.Printf("WARNING: supervisor: stopping worker: %v", err)
			}
			sl.proc = nil
		}
		sl.state = StateFailed
		sl.mu.Unlock()
	}
}

func (s *Supervisor) slot(tenantID string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[tenantID]
	if !ok {
		sl = &slot{state: StateFailed}
		s.slots[tenantID] = sl
	}
	return sl
}

// startLocked spawns a fresh worker for the tenant. Caller holds sl.mu.
func (s *Supervisor) startLocked(ctx context.Context, tenantID string, sl *slot) error {
	if sl.cancelMon != nil {
		sl.cancelMon()
		sl.cancelMon = nil
	}
	if sl.proc != nil {
		_ = sl.proc.Stop()
		sl.proc = nil
	}
	if !sl.startedAt.IsZero() {
		sl.restarts++
	}
	if sl.endpoint != "" {
		s.pool.Drop(sl.endpoint)
	}

	addr, err := allocateAddr()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)
	}

	log.Printf("supervisor: starting worker for tenant %s on %s", tenantID, addr)
	sl.state = StateStarting
	proc, err := s.launcher.Launch(s.ctx, tenantID, addr)
	if err != nil {
		sl.state = StateFailed
		return fmt.Errorf("%w: launch: %v", ErrWorkerUnavailable, err)
	}

	endpoint := "http://" + addr
	if err := s.waitHealthy(ctx, proc, endpoint); err != nil {
		_ = proc.Stop()
		sl.state = StateFailed
		return err
	}

	sl.proc = proc
	sl.endpoint = endpoint
	sl.state = StateHealthy
	sl.startedAt = time.Now()
	sl.lastCheck = time.Now()

	monCtx, cancelMon := context.WithCancel(s.ctx)
	sl.cancelMon = cancelMon
	go s.monitor(monCtx, tenantID, sl, proc, endpoint)

	log.Printf("supervisor: worker for tenant %s healthy (pid %d)", tenantID, proc.PID())
	return nil
}

// waitHealthy polls the worker's liveness endpoint with backoff until it
// answers, the process exits, or the start timeout elapses.
func (s *Supervisor) waitHealthy(ctx context.Context, proc Process, endpoint string) error {
	client := s.pool.Get(endpoint)
	deadline := time.Now().Add(s.cfg.WorkerStartTimeout)
	delay := 50 * time.Millisecond

	for {
		probeCtx, cancel := context.WithTimeout(ctx, time.Second)
		_, err := client.Health(probeCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: not healthy after %s", ErrWorkerUnavailable, s.cfg.WorkerStartTimeout)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrWorkerUnavailable, ctx.Err())
		case <-proc.Done():
			return fmt.Errorf("%w: worker exited during startup", ErrWorkerUnavailable)
		case <-time.After(delay):
		}
		if delay < 500*time.Millisecond {
			delay *= 2
		}
	}
}

// monitor health-checks one worker until it fails or the supervisor shuts
// down. After the configured number of consecutive failures the worker is
// killed and marked failed; the next Resolve for the tenant starts a
// replacement.
func (s *Supervisor) monitor(ctx context.Context, tenantID string, sl *slot, proc Process, endpoint string) {
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	client := s.pool.Get(endpoint)
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-proc.Done():
			log.Printf("WARNING: supervisor: worker for tenant %s exited", tenantID)
			s.markFailed(sl, proc, endpoint)
			return
		case <-ticker.C:
		}

		probeCtx, cancel := context.WithTimeout(ctx, time.Second)
		_, err := client.Health(probeCtx)
		cancel()

		sl.mu.Lock()
		if sl.proc != proc {
			// Worker was replaced under us.
			sl.mu.Unlock()
			return
		}
		sl.lastCheck = time.Now()
		if err == nil {
			failures = 0
			sl.state = StateHealthy
			sl.mu.Unlock()
			continue
		}
		failures++
		log.Printf("WARNING: supervisor: health check for tenant %s failed (%d/%d): %v",
			tenantID, failures, s.cfg.HealthFailures, err)
		if failures < s.cfg.HealthFailures {
			sl.state = StateDegraded
			sl.mu.Unlock()
			continue
		}
		sl.mu.Unlock()
		s.markFailed(sl, proc, endpoint)
		return
	}
}

func (s *Supervisor) markFailed(sl *slot, proc Process, endpoint string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.proc != proc {
		return
	}
	_ = proc.Stop()
	sl.proc = nil
	sl.state = StateFailed
	s.pool.Drop(endpoint)
}

// allocateAddr reserves a loopback port for a worker. The listener is closed
// before the worker binds; the window where another process grabs the port
// loses the start, and Resolve simply retries on the next call.
func allocateAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr, nil
}
