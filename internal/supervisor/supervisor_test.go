package supervisor_test

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JoshuaRamirez/ACS-sub017/internal/config"
	"github.com/JoshuaRamirez/ACS-sub017/internal/supervisor"
	"github.com/JoshuaRamirez/ACS-sub017/internal/worker"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
)

// fakeLauncher serves workers in-process instead of spawning child
// processes, so the supervisor's lifecycle logic is exercised without a
// built binary.
type fakeLauncher struct {
	mu       sync.Mutex
	launches map[string]int
	procs    []*fakeProcess
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{launches: make(map[string]int)}
}

func (l *fakeLauncher) Launch(_ context.Context, tenantID, addr string) (supervisor.Process, error) {
	w, err := worker.New(tenantID, nil)
	if err != nil {
		return nil, err
	}
	engCtx, cancelEngine := context.WithCancel(context.Background())
	go w.Engine().Run(engCtx)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		cancelEngine()
		return nil, err
	}
	srv := &http.Server{Handler: w.Router()}
	p := &fakeProcess{srv: srv, cancelEngine: cancelEngine, done: make(chan struct{})}
	go func() {
		_ = srv.Serve(ln)
		p.stopOnce.Do(p.teardown)
	}()

	l.mu.Lock()
	l.launches[tenantID]++
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	return p, nil
}

func (l *fakeLauncher) launchCount(tenantID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches[tenantID]
}

func (l *fakeLauncher) latest() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

type fakeProcess struct {
	srv          *http.Server
	cancelEngine context.CancelFunc
	stopOnce     sync.Once
	done         chan struct{}
}

func (p *fakeProcess) PID() int { return 0 }

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Stop() error {
	p.stopOnce.Do(func() {
		_ = p.srv.Close()
		p.teardown()
	})
	return nil
}

func (p *fakeProcess) teardown() {
	p.cancelEngine()
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Tenants:            []string{"t1", "t2"},
		WorkerStartTimeout: 5 * time.Second,
		HealthInterval:     20 * time.Millisecond,
		HealthFailures:     3,
		PoolSize:           16,
	}
}

func newSupervisor(t *testing.T) (*supervisor.Supervisor, *fakeLauncher) {
	t.Helper()
	launcher := newFakeLauncher()
	s, err := supervisor.New(testConfig(), supervisor.WithLauncher(launcher))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, launcher
}

func TestResolveStartsWorker(t *testing.T) {
	s, launcher := newSupervisor(t)
	ctx := context.Background()

	client, err := s.Resolve(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 1, launcher.launchCount("t1"))

	status, err := client.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", status.TenantID)

	handles := s.Status()
	require.Len(t, handles, 1)
	require.Equal(t, "t1", handles[0].TenantID)
	require.Equal(t, supervisor.StateHealthy, handles[0].State)
}

func TestResolveRejectsBadTenants(t *testing.T) {
	s, launcher := newSupervisor(t)
	ctx := context.Background()

	_, err := s.Resolve(ctx, "t9")
	require.ErrorIs(t, err, supervisor.ErrUnknownTenant)

	_, err = s.Resolve(ctx, "")
	require.ErrorIs(t, err, supervisor.ErrInvalidTenant)

	_, err = s.Resolve(ctx, "Bad Tenant!")
	require.ErrorIs(t, err, supervisor.ErrInvalidTenant)

	require.Equal(t, 0, launcher.launchCount("t9"))
}

func TestResolveIdempotentUnderConcurrency(t *testing.T) {
	s, launcher := newSupervisor(t)
	ctx := context.Background()

	const callers = 50
	endpoints := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := s.Resolve(ctx, "t1")
			if err != nil {
				t.Error(err)
				return
			}
			endpoints[i] = client.BaseURL()
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, launcher.launchCount("t1"))
	for _, ep := range endpoints {
		require.Equal(t, endpoints[0], ep)
	}
}

func TestWorkersAreIndependent(t *testing.T) {
	s, launcher := newSupervisor(t)
	ctx := context.Background()

	c1, err := s.Resolve(ctx, "t1")
	require.NoError(t, err)
	c2, err := s.Resolve(ctx, "t2")
	require.NoError(t, err)

	require.NotEqual(t, c1.BaseURL(), c2.BaseURL())
	require.Equal(t, 1, launcher.launchCount("t1"))
	require.Equal(t, 1, launcher.launchCount("t2"))

	_, err = c1.CreateUser(ctx, &api.CreateUserRequest{Name: "alice"})
	require.NoError(t, err)
}

func TestRestartAfterWorkerDeath(t *testing.T) {
	s, launcher := newSupervisor(t)
	ctx := context.Background()

	c1, err := s.Resolve(ctx, "t1")
	require.NoError(t, err)
	first := c1.BaseURL()

	// Kill the worker out from under the supervisor.
	require.NoError(t, launcher.latest().Stop())

	// The monitor notices the exit; the next Resolve starts a replacement.
	require.Eventually(t, func() bool {
		c2, err := s.Resolve(ctx, "t1")
		return err == nil && c2.BaseURL() != first
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, 2, launcher.launchCount("t1"))

	handles := s.Status()
	require.Len(t, handles, 1)
	require.Equal(t, 1, handles[0].Restarts)
}
