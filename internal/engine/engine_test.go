package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
)

func startEngine(t *testing.T) (*Engine, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	e := New("t1", graph.New())
	go e.Run(ctx)
	return e, cancel
}

func TestExecuteCreateUser(t *testing.T) {
	e, cancel := startEngine(t)
	defer cancel()

	v, err := e.Execute(context.Background(), CreateUser{UserName: "alice"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	u, ok := v.(api.User)
	if !ok {
		t.Fatalf("expected api.User, got %T", v)
	}
	if u.Name != "alice" || u.ID == 0 || u.EntityID == 0 {
		t.Fatalf("unexpected user view %+v", u)
	}
}

func TestTypedFailuresPropagate(t *testing.T) {
	e, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	if _, err := e.Execute(ctx, GetUser{ID: 404}); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	gv, err := e.Execute(ctx, CreateGroup{GroupName: "g"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	gid := gv.(api.Group).ID
	if _, err := e.Execute(ctx, AddGroupToGroup{ParentID: gid, ChildID: gid}); !errors.Is(err, graph.ErrSelfReference) {
		t.Fatalf("expected ErrSelfReference, got %v", err)
	}
}

func TestFailedCommandDoesNotAffectQueuedOnes(t *testing.T) {
	e, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	futs := make([]*Future, 0, 3)
	for _, cmd := range []Command{
		GetUser{ID: 1},                  // fails: no such user yet
		CreateUser{UserName: "alice"},   // must still run
		CreateGroup{GroupName: "group"}, // and this
	} {
		fut, err := e.Submit(ctx, cmd)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		futs = append(futs, fut)
	}

	if _, err := futs[0].Wait(ctx); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, fut := range futs[1:] {
		if _, err := fut.Wait(ctx); err != nil {
			t.Fatalf("queued command failed: %v", err)
		}
	}
}

func TestConcurrentSubmissionsSerialize(t *testing.T) {
	e, cancel := startEngine(t)
	defer cancel()
	ctx := context.Background()

	const callers = 16
	const perCaller = 25

	var wg sync.WaitGroup
	errs := make(chan error, callers*perCaller)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(caller int) {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				name := fmt.Sprintf("user-%d-%d", caller, j)
				if _, err := e.Execute(ctx, CreateUser{UserName: name}); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent create failed: %v", err)
	}

	// Every command applied exactly once: ids are dense, no lost updates.
	seen := make(map[int64]bool)
	for id := int64(1); ; id++ {
		v, err := e.Execute(ctx, GetUser{ID: id})
		if errors.Is(err, graph.ErrNotFound) {
			break
		}
		if err != nil {
			t.Fatalf("get user %d: %v", id, err)
		}
		u := v.(api.User)
		if seen[u.ID] {
			t.Fatalf("user id %d observed twice", u.ID)
		}
		seen[u.ID] = true
		// Users and entities interleave in the id sequence.
		id = u.EntityID
	}
	if len(seen) != callers*perCaller {
		t.Fatalf("expected %d users, found %d", callers*perCaller, len(seen))
	}
}

func TestAbandonedWaitDoesNotCancelCommand(t *testing.T) {
	e, cancel := startEngine(t)
	defer cancel()

	waitCtx, cancelWait := context.WithCancel(context.Background())
	fut, err := e.Submit(context.Background(), CreateUser{UserName: "alice"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancelWait()
	if _, err := fut.Wait(waitCtx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The command still ran to completion and updated the graph.
	v, err := e.Execute(context.Background(), GetUser{ID: 1})
	if err != nil {
		t.Fatalf("get user after abandoned wait: %v", err)
	}
	if v.(api.User).Name != "alice" {
		t.Fatalf("unexpected user %+v", v)
	}
}

func TestAfterApplyFiresOnMutationsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := New("t1", graph.New())
	var mu sync.Mutex
	var applied []string
	e.AfterApply = func(cmd Command, snap *graph.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, cmd.Name())
		if snap == nil {
			t.Error("nil snapshot passed to AfterApply")
		}
	}
	go e.Run(ctx)

	if _, err := e.Execute(ctx, CreateUser{UserName: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.Execute(ctx, GetUser{ID: 1}); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := e.Execute(ctx, GetUser{ID: 404}); err == nil {
		t.Fatal("expected failure")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 || applied[0] != "CreateUser" {
		t.Fatalf("AfterApply calls = %v, want [CreateUser]", applied)
	}
}

func TestStoppedEngineFailsFast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := New("t1", graph.New())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if _, err := e.Submit(context.Background(), CreateUser{UserName: "x"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestFutureResolvesOnce(t *testing.T) {
	fut := newFuture()
	fut.resolve("first", nil)
	fut.resolve(nil, ErrStopped)

	v, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("expected first resolution to win, got %v", err)
	}
	if v != "first" {
		t.Fatalf("expected %q, got %v", "first", v)
	}
}

func TestShutdownNeverStrandsSubmitters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := New("t1", graph.New(), WithQueueDepth(4))
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	// Hammer the small queue from many goroutines while the engine stops
	// mid-flight. Every future handed out must resolve: with a value, or
	// with ErrStopped, never by hanging its caller.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				fut, err := e.Submit(context.Background(), CreateUser{UserName: "u"})
				if err != nil {
					if !errors.Is(err, ErrStopped) {
						t.Errorf("submit: %v", err)
					}
					return
				}
				waitCtx, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
				_, err = fut.Wait(waitCtx)
				cancelWait()
				if errors.Is(err, context.DeadlineExceeded) {
					t.Error("future never resolved after engine stop")
					return
				}
				if errors.Is(err, ErrStopped) {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
	wg.Wait()
}

func TestCheckPermissionThroughQueue(t *testing.T) {
	e, cancel := startEngine(t)
	defer cancel()
	ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCtx()

	uv, err := e.Execute(ctx, CreateUser{UserName: "alice"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	entityID := uv.(api.User).EntityID
	if _, err := e.Execute(ctx, GrantPermission{EntityID: entityID, URI: "/api/data", Verb: "GET"}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	v, err := e.Execute(ctx, CheckPermission{EntityID: entityID, URI: "/api/data", Verb: "GET"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec := v.(graph.Decision); !dec.Allowed {
		t.Fatalf("expected allow, got %s", dec)
	}
}
