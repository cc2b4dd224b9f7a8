package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/wagate/pkg/entities"
)

func TestStore_DeleteIfOnlyRemovesSameRecord(t *testing.T) {
	st := NewStore()
	old := newSession("alpha", 1, entities.SessionConfig{}, "", time.Now())
	cur := newSession("alpha", 1, entities.SessionConfig{}, "", time.Now())
	st.Set("alpha", cur)

	if st.DeleteIf("alpha", old) {
		t.Fatal("stale record evicted the current one")
	}
	if !st.Has("alpha") {
		t.Fatal("current record missing")
	}
	if !st.DeleteIf("alpha", cur) || st.Has("alpha") {
		t.Fatal("current record not removed")
	}
}

func TestStore_CreationLock(t *testing.T) {
	st := NewStore()
	if !st.TryLockCreation("alpha") {
		t.Fatal("first lock failed")
	}
	if st.TryLockCreation("alpha") {
		t.Fatal("second lock succeeded")
	}
	if !st.IsCreating("alpha") || st.IsCreating("bravo") {
		t.Fatal("IsCreating wrong")
	}
	st.UnlockCreation("alpha")
	if st.IsCreating("alpha") || !st.TryLockCreation("alpha") {
		t.Fatal("lock not released")
	}
}

func TestStore_EntriesSortedAndClear(t *testing.T) {
	st := NewStore()
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		st.Set(id, newSession(id, 1, entities.SessionConfig{}, "", time.Now()))
	}
	var ids []string
	for _, s := range st.Entries() {
		ids = append(ids, s.ID)
	}
	if strings.Join(ids, ",") != "alpha,bravo,charlie" {
		t.Fatalf("entries = %v", ids)
	}

	st.Clear()
	if st.Size() != 0 {
		t.Fatalf("size after clear = %d", st.Size())
	}
	var nf *SessionNotFoundError
	if _, err := st.GetSafe("alpha"); !errors.As(err, &nf) {
		t.Fatalf("GetSafe error = %v", err)
	}
}

func TestSession_TransitionGuard(t *testing.T) {
	s := newSession("alpha", 1, entities.SessionConfig{}, "", time.Now())
	if _, ok := s.transition(StatusConnected, nil); !ok {
		t.Fatal("INITIALIZING -> CONNECTED rejected")
	}
	if prev, ok := s.transition(StatusQRReady, nil); ok || prev != StatusConnected {
		t.Fatalf("CONNECTED -> QR_READY allowed (prev %s)", prev)
	}
	if _, ok := s.transition(StatusFailed, nil); !ok {
		t.Fatal("CONNECTED -> FAILED rejected")
	}
	for _, next := range []Status{StatusInitializing, StatusQRReady, StatusConnected, StatusLoggedOut} {
		if StatusFailed.CanTransition(next) {
			t.Fatalf("FAILED -> %s allowed", next)
		}
	}
}

func TestLaunchArgs(t *testing.T) {
	plain := launchArgs(entities.SessionConfig{Proxy: entities.ProxyConfig{Server: "  "}})
	for _, a := range plain {
		if strings.HasPrefix(a, "--proxy-server") {
			t.Fatalf("blank proxy produced %q", a)
		}
	}
	if len(plain) != len(sandboxArgs) {
		t.Fatalf("args = %v", plain)
	}

	args := launchArgs(entities.SessionConfig{
		Proxy:  entities.ProxyConfig{Server: "socks5://10.0.0.2:1080"},
		Device: entities.DeviceConfig{UserAgent: "agent/2"},
	})
	joined := strings.Join(args, " ")
	for _, want := range []string{"--no-sandbox", "--proxy-server=socks5://10.0.0.2:1080", "--user-agent=agent/2"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %v missing %s", args, want)
		}
	}
}

func TestClassifyInitError(t *testing.T) {
	cases := []struct {
		err  error
		want InitKind
	}{
		{fmt.Errorf("dial: %w", syscall.ECONNRESET), InitKindNetwork},
		{errors.New("read: connection reset by peer"), InitKindNetwork},
		{errors.New("net::ERR_PROXY_CONNECTION_FAILED"), InitKindProxy},
		{context.DeadlineExceeded, InitKindTimeout},
		{errors.New("websocket handshake timed out"), InitKindTimeout},
		{errors.New("something else"), InitKindUnknown},
	}
	for _, tc := range cases {
		got := classifyInitError("alpha", tc.err)
		if got.Kind != tc.want {
			t.Fatalf("classify(%v) = %s, want %s", tc.err, got.Kind, tc.want)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("classify(%v) does not wrap the cause", tc.err)
		}
		if tc.want != InitKindUnknown && got.Guidance == "" {
			t.Fatalf("classify(%v) has no guidance", tc.err)
		}
	}
}

func TestRunBounded(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	err := runBounded(context.Background(), 20*time.Millisecond, func(context.Context) error {
		<-block
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) || time.Since(start) > time.Second {
		t.Fatalf("err = %v after %s", err, time.Since(start))
	}

	err = runBounded(context.Background(), time.Second, func(context.Context) error { panic("x") })
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("panic not recovered: %v", err)
	}
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex
	unlock := k.Lock("alpha")

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		k.Lock("alpha")()
	}()

	other := k.Lock("bravo")
	other()

	select {
	case <-acquired:
		t.Fatal("second lock on the same id did not block")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	if k.size() != 0 {
		t.Fatalf("size = %d after release, want 0", k.size())
	}
}
