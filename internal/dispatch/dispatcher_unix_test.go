//go:build !windows

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"autolaunch/internal/model"
)

// waitForCall reports once the fake runner has logged its first call, so the
// dispatch boundary is already watching for signals.
func waitForCall(fake fakeRunner) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(fake.logPath); err == nil && len(b) > 0 {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		return true
	}
	b, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	// A zombie has exited and only waits to be reaped.
	fields := strings.Fields(string(b))
	return len(fields) > 2 && fields[2] == "Z"
}

func TestDispatchCatchesSignalAtBoundary(t *testing.T) {
	fake := newFakeRunner(t)
	var out bytes.Buffer
	d := newTestDispatcher(fake.program, &out)
	d.opts.Signals = []os.Signal{syscall.SIGUSR1}

	go func() {
		if waitForCall(fake) {
			_ = syscall.Kill(os.Getpid(), syscall.SIGUSR1)
		}
	}()

	started := time.Now()
	result := d.Dispatch(context.Background(), model.ModeMonitor)
	if result.Status != model.InvocationInterrupted {
		t.Fatalf("expected interrupted, got %+v", result)
	}
	if elapsed := time.Since(started); elapsed > 10*time.Second {
		t.Fatalf("expected signal to end the dispatch promptly, took %s", elapsed)
	}
}

func TestDispatchBoundsChildIgnoringInterrupt(t *testing.T) {
	fake := newFakeRunner(t)
	t.Setenv("FAKE_RUNNER_IGNORE_INT", "1")
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		waitForCall(fake)
		cancel()
	}()

	started := time.Now()
	result := newTestDispatcher(fake.program, &out).Dispatch(ctx, model.ModeMonitor)
	if result.Status != model.InvocationInterrupted {
		t.Fatalf("expected interrupted, got %+v", result)
	}
	if elapsed := time.Since(started); elapsed > 8*time.Second {
		t.Fatalf("expected the grace period to bound the dispatch, took %s", elapsed)
	}
}

func TestDispatchInterruptReachesGrandchildren(t *testing.T) {
	fake := newFakeRunner(t)
	pidFile := filepath.Join(t.TempDir(), "grandchild.pid")
	t.Setenv("FAKE_RUNNER_PIDFILE", pidFile)
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pidCh := make(chan int, 1)
	go func() {
		defer cancel()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			b, err := os.ReadFile(pidFile)
			if pid, convErr := strconv.Atoi(strings.TrimSpace(string(b))); err == nil && convErr == nil && pid > 0 {
				pidCh <- pid
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		close(pidCh)
	}()

	result := newTestDispatcher(fake.program, &out).Dispatch(ctx, model.ModeScheduler)
	if result.Status != model.InvocationInterrupted {
		t.Fatalf("expected interrupted, got %+v", result)
	}
	pid, ok := <-pidCh
	if !ok {
		t.Fatalf("grandchild never wrote its pid")
	}
	deadline := time.Now().Add(3 * time.Second)
	for !processGone(pid) {
		if time.Now().After(deadline) {
			_ = syscall.Kill(pid, syscall.SIGKILL)
			t.Fatalf("grandchild %d survived the interrupt", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
