package resetsignal

import (
	"testing"
	"time"
)

func TestWaitTimeoutExpiresWithoutSet(t *testing.T) {
	s := New()
	if s.WaitTimeout(10 * time.Millisecond) {
		t.Fatal("expected timeout, got signalled")
	}
}

func TestWaitTimeoutWakesOnSet(t *testing.T) {
	s := New()
	done := make(chan bool, 1)
	go func() {
		done <- s.WaitTimeout(time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	s.Set()
	select {
	case signalled := <-done:
		if !signalled {
			t.Fatal("expected waiter to observe signal")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter did not wake up")
	}
}

func TestWaitForFirstReturnsAfterSet(t *testing.T) {
	s := New()
	stop := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		done <- s.WaitForFirst(stop, 5*time.Millisecond)
	}()
	time.Sleep(20 * time.Millisecond)
	s.Set()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected WaitForFirst to report true")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForFirst did not return")
	}
}

func TestWaitForFirstUnblocksOnStop(t *testing.T) {
	s := New()
	stop := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		done <- s.WaitForFirst(stop, 5*time.Millisecond)
	}()
	time.Sleep(20 * time.Millisecond)
	close(stop)
	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected WaitForFirst to report false on stop")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForFirst did not unblock on stop")
	}
}

func TestHasFired(t *testing.T) {
	s := New()
	if s.HasFired() {
		t.Fatal("expected not fired initially")
	}
	s.Set()
	if !s.HasFired() {
		t.Fatal("expected fired after Set")
	}
}
