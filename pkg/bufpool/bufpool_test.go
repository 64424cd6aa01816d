package bufpool

import (
	"sync"
	"testing"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := New(4)

	b, ok := p.Acquire()
	if !ok {
		t.Fatal("expected Acquire to succeed")
	}
	if b.Len() != 0 {
		t.Fatalf("expected zero-length buffer, got %d", b.Len())
	}
	if len(b.Bytes()) != MTU {
		t.Fatalf("expected MTU-capacity buffer, got %d", len(b.Bytes()))
	}

	copy(b.Bytes(), []byte("hello"))
	b.SetLen(5)
	if string(b.Data()) != "hello" {
		t.Fatalf("unexpected data %q", b.Data())
	}

	b.Release()

	b2, ok := p.Acquire()
	if !ok {
		t.Fatal("expected second Acquire to succeed")
	}
	if b2.Len() != 0 {
		t.Fatalf("expected released buffer to be cleared, got len=%d", b2.Len())
	}
	for _, c := range b2.Bytes()[:5] {
		if c != 0 {
			t.Fatalf("expected cleared buffer contents, found %v", c)
		}
	}
}

func TestAcquireExhaustion(t *testing.T) {
	p := New(2)
	b1, ok := p.Acquire()
	if !ok {
		t.Fatal("acquire 1 failed")
	}
	b2, ok := p.Acquire()
	if !ok {
		t.Fatal("acquire 2 failed")
	}
	if _, ok := p.Acquire(); ok {
		t.Fatal("expected pool exhaustion")
	}
	if p.Exhausted() != 1 {
		t.Fatalf("expected exhausted count 1, got %d", p.Exhausted())
	}
	b1.Release()
	b2.Release()

	if _, ok := p.Acquire(); !ok {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	const n = 8
	p := New(n)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if b, ok := p.Acquire(); ok {
					b.SetLen(10)
					b.Release()
				}
			}
		}()
	}
	wg.Wait()

	if p.Outstanding() != 0 {
		t.Fatalf("expected 0 outstanding after all goroutines finish, got %d", p.Outstanding())
	}
}
