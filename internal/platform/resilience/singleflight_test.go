package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err, _ := g.Do("season:2025", func() (any, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_PanicBecomesError(t *testing.T) {
	var g SingleFlight
	_, err, _ := g.Do("boom", func() (any, error) {
		panic("kaboom")
	})
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}

	got, err, _ := g.Do("boom", func() (any, error) { return 1, nil })
	if err != nil || got.(int) != 1 {
		t.Fatalf("key should be reusable after panic: got=%v err=%v", got, err)
	}
}

func TestSingleFlight_DoContextFollowerCancelled(t *testing.T) {
	var g SingleFlight
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _, _ = g.Do("slow", func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err, shared := g.DoContext(ctx, "slow", func() (any, error) { return nil, nil })
	close(release)
	if !errors.Is(err, context.Canceled) || !shared {
		t.Fatalf("expected cancelled follower: err=%v shared=%v", err, shared)
	}
}
