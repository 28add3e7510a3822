package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	s := New()
	calls := 0
	fn := func() (any, error) {
		calls++
		return calls, nil
	}

	v, err := s.GetOrCompute("k", time.Minute, []string{"users"}, fn)
	if err != nil {
		t.Fatalf("first compute error: %v", err)
	}
	if v.(int) != 1 {
		t.Fatalf("unexpected first value: %v", v)
	}

	v, err = s.GetOrCompute("k", time.Minute, []string{"users"}, fn)
	if err != nil {
		t.Fatalf("second compute error: %v", err)
	}
	if v.(int) != 1 {
		t.Fatalf("expected cached value 1, got %v", v)
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}

func TestTTLExpiryRecomputes(t *testing.T) {
	s := New()
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	calls := 0
	fn := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, err := s.GetOrCompute("k", time.Second, nil, fn); err != nil {
		t.Fatalf("compute error: %v", err)
	}
	current = current.Add(2 * time.Second)

	v, err := s.GetOrCompute("k", time.Second, nil, fn)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	if v.(int) != 2 {
		t.Fatalf("expected recompute after expiry, got %v", v)
	}
}

func TestInvalidateTagsDropsAllTaggedEntries(t *testing.T) {
	s := New()
	calls := map[string]int{}
	fill := func(key string, tags ...string) {
		_, err := s.GetOrCompute(key, time.Minute, tags, func() (any, error) {
			calls[key]++
			return calls[key], nil
		})
		if err != nil {
			t.Fatalf("fill %s: %v", key, err)
		}
	}

	fill("users:list", "users")
	fill("users:banned", "users", "user-banned-counts")
	fill("products:list", "products")

	s.InvalidateTags("users")

	fill("users:list", "users")
	fill("users:banned", "users", "user-banned-counts")
	fill("products:list", "products")

	if calls["users:list"] != 2 || calls["users:banned"] != 2 {
		t.Fatalf("tagged entries not recomputed: %v", calls)
	}
	if calls["products:list"] != 1 {
		t.Fatalf("untagged entry recomputed: %v", calls)
	}
}

func TestInvalidateUnknownTagIsNoop(t *testing.T) {
	s := New()
	if _, err := s.GetOrCompute("k", time.Minute, []string{"a"}, func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("compute error: %v", err)
	}
	s.InvalidateTags("nope")
	if s.Len() != 1 {
		t.Fatalf("entry lost on unrelated invalidation")
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	s := New()
	calls := 0
	fn := func() (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return "ok", nil
	}

	if _, err := s.GetOrCompute("k", time.Minute, nil, fn); err == nil {
		t.Fatalf("expected error from first compute")
	}
	v, err := s.GetOrCompute("k", time.Minute, nil, fn)
	if err != nil {
		t.Fatalf("second compute error: %v", err)
	}
	if v.(string) != "ok" {
		t.Fatalf("unexpected value: %v", v)
	}
}

func TestConcurrentFillsCoalesce(t *testing.T) {
	s := New()
	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})
	fn := func() (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.GetOrCompute("k", time.Minute, nil, fn); err != nil {
				t.Errorf("compute error: %v", err)
			}
		}()
	}

	// Let the goroutines pile up on the same key before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
}
