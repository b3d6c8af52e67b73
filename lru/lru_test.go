package lru

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Comcast/arrow/core"
	"github.com/google/go-cmp/cmp"
)

func TestNewRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := New[string, int](size)
		if err == nil {
			t.Fatalf("size %d accepted", size)
		}
		var ce *core.ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("%v is a %T, not a %T", err, err, ce)
		}
	}
}

func TestBound(t *testing.T) {
	c, err := New[int, int](3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		c.Put(i%7, i)
		if n := c.Len(); n > c.Size() {
			t.Fatalf("put %d: len %d > size %d", i, n, c.Size())
		}
	}
}

func TestEvictOldest(t *testing.T) {
	c, err := New[string, string](2)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", "a")
	c.Put("B", "b")
	c.Put("C", "c")

	if _, have := c.Get("A"); have {
		t.Fatal("A survived")
	}
	if _, have := c.Get("B"); !have {
		t.Fatal("B evicted")
	}
	if _, have := c.Get("C"); !have {
		t.Fatal("C evicted")
	}
}

func TestGetPromotes(t *testing.T) {
	c, err := New[string, string](2)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", "a")
	c.Put("B", "b")
	if v, have := c.Get("A"); !have || v != "a" {
		t.Fatalf("got %q %v", v, have)
	}
	c.Put("C", "c")

	if diff := cmp.Diff([]string{"C", "A"}, c.Keys()); diff != "" {
		t.Fatal(diff)
	}
	if _, have := c.Peek("B"); have {
		t.Fatal("B survived")
	}
}

func TestOverwrite(t *testing.T) {
	c, err := New[string, int](2)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", 1)
	c.Put("B", 2)
	c.Put("A", 3)
	if n := c.Len(); n != 2 {
		t.Fatalf("len %d", n)
	}
	if v, _ := c.Get("A"); v != 3 {
		t.Fatalf("got %d", v)
	}
	c.Put("C", 4)
	if _, have := c.Peek("B"); have {
		t.Fatal("B should have been the oldest")
	}
}

func TestMissHasNoSideEffect(t *testing.T) {
	c, err := New[string, int](2)
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", 1)
	c.Put("B", 2)
	if _, have := c.Get("Z"); have {
		t.Fatal("Z?")
	}
	if diff := cmp.Diff([]string{"B", "A"}, c.Keys()); diff != "" {
		t.Fatal(diff)
	}
}

func TestEvictHook(t *testing.T) {
	var evicted []string
	c, err := New[string, int](1, WithEvict(func(k string, v int) {
		evicted = append(evicted, fmt.Sprintf("%s=%d", k, v))
	}))
	if err != nil {
		t.Fatal(err)
	}
	c.Put("A", 1)
	c.Put("B", 2)
	if !c.Remove("B") {
		t.Fatal("B not removed")
	}
	if diff := cmp.Diff([]string{"A=1"}, evicted); diff != "" {
		t.Fatal(diff)
	}
}

func TestConcurrent(t *testing.T) {
	c, err := New[int, int](16)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Put(w*1000+i, i)
				c.Get(w*1000 + i/2)
			}
		}(w)
	}
	wg.Wait()
	if n := c.Len(); n != 16 {
		t.Fatalf("len %d", n)
	}
}
