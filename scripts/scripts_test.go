package scripts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Comcast/arrow/core"
)

type countingEngine struct {
	parses int32
}

type echo struct {
	source string
}

func (s *echo) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	st = st.Copy()
	st.Data["source"] = s.source
	return st, core.Proceed(st.NodeRef, env.OutgoingNodes(st.NodeRef.NodeID)), nil
}

func (e *countingEngine) Parse(ctx context.Context, source string) (Script, error) {
	atomic.AddInt32(&e.parses, 1)
	if source == "bad" {
		return nil, errors.New("bad source")
	}
	return &echo{source: source}, nil
}

func newFactory(t *testing.T, size int) (*Factory, *countingEngine) {
	f, err := NewFactory(size, nil)
	if err != nil {
		t.Fatal(err)
	}
	e := &countingEngine{}
	f.Register("mustache", e)
	return f, e
}

func TestScriptIdempotence(t *testing.T) {
	f, e := newFactory(t, 4)
	ctx := context.Background()

	s1, err := f.Script(ctx, "mustache", "{{x}}")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := f.Script(ctx, "mustache", "{{x}}")
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("different scripts")
	}
	if n := atomic.LoadInt32(&e.parses); n != 1 {
		t.Fatalf("parsed %d times", n)
	}
}

func TestLanguageIsPartOfKey(t *testing.T) {
	f, e := newFactory(t, 4)
	f.Register("javascript", e)
	ctx := context.Background()

	s1, err := f.Script(ctx, "mustache", "x")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := f.Script(ctx, "javascript", "x")
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("shared a script across languages")
	}
	if Key("mustache", "x") == Key("javascript", "x") {
		t.Fatal("same key")
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	f, _ := newFactory(t, 4)
	_, err := f.Script(context.Background(), "cobol", "MOVE A TO B")
	var ule *core.UnsupportedLanguageError
	if !errors.As(err, &ule) {
		t.Fatalf("got %v", err)
	}
	if ule.Language != "cobol" {
		t.Fatalf("language %q", ule.Language)
	}
}

func TestParseErrorNotCached(t *testing.T) {
	f, e := newFactory(t, 4)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.Script(ctx, "mustache", "bad"); err == nil {
			t.Fatal("no error")
		}
	}
	if n := atomic.LoadInt32(&e.parses); n != 2 {
		t.Fatalf("parsed %d times", n)
	}
	if f.Len() != 0 {
		t.Fatal("cached a failure")
	}
}

func TestEviction(t *testing.T) {
	f, e := newFactory(t, 1)
	ctx := context.Background()
	for _, src := range []string{"a", "b", "a"} {
		if _, err := f.Script(ctx, "mustache", src); err != nil {
			t.Fatal(err)
		}
	}
	if n := atomic.LoadInt32(&e.parses); n != 3 {
		t.Fatalf("parsed %d times", n)
	}
}

func TestExecutable(t *testing.T) {
	f, _ := newFactory(t, 4)
	ctx := context.Background()

	p := &core.Process{
		ID:    "p",
		Flows: []core.SequenceFlow{{ID: "f", Source: "task", Target: "end"}},
	}
	env := core.NewEnvironment("g", p)
	st := core.NewState(core.NodeRef{Group: "g", ProcessID: "p", NodeID: "task"})

	exec, err := f.Executable(ctx, st, "mustache", "hello")
	if err != nil {
		t.Fatal(err)
	}
	out, actions, err := exec(ctx, st, env)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data["source"] != "hello" {
		t.Fatalf("data %#v", out.Data)
	}
	if len(actions) != 2 {
		t.Fatalf("actions %#v", actions)
	}
}

func TestConcurrentMissesParseOnce(t *testing.T) {
	f, err := NewFactory(4, nil)
	if err != nil {
		t.Fatal(err)
	}
	var parses int32
	release := make(chan struct{})
	f.Register("slow", EngineFunc(func(ctx context.Context, source string) (Script, error) {
		atomic.AddInt32(&parses, 1)
		<-release
		return &echo{source: source}, nil
	}))

	var wg sync.WaitGroup
	scripts := make([]Script, 8)
	for i := range scripts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.Script(context.Background(), "slow", "x")
			if err != nil {
				t.Error(err)
			}
			scripts[i] = s
		}(i)
	}
	close(release)
	wg.Wait()

	for _, s := range scripts[1:] {
		if s != scripts[0] {
			t.Fatal("different scripts")
		}
	}
	// Late arrivals can't parse again because the first result is
	// cached before the flight ends.
	if n := atomic.LoadInt32(&parses); n != 1 {
		t.Fatalf("parsed %d times", n)
	}
}
