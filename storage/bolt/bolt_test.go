package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/storage"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ storage.ProcessStore = &Store{}
}

func decode(source []byte, id string) (*core.Process, error) {
	return &core.Process{ID: id, Source: source}, nil
}

func open(t *testing.T) (*Store, context.Context) {
	s, err := NewStore(filepath.Join(t.TempDir(), "storage.db"), decode, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(ctx); err != nil {
			t.Fatal(err)
		}
	})
	return s, ctx
}

func TestNeedsDecoder(t *testing.T) {
	if _, err := NewStore("x.db", nil, nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestProcesses(t *testing.T) {
	s, ctx := open(t)
	ref := core.ProcessRef{Group: "simpsons", ProcessID: "order"}

	p, err := s.ReadProcess(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("found a process in an empty store")
	}

	for v := 1; v <= 2; v++ {
		in := &core.Process{ID: "order", Version: v, Source: []byte("<xml/>")}
		if err := s.WriteProcess(ctx, "simpsons", in); err != nil {
			t.Fatal(err)
		}
	}

	if p, err = s.ReadProcess(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("lost the process")
	}
	if p.Version != 2 || string(p.Source) != "<xml/>" {
		t.Fatalf("got %#v", p)
	}

	other := core.ProcessRef{Group: "flanders", ProcessID: "order"}
	if p, err = s.ReadProcess(ctx, other); err != nil || p != nil {
		t.Fatalf("groups leaked: %v %v", p, err)
	}
}

func TestStates(t *testing.T) {
	s, ctx := open(t)
	ref := core.NodeRef{Group: "simpsons", ProcessID: "order", NodeID: "a"}

	if _, err := s.ReadState(ctx, ref); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v", err)
	}

	st := core.NewState(ref)
	st.Data["likes"] = "tacos"
	st.Reentry = true
	if err := s.WriteState(ctx, st); err != nil {
		t.Fatal(err)
	}

	check := func(what string) {
		got, err := s.ReadState(ctx, ref)
		if err != nil {
			t.Fatal(err)
		}
		if got.InstanceID != st.InstanceID || !got.Reentry || got.NodeRef != ref {
			t.Fatalf("got %#v", got)
		}
		if likes := got.Data["likes"]; likes != what {
			t.Fatalf(`"%s" != "%s"`, likes, what)
		}
	}
	check("tacos")

	st.Data["likes"] = "chips"
	if err := s.WriteState(ctx, st); err != nil {
		t.Fatal(err)
	}
	check("chips")
}

// BenchmarkBolt is just for fun.  Bolt is slow.
func BenchmarkBolt(b *testing.B) {
	s, err := NewStore(filepath.Join(b.TempDir(), "storage.db"), decode, nil)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		b.Fatal(err)
	}
	defer s.Close(ctx)

	st := core.NewState(core.NodeRef{Group: "g", ProcessID: "p", NodeID: "n"})
	st.Data["likes"] = "tacos"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%2 == 0 {
			err = s.WriteState(ctx, st)
		} else {
			_, err = s.ReadState(ctx, st.NodeRef)
		}
		if err != nil {
			b.Fatal(err)
		}
	}
}
