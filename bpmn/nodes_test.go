package bpmn

import (
	"context"
	"testing"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/registry"

	"github.com/google/go-cmp/cmp"
)

// env is an Environment with fixed edges.
type env struct {
	group string
	edges map[string][]core.NodeRef
}

func (e *env) Group() string {
	return e.group
}

func (e *env) OutgoingNodes(id string) []core.NodeRef {
	return e.edges[id]
}

var ref = core.ProcessRef{Group: "g", ProcessID: "p"}

func TestErrorBoundaryEventTwoPhases(t *testing.T) {
	ctx := context.Background()
	n1, n2 := ref.Node("n1"), ref.Node("n2")
	e := &env{
		group: "g",
		edges: map[string][]core.NodeRef{"E1": {n1, n2}},
	}
	b := &ErrorBoundaryEvent{Id: "E1", AttachedTo: "task", Error: "E1"}

	st := &core.State{NodeRef: ref.Node("E1"), InstanceID: "i"}
	armed, actions, err := b.Execute(ctx, st, e)
	if err != nil {
		t.Fatal(err)
	}
	want := []core.Action{
		core.QueueAction{NodeRef: ref.Node("E1"), Event: core.ErrorEvent("g", "E1")},
	}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Fatal(diff)
	}
	if !armed.Reentry {
		t.Fatal("not armed")
	}
	if st.Reentry {
		t.Fatal("input state modified")
	}

	_, actions, err = b.Execute(ctx, &core.State{NodeRef: ref.Node("E1"), Reentry: true}, e)
	if err != nil {
		t.Fatal(err)
	}
	want = []core.Action{
		core.CompleteAction{NodeRef: ref.Node("E1")},
		core.ContinueAction{NodeRef: n1},
		core.ContinueAction{NodeRef: n2},
	}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Fatal(diff)
	}
}

func TestErrorBoundaryEventWithoutCode(t *testing.T) {
	b := &ErrorBoundaryEvent{Id: "B", AttachedTo: "task"}
	_, actions, err := b.Execute(context.Background(), &core.State{NodeRef: ref.Node("B")}, &env{group: "g"})
	if err != nil {
		t.Fatal(err)
	}
	q, is := actions[0].(core.QueueAction)
	if !is {
		t.Fatalf("got a %T", actions[0])
	}

	// The armed subscription catches any error in the group.
	r := registry.New(nil)
	if err := r.Queue(q); err != nil {
		t.Fatal(err)
	}
	if n := len(r.Match(core.ErrorEvent("g", "whatever"))); n != 1 {
		t.Fatalf("matched %d", n)
	}
}

func TestStartEventsRegister(t *testing.T) {
	r := registry.New(nil)
	m := &MessageStartEvent{NoneStartEvent: NoneStartEvent{Id: "m"}, Message: "order.created"}
	s := &SignalStartEvent{NoneStartEvent: NoneStartEvent{Id: "s"}, Signal: "go"}

	for _, n := range []core.Registrable{m, s} {
		if err := n.WithEventRegistry(ref, r); err != nil {
			t.Fatal(err)
		}
	}

	want := []registry.Subscription{
		{Event: core.MessageEvent("g", "order.created"), NodeRef: ref.Node("m")},
		{Event: core.SignalEvent("g", "go"), NodeRef: ref.Node("s")},
	}
	if diff := cmp.Diff(want, r.Subscriptions()); diff != "" {
		t.Fatal(diff)
	}
}

func TestStartAndEndEvents(t *testing.T) {
	ctx := context.Background()
	e := &env{group: "g", edges: map[string][]core.NodeRef{"start": {ref.Node("end")}}}

	start := &SignalStartEvent{NoneStartEvent: NoneStartEvent{Id: "start"}, Signal: "go"}
	_, actions, err := start.Execute(ctx, core.NewState(ref.Node("start")), e)
	if err != nil {
		t.Fatal(err)
	}
	want := []core.Action{
		core.CompleteAction{NodeRef: ref.Node("start")},
		core.ContinueAction{NodeRef: ref.Node("end")},
	}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Fatal(diff)
	}

	end := &EndEvent{Id: "end"}
	_, actions, err = end.Execute(ctx, core.NewState(ref.Node("end")), e)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]core.Action{core.CompleteAction{NodeRef: ref.Node("end")}}, actions); diff != "" {
		t.Fatal(diff)
	}
}
