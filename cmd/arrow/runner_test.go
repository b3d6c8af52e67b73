package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Comcast/arrow/config"
	. "github.com/Comcast/arrow/util/testutil"

	"github.com/google/go-cmp/cmp"
)

var shopBPMN = `<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <bpmn:message id="m" name="order.created"/>
  <bpmn:error id="e" errorCode="PAYMENT"/>
  <bpmn:process id="order">
    <bpmn:startEvent id="start">
      <bpmn:messageEventDefinition messageRef="m"/>
    </bpmn:startEvent>
    <bpmn:scriptTask id="charge" scriptFormat="javascript">
      <bpmn:script>
        if (!_.data.amount) throw "PAYMENT";
        return {charged: true};
      </bpmn:script>
    </bpmn:scriptTask>
    <bpmn:boundaryEvent id="failed" attachedToRef="charge">
      <bpmn:errorEventDefinition errorRef="e"/>
    </bpmn:boundaryEvent>
    <bpmn:endEvent id="done"/>
    <bpmn:endEvent id="refund"/>
    <bpmn:sequenceFlow id="f1" sourceRef="start" targetRef="charge"/>
    <bpmn:sequenceFlow id="f2" sourceRef="charge" targetRef="done"/>
    <bpmn:sequenceFlow id="f3" sourceRef="failed" targetRef="refund"/>
  </bpmn:process>
</bpmn:definitions>`

func newRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Group = "shop"
	r, closer, err := NewRunner(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(closer)
	out := &bytes.Buffer{}
	r.Out = out
	if err := r.Deploy(context.Background(), []byte(shopBPMN)); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	return r, out
}

// visited returns the node ids of the reported steps.
func visited(t *testing.T, out *bytes.Buffer) []string {
	var acc []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var s Step
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			t.Fatalf("%s: %s", err, line)
		}
		id := s.Node.NodeID
		if s.Error != "" {
			id += "!"
		}
		acc = append(acc, id)
	}
	out.Reset()
	return acc
}

func TestRunnerHappyPath(t *testing.T) {
	r, out := newRunner(t)
	ctx := context.Background()
	if err := r.Do(ctx, "message order.created {amount: 12}"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"start", "charge", "done"}, visited(t, out)); diff != "" {
		t.Fatal(diff)
	}
	// The boundary event was disarmed.
	if n := r.Registry.Len(); n != 1 {
		t.Fatalf("%d subscriptions", n)
	}
}

func TestRunnerBoundaryEvent(t *testing.T) {
	r, out := newRunner(t)
	ctx := context.Background()
	if err := r.Do(ctx, "message order.created {amount: 0}"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"start", "charge!"}, visited(t, out)); diff != "" {
		t.Fatal(diff)
	}
	if n := r.Registry.Len(); n != 2 {
		t.Fatalf("%d subscriptions", n)
	}

	if err := r.Do(ctx, "error PAYMENT"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"failed", "refund"}, visited(t, out)); diff != "" {
		t.Fatal(diff)
	}
	if n := r.Registry.Len(); n != 1 {
		t.Fatalf("%d subscriptions", n)
	}
}

func TestRunnerArmedBoundaryIsShared(t *testing.T) {
	r, out := newRunner(t)
	ctx := context.Background()

	if err := r.Do(ctx, "message order.created {amount: 0}"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"start", "charge!"}, visited(t, out)); diff != "" {
		t.Fatal(diff)
	}

	// Another instance passes through the same activity and
	// succeeds.
	if err := r.Do(ctx, "message order.created {amount: 5}"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"start", "charge", "done"}, visited(t, out)); diff != "" {
		t.Fatal(diff)
	}
	if n := r.Registry.Len(); n != 2 {
		t.Fatalf("%d subscriptions", n)
	}

	// The failed instance can still be resumed.
	if err := r.Do(ctx, "error PAYMENT"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"failed", "refund"}, visited(t, out)); diff != "" {
		t.Fatal(diff)
	}
	if n := r.Registry.Len(); n != 1 {
		t.Fatalf("%d subscriptions", n)
	}
}

func TestRunnerOps(t *testing.T) {
	r, out := newRunner(t)
	ctx := context.Background()

	if err := r.Do(ctx, "signal nobody"); err != nil {
		t.Fatal(err)
	}
	xs, err := Lines(out.String())
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{
		Dwimjs(`{"unmatched":{"kind":"signal","group":"shop","name":"nobody"}}`),
	}
	if diff := cmp.Diff(want, xs); diff != "" {
		t.Fatal(diff)
	}
	out.Reset()

	if err := r.Do(ctx, "subs"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "order.created") {
		t.Fatal(out.String())
	}

	out.Reset()
	if err := r.Do(ctx, "mermaid order"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "graph LR") {
		t.Fatal(out.String())
	}
	out.Reset()
	if err := r.Do(ctx, "html order"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "<h1>order</h1>") {
		t.Fatal(out.String())
	}

	out.Reset()
	if err := r.Do(ctx, "analyze order"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"ScriptTasks":1`) {
		t.Fatal(out.String())
	}

	for _, bad := range []string{"dance", "message", "signal go {", "mermaid nope"} {
		if err := r.Do(ctx, bad); err == nil {
			t.Fatalf("%q: didn't protest", bad)
		}
	}

	if err := r.Listen(ctx, strings.NewReader("# comment\n\nundeploy order\n")); err != nil {
		t.Fatal(err)
	}
	if n := r.Registry.Len(); n != 0 {
		t.Fatalf("%d subscriptions", n)
	}
}
