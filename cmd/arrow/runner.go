package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/registry"
	"github.com/Comcast/arrow/storage"
	"github.com/Comcast/arrow/tools"
	. "github.com/Comcast/arrow/util/testutil"

	"github.com/jsccast/yaml"
	"go.uber.org/zap"
)

// MaxSteps bounds the node executions caused by one input line.
var MaxSteps = 1000

// Runner drives process instances from the command line.
//
// It's a simple executor: it follows ContinueActions depth-first,
// arms the error boundary events of an activity before running the
// activity, and disarms them when the activity completes.
type Runner struct {
	Group    string
	Store    storage.ProcessStore
	Registry *registry.Registry
	Deployer *bpmn.Deployer
	Logger   *zap.Logger

	// Out receives one JSON line per step.
	Out io.Writer
}

// Step is what's reported for each node execution.
type Step struct {
	Node     core.NodeRef `json:"node"`
	Instance string       `json:"instance"`
	Data     core.Data    `json:"data,omitempty"`
	Actions  []string     `json:"actions,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func describe(a core.Action) string {
	switch vv := a.(type) {
	case core.QueueAction:
		return "queue " + vv.Event.String() + " " + vv.NodeRef.String()
	case core.ContinueAction:
		return "continue " + vv.NodeRef.String()
	case core.CompleteAction:
		return "complete " + vv.NodeRef.String()
	default:
		return fmt.Sprintf("%#v", a)
	}
}

func (r *Runner) emit(x interface{}) {
	fmt.Fprintln(r.Out, JS(x))
}

// Listen processes lines until EOF or the ctx is done.
func (r *Runner) Listen(ctx context.Context, in io.Reader) error {
	s := bufio.NewScanner(in)
	for s.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.Do(ctx, line); err != nil {
			r.emit(map[string]interface{}{
				"error": err.Error(),
				"line":  line,
			})
		}
	}
	return s.Err()
}

// Do processes one line:
//
//	deploy FILENAME
//	undeploy PROCESS
//	subs
//	mermaid PROCESS
//	html PROCESS
//	analyze PROCESS
//	message NAME [DATA]
//	signal NAME [DATA]
//	error CODE
//
// DATA is YAML (or JSON) for the initial data of new instances.
func (r *Runner) Do(ctx context.Context, line string) error {
	parts := strings.SplitN(line, " ", 3)
	op := parts[0]
	arg := ""
	if 1 < len(parts) {
		arg = parts[1]
	}

	switch op {
	case "deploy":
		src, err := tools.ReadFileWithInlines(arg)
		if err != nil {
			return err
		}
		return r.Deploy(ctx, src)

	case "undeploy":
		n := r.Deployer.Undeploy(ctx, core.ProcessRef{Group: r.Group, ProcessID: arg})
		r.emit(map[string]interface{}{"undeployed": arg, "subscriptions": n})
		return nil

	case "subs":
		r.emit(r.Registry.Subscriptions())
		return nil

	case "mermaid", "html", "analyze":
		p, err := r.Store.ReadProcess(ctx, core.ProcessRef{Group: r.Group, ProcessID: arg})
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("process %s: %w", arg, core.ErrNotFound)
		}
		switch op {
		case "mermaid":
			return tools.Mermaid(p, r.Out, nil)
		case "analyze":
			a, err := tools.Analyze(ctx, p, r.Deployer.Parser.Scripts)
			if err != nil {
				return err
			}
			r.emit(a)
			return nil
		}
		return tools.RenderProcessPage(p, r.Out, nil, true)

	case "message", "signal", "error":
		if arg == "" {
			return fmt.Errorf("%s needs a name", op)
		}
		var data core.Data
		if len(parts) == 3 {
			if err := yaml.Unmarshal([]byte(parts[2]), &data); err != nil {
				return fmt.Errorf("bad data: %w", err)
			}
		}
		return r.Deliver(ctx, core.Event{
			Kind:  core.EventKind(op),
			Group: r.Group,
			Name:  arg,
		}, data)

	default:
		return fmt.Errorf("unknown op %q", op)
	}
}

// Deploy deploys the BPMN source to the Runner's group.
func (r *Runner) Deploy(ctx context.Context, src []byte) error {
	ps, err := r.Deployer.Deploy(ctx, r.Group, src)
	if err != nil {
		return err
	}
	for _, p := range ps {
		r.emit(map[string]interface{}{
			"deployed": p.ID,
			"version":  p.Version,
		})
	}
	return nil
}

// Deliver starts new instances for the event and resumes the
// instances that were waiting for it.
func (r *Runner) Deliver(ctx context.Context, event core.Event, data core.Data) error {
	starts, waiting := r.Deployer.Start(ctx, event)
	if len(starts) == 0 && len(waiting) == 0 {
		r.emit(map[string]interface{}{"unmatched": event})
		return nil
	}

	var pending []*core.State
	for _, st := range starts {
		for k, v := range data {
			st.Data[k] = v
		}
		pending = append(pending, st)
	}
	for _, sub := range waiting {
		st, err := r.Store.ReadState(ctx, sub.NodeRef)
		if err != nil {
			return err
		}
		st = st.Copy()
		st.Reentry = true
		pending = append(pending, st)
	}

	return r.run(ctx, pending)
}

// boundaries finds the error boundary events attached to the node.
func boundaries(p *core.Process, nodeID string) []*bpmn.ErrorBoundaryEvent {
	var acc []*bpmn.ErrorBoundaryEvent
	for _, id := range p.Order {
		if b, is := p.Nodes[id].(*bpmn.ErrorBoundaryEvent); is && b.AttachedTo == nodeID {
			acc = append(acc, b)
		}
	}
	return acc
}

func (r *Runner) run(ctx context.Context, pending []*core.State) error {
	for steps := 0; 0 < len(pending); steps++ {
		if MaxSteps <= steps {
			return fmt.Errorf("gave up after %d steps", steps)
		}
		st := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		next, err := r.step(ctx, st)
		if err != nil {
			return err
		}
		pending = append(pending, next...)
	}
	return nil
}

// step executes the node of the state and returns the states to run
// next.
func (r *Runner) step(ctx context.Context, st *core.State) ([]*core.State, error) {
	ref := st.NodeRef.ProcessRef()
	p, err := r.Store.ReadProcess(ctx, ref)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("process %s: %w", ref, core.ErrNotFound)
	}
	n, err := p.Node(st.NodeRef.NodeID)
	if err != nil {
		return nil, err
	}
	env := core.NewEnvironment(ref.Group, p)

	var armed []registry.Subscription
	if !st.Reentry {
		for _, b := range boundaries(p, n.ID()) {
			subs, err := r.arm(ctx, st.At(st.NodeRef.Sibling(b.Id)), b, env)
			if err != nil {
				return nil, err
			}
			armed = append(armed, subs...)
		}
	}

	out, actions, err := n.Execute(ctx, st, env)
	report := Step{
		Node:     st.NodeRef,
		Instance: st.InstanceID,
	}
	if err != nil {
		// The armed boundary events stay armed so that an error
		// can be delivered.
		report.Error = err.Error()
		r.emit(report)
		r.Logger.Warn("node failed",
			zap.Stringer("node", st.NodeRef),
			zap.Error(err))
		return nil, nil
	}
	for _, s := range armed {
		r.Registry.Remove(s)
	}
	if err := r.Store.WriteState(ctx, out); err != nil {
		return nil, err
	}

	report.Data = out.Data
	var next []*core.State
	for _, a := range actions {
		report.Actions = append(report.Actions, describe(a))
		switch vv := a.(type) {
		case core.ContinueAction:
			next = append(next, out.At(vv.NodeRef))
		case core.QueueAction:
			if err := r.Registry.Queue(vv); err != nil {
				return nil, err
			}
		}
	}
	r.emit(report)

	// Depth-first in document order.
	for i, j := 0, len(next)-1; i < j; i, j = i+1, j-1 {
		next[i], next[j] = next[j], next[i]
	}
	return next, nil
}

// arm runs the boundary event's first phase and stores its state so
// that the instance can be resumed.
//
// A boundary event that is already armed (by another instance that
// is waiting on it) is left alone: its state isn't overwritten and
// the subscription isn't returned, so it won't be disarmed when this
// activity succeeds.
func (r *Runner) arm(ctx context.Context, st *core.State, b *bpmn.ErrorBoundaryEvent, env core.Environment) ([]registry.Subscription, error) {
	out, actions, err := b.Execute(ctx, st, env)
	if err != nil {
		return nil, err
	}
	var acc []registry.Subscription
	for _, a := range actions {
		q, is := a.(core.QueueAction)
		if !is {
			continue
		}
		s := registry.Subscription{
			Event:          q.Event,
			NodeRef:        q.NodeRef,
			InstanceScoped: true,
		}
		if r.armed(s) {
			r.Logger.Debug("boundary event already armed",
				zap.Stringer("node", q.NodeRef))
			continue
		}
		if err := r.Store.WriteState(ctx, out); err != nil {
			return nil, err
		}
		if err := r.Registry.Queue(q); err != nil {
			return nil, err
		}
		acc = append(acc, s)
	}
	return acc, nil
}

func (r *Runner) armed(s registry.Subscription) bool {
	for _, x := range r.Registry.Match(s.Event) {
		if x == s {
			return true
		}
	}
	return false
}
