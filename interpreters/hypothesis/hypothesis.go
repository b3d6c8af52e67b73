// Package hypothesis provides a scripts.Engine for hypotheses, which
// are ECMAScript expressions that are either true or false for a
// State.
//
// The expression sees the same "_" as scripts run by the goja
// Engine.  The truth of the expression is written to the state's data
// at HypothesisKey.
package hypothesis

import (
	"context"

	"github.com/Comcast/arrow/core"
	jsengine "github.com/Comcast/arrow/interpreters/goja"
	"github.com/Comcast/arrow/scripts"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// HypothesisKey is the data key for the result.
var HypothesisKey = "hypothesis"

type Engine struct {
	js *jsengine.Engine
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		js: jsengine.NewEngine(logger),
	}
}

func (e *Engine) Parse(ctx context.Context, src string) (scripts.Script, error) {
	p, err := jsengine.Compile("(" + src + "\n);")
	if err != nil {
		return nil, err
	}
	return &Hypothesis{
		engine:  e,
		program: p,
		Source:  src,
	}, nil
}

type Hypothesis struct {
	engine  *Engine
	program *goja.Program
	Source  string
}

func (h *Hypothesis) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	v, err := h.engine.js.Run(ctx, h.program, st, env)
	if err != nil {
		return nil, nil, err
	}
	out := st.Copy()
	out.Data[HypothesisKey] = v.ToBoolean()
	return out, core.Proceed(out.NodeRef, env.OutgoingNodes(out.NodeRef.NodeID)), nil
}
