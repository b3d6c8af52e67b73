// Package mustache provides a scripts.Engine for Mustache templates.
//
// A template is rendered with the state's data as its context, and
// the output is written to the state's data at OutputKey.
package mustache

import (
	"context"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/scripts"

	"github.com/cbroglie/mustache"
)

// OutputKey is the data key for rendered output.
var OutputKey = "output"

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Parse(ctx context.Context, src string) (scripts.Script, error) {
	t, err := mustache.ParseString(src)
	if err != nil {
		return nil, err
	}
	return &Template{t: t}, nil
}

type Template struct {
	t *mustache.Template
}

func (t *Template) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	s, err := t.t.Render(map[string]interface{}(st.Data))
	if err != nil {
		return nil, nil, err
	}
	out := st.Copy()
	out.Data[OutputKey] = s
	return out, core.Proceed(out.NodeRef, env.OutgoingNodes(out.NodeRef.NodeID)), nil
}
