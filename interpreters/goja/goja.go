/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package goja provides a scripts.Engine for ECMAScript using Goja,
// which is a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/scripts"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Execute if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// Engine implements scripts.Engine.
//
// A script is the body of a function.  The function's result (if
// any) should be an object, which is merged into the state's data.
// The script can see the following:
//
//	_.data      the state's data (a copy)
//	_.group     the group
//	_.node      the node id
//	_.instance  the instance id
//	_.cronNext  returns the next time (RFC3339) for a cron expression
//	_.gensym    returns a random string
//	_.esc       URL query escaping
//	_.log       logs its argument at debug level
//
// TypeScript is accepted to the extent that it's also ECMAScript.
type Engine struct {
	// Testing exposes "sleep".
	Testing bool

	Logger *zap.Logger
}

// NewEngine makes a new Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Logger: logger,
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile compiles the source as is.
func Compile(src string) (*goja.Program, error) {
	p, err := goja.Compile("", src, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + src)
	}
	return p, nil
}

// Parse compiles the source as the body of a function.
func (e *Engine) Parse(ctx context.Context, src string) (scripts.Script, error) {
	p, err := Compile(wrapSrc(src))
	if err != nil {
		return nil, err
	}
	return &Script{
		engine:  e,
		program: p,
	}, nil
}

// Script is a compiled ECMAScript script.
type Script struct {
	engine  *Engine
	program *goja.Program
}

// Execute runs the script and merges its result into a copy of the
// state's data.  The node then proceeds along its outgoing flows.
func (s *Script) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	v, err := s.engine.Run(ctx, s.program, st, env)
	if err != nil {
		return nil, nil, err
	}

	out := st.Copy()
	switch vv := v.Export().(type) {
	case map[string]interface{}:
		for k, x := range vv {
			out.Data[k] = x
		}
	case nil:
	default:
		return nil, nil, fmt.Errorf("%#v (%T) isn't an object", vv, vv)
	}

	return out, core.Proceed(out.NodeRef, env.OutgoingNodes(out.NodeRef.NodeID)), nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Run executes the program in a fresh runtime set up for the state.
//
// The execution is interrupted when the ctx is done.
func (e *Engine) Run(ctx context.Context, p *goja.Program, st *core.State, env core.Environment) (goja.Value, error) {
	o := goja.New()

	data := map[string]interface{}{}
	if st.Data != nil {
		data = map[string]interface{}(st.Data.Copy())
	}

	scope := map[string]interface{}{
		"data":     data,
		"group":    env.Group(),
		"node":     st.NodeRef.NodeID,
		"instance": st.InstanceID,
	}

	scope["gensym"] = func() interface{} {
		return uuid.NewString()
	}

	scope["cronNext"] = func(x interface{}) interface{} {
		cronExpr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	scope["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	scope["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			e.Logger.Debug("script log (can't marshal)", zap.Error(err))
		} else {
			e.Logger.Debug("script log",
				zap.Stringer("node", st.NodeRef),
				zap.String("value", string(js)))
		}
		return x
	}

	if e.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	o.Set("_", scope)

	// Make sure the watcher terminates as soon as Run does.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If cancel() is called after RunProgram returns, the
		// interrupt is never seen, which is what we want.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return nil, Interrupted
		}
		return nil, err
	}
	return v, nil
}
