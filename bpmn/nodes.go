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

// Package bpmn reads BPMN process definitions into core.Processes and
// deploys them.
//
// The supported elements are start events (none, message, and
// signal), error boundary events, end events, script tasks, and
// sequence flows.
package bpmn

import (
	"context"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/scripts"
)

// NoneStartEvent starts a process without a trigger.
type NoneStartEvent struct {
	Id   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (e *NoneStartEvent) ID() string {
	return e.Id
}

// Execute completes the event and continues along its outgoing
// flows.
func (e *NoneStartEvent) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	self := st.NodeRef.Sibling(e.Id)
	return st, core.Proceed(self, env.OutgoingNodes(e.Id)), nil
}

// MessageStartEvent starts a process when a message arrives.
//
// Message names must be unique among the start events of a process.
type MessageStartEvent struct {
	NoneStartEvent
	Message string `json:"message"`
}

func (e *MessageStartEvent) WithEventRegistry(ref core.ProcessRef, r core.Registrar) error {
	return r.CreateSubscription(core.MessageEvent(ref.Group, e.Message), ref.Node(e.Id), false)
}

// SignalStartEvent starts a process when a signal is broadcast.
//
// Signal names must be unique among the start events of a process,
// but other processes can use the same signals.
type SignalStartEvent struct {
	NoneStartEvent
	Signal string `json:"signal"`
}

func (e *SignalStartEvent) WithEventRegistry(ref core.ProcessRef, r core.Registrar) error {
	return r.CreateSubscription(core.SignalEvent(ref.Group, e.Signal), ref.Node(e.Id), false)
}

// ErrorBoundaryEvent catches an error thrown by the activity it's
// attached to.
//
// Execution is in two phases.  The first visit arms the catch with a
// QueueAction.  The executor revisits the node (as a reentry) when a
// matching error is delivered, and then the event completes and
// continues along its outgoing flows.
type ErrorBoundaryEvent struct {
	Id         string `json:"id"`
	Name       string `json:"name,omitempty"`
	AttachedTo string `json:"attachedTo"`

	// Error is the error code to catch.  An empty Error catches
	// any error.
	Error string `json:"error,omitempty"`

	CancelActivity bool `json:"cancelActivity"`
}

func (e *ErrorBoundaryEvent) ID() string {
	return e.Id
}

func (e *ErrorBoundaryEvent) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	self := st.NodeRef.Sibling(e.Id)
	out := st.Copy()

	if st.Reentry {
		out.Reentry = false
		return out, core.Proceed(self, env.OutgoingNodes(e.Id)), nil
	}

	out.Reentry = true
	return out, []core.Action{
		core.QueueAction{
			NodeRef: self,
			Event:   core.ErrorEvent(env.Group(), e.Error),
		},
	}, nil
}

// EndEvent ends a path through a process.
type EndEvent struct {
	Id   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (e *EndEvent) ID() string {
	return e.Id
}

func (e *EndEvent) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	return st, []core.Action{core.CompleteAction{NodeRef: st.NodeRef.Sibling(e.Id)}}, nil
}

// ScriptTask runs a script obtained from a scripts.Factory.
type ScriptTask struct {
	Id       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language"`
	Script   string `json:"script"`

	scripts *scripts.Factory
}

func (t *ScriptTask) ID() string {
	return t.Id
}

func (t *ScriptTask) Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error) {
	exec, err := t.scripts.Executable(ctx, st, t.Language, t.Script)
	if err != nil {
		return nil, nil, err
	}
	return exec(ctx, st.At(st.NodeRef.Sibling(t.Id)), env)
}
