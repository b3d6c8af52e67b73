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

package core

import (
	"context"

	"go.uber.org/multierr"
)

// Node is an executable element of a Process.
type Node interface {
	ID() string

	// Execute runs the node for the given State.  Execute should
	// not block or perform IO.  It returns the updated State and
	// the Actions for the executor.
	Execute(ctx context.Context, st *State, env Environment) (*State, []Action, error)
}

// Registrar accepts subscriptions.
type Registrar interface {
	CreateSubscription(event Event, ref NodeRef, instanceScoped bool) error
}

// Registrable is implemented by nodes that subscribe to events when
// their Process is deployed.
type Registrable interface {
	WithEventRegistry(ref ProcessRef, r Registrar) error
}

// Environment is what a Node sees of the world during execution.
type Environment interface {
	Group() string

	// OutgoingNodes returns the targets of the node's outgoing
	// sequence flows.
	OutgoingNodes(nodeID string) []NodeRef
}

// SequenceFlow is a directed edge between two nodes.
type SequenceFlow struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`

	// Condition is an optional condition expression.  This
	// package does not evaluate it.
	Condition string `json:"condition,omitempty"`
}

// Process is a parsed BPMN process definition.
//
// A Process is immutable once parsed and is shared by all instances.
type Process struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version int    `json:"version"`

	// Doc is the process documentation (markdown).
	Doc string `json:"doc,omitempty"`

	Nodes map[string]Node `json:"-"`
	Flows []SequenceFlow  `json:"flows,omitempty"`

	// Order is the document order of the node ids.
	Order []string `json:"order,omitempty"`

	// Source is the BPMN XML the process was parsed from.
	Source []byte `json:"-"`
}

// Node finds the node with the given id.
func (p *Process) Node(id string) (Node, error) {
	n, have := p.Nodes[id]
	if !have {
		return nil, &UnknownNode{ProcessID: p.ID, NodeID: id}
	}
	return n, nil
}

// Outgoing returns the ids of the targets of the node's outgoing
// flows in document order.
func (p *Process) Outgoing(nodeID string) []string {
	var acc []string
	for _, f := range p.Flows {
		if f.Source == nodeID {
			acc = append(acc, f.Target)
		}
	}
	return acc
}

// Registrables returns the nodes that subscribe at deployment, in
// document order.
func (p *Process) Registrables() []Registrable {
	var acc []Registrable
	for _, id := range p.Order {
		if r, is := p.Nodes[id].(Registrable); is {
			acc = append(acc, r)
		}
	}
	return acc
}

// Register has every Registrable node of the Process subscribe with
// the given Registrar.  All nodes are tried, and all errors are
// returned.
func (p *Process) Register(group string, r Registrar) error {
	var errs error
	ref := ProcessRef{Group: group, ProcessID: p.ID}
	for _, n := range p.Registrables() {
		errs = multierr.Append(errs, n.WithEventRegistry(ref, r))
	}
	return errs
}

// ProcessEnvironment is an Environment for one Process in a group.
type ProcessEnvironment struct {
	group   string
	process *Process
}

// NewEnvironment makes an Environment for the given Process.
func NewEnvironment(group string, p *Process) *ProcessEnvironment {
	return &ProcessEnvironment{
		group:   group,
		process: p,
	}
}

func (e *ProcessEnvironment) Group() string {
	return e.group
}

func (e *ProcessEnvironment) OutgoingNodes(nodeID string) []NodeRef {
	ids := e.process.Outgoing(nodeID)
	acc := make([]NodeRef, len(ids))
	for i, id := range ids {
		acc[i] = NodeRef{
			Group:     e.group,
			ProcessID: e.process.ID,
			NodeID:    id,
		}
	}
	return acc
}
