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

// Action is an output of node execution.
//
// Actions are consumed by an executor, which drives the actual
// advancement of a process.  The concrete types are QueueAction,
// ContinueAction, and CompleteAction.
type Action interface {
	// Ref is the node the action concerns.
	Ref() NodeRef

	action()
}

// QueueAction asks the executor to wait for the Event and then to
// revisit the node.
type QueueAction struct {
	NodeRef NodeRef `json:"ref"`
	Event   Event   `json:"event"`
}

// ContinueAction asks the executor to execute the node.
type ContinueAction struct {
	NodeRef NodeRef `json:"ref"`
}

// CompleteAction reports that the node is done.
type CompleteAction struct {
	NodeRef NodeRef `json:"ref"`
}

func (a QueueAction) Ref() NodeRef    { return a.NodeRef }
func (a ContinueAction) Ref() NodeRef { return a.NodeRef }
func (a CompleteAction) Ref() NodeRef { return a.NodeRef }

func (QueueAction) action()    {}
func (ContinueAction) action() {}
func (CompleteAction) action() {}

// Proceed returns the Actions for a node that has finished: a
// CompleteAction for the node followed by a ContinueAction for each
// of the given outgoing nodes.
func Proceed(ref NodeRef, outgoing []NodeRef) []Action {
	acc := make([]Action, 0, len(outgoing)+1)
	acc = append(acc, CompleteAction{NodeRef: ref})
	for _, next := range outgoing {
		acc = append(acc, ContinueAction{NodeRef: next})
	}
	return acc
}
