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

import "strings"

// Separators are the characters that join the parts of reference and
// event keys.  Groups, process ids, and node ids can't contain them.
const Separators = ":|"

// CheckID reports a ConfigurationError if the id contains one of the
// Separators.
func CheckID(what, id string) error {
	if strings.ContainsAny(id, Separators) {
		return &ConfigurationError{
			Component: what,
			Problem:   `"` + id + `" contains one of "` + Separators + `"`,
		}
	}
	return nil
}

// ProcessRef identifies a process definition within a group.
//
// The group is a tenant or namespace partition.  The ProcessID is the
// BPMN process id.  Versions are a deployment policy and are not part
// of the reference.
type ProcessRef struct {
	Group     string `json:"group"`
	ProcessID string `json:"process"`
}

func (r ProcessRef) String() string {
	return r.Group + ":" + r.ProcessID
}

// Node returns a NodeRef for the given node in this process.
func (r ProcessRef) Node(id string) NodeRef {
	return NodeRef{
		Group:     r.Group,
		ProcessID: r.ProcessID,
		NodeID:    id,
	}
}

// NodeRef identifies a single execution point within a process.
type NodeRef struct {
	Group     string `json:"group"`
	ProcessID string `json:"process"`
	NodeID    string `json:"node"`
}

func (r NodeRef) String() string {
	return r.Group + ":" + r.ProcessID + ":" + r.NodeID
}

// ProcessRef drops the node id.
func (r NodeRef) ProcessRef() ProcessRef {
	return ProcessRef{
		Group:     r.Group,
		ProcessID: r.ProcessID,
	}
}

// Sibling returns a reference to another node in the same process.
func (r NodeRef) Sibling(id string) NodeRef {
	r.NodeID = id
	return r
}
