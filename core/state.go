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
	"encoding/json"

	"github.com/google/uuid"
)

// Data is the engine-specific data carried by a State.
type Data map[string]interface{}

// Copy makes a deep copy of the Data.  Nested maps and slices (as
// produced by JSON or YAML decoding) are copied.  Other values are
// shared.
func (d Data) Copy() Data {
	acc := make(Data, len(d))
	for k, v := range d {
		acc[k] = copyValue(v)
	}
	return acc
}

func copyValue(x interface{}) interface{} {
	switch vv := x.(type) {
	case Data:
		return vv.Copy()
	case map[string]interface{}:
		return map[string]interface{}(Data(vv).Copy())
	case map[interface{}]interface{}:
		acc := make(map[interface{}]interface{}, len(vv))
		for k, v := range vv {
			acc[k] = copyValue(v)
		}
		return acc
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = copyValue(v)
		}
		return acc
	default:
		return x
	}
}

// State is the mutable execution state of one node in one process
// instance.
//
// A State is owned by exactly one process instance.  Stores hold the
// authoritative copy; caches only hold transient copies.
type State struct {
	NodeRef NodeRef `json:"ref"`

	// InstanceID identifies the process instance that owns this
	// state.
	InstanceID string `json:"instance"`

	// Reentry is true when the node is being revisited (for
	// example, a boundary event after its event was delivered).
	Reentry bool `json:"reentry,omitempty"`

	Data Data `json:"data,omitempty"`
}

// NewState makes a State for the given node in a new instance.
func NewState(ref NodeRef) *State {
	return &State{
		NodeRef:    ref,
		InstanceID: uuid.NewString(),
		Data:       make(Data),
	}
}

// Copy makes a copy of the State, including a deep copy of its Data.
func (s *State) Copy() *State {
	if s == nil {
		return nil
	}
	return &State{
		NodeRef:    s.NodeRef,
		InstanceID: s.InstanceID,
		Reentry:    s.Reentry,
		Data:       s.Data.Copy(),
	}
}

// At returns a copy of the State positioned at the given node of the
// same instance.  The copy is not a reentry.
func (s *State) At(ref NodeRef) *State {
	acc := s.Copy()
	acc.NodeRef = ref
	acc.Reentry = false
	return acc
}

func (s *State) String() string {
	if s == nil {
		return "nil"
	}
	js, err := json.Marshal(s.Data)
	if err != nil {
		return s.NodeRef.String() + "/{*}"
	}
	return s.NodeRef.String() + "/" + string(js)
}
