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

// These errors are caller errors.  They are not retried anywhere in
// this module.

import (
	"errors"
	"strings"
)

// ErrNotFound is wrapped by stores when a state or process is absent.
var ErrNotFound = errors.New("not found")

// ConfigurationError occurs when something is constructed with bad
// parameters (for example, a cache with a non-positive size).
type ConfigurationError struct {
	Component string
	Problem   string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Component + ": " + e.Problem
}

// UnresolvedNamespaceError occurs when a qualified XML name uses a
// prefix that isn't in the namespace map.  It's a kind of
// configuration error.
type UnresolvedNamespaceError struct {
	Prefix string
	Name   string
}

func (e *UnresolvedNamespaceError) Error() string {
	return `unresolved namespace prefix "` + e.Prefix + `" in "` + e.Name + `"`
}

// UnsupportedLanguageError occurs when a script is requested for a
// language that no engine has been registered for.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return `unsupported script language "` + e.Language + `"`
}

// DuplicateSubscriptionError occurs when two start events of one
// process definition subscribe to the same message or signal.
type DuplicateSubscriptionError struct {
	Event    Event
	Existing NodeRef
	Node     NodeRef
}

func (e *DuplicateSubscriptionError) Error() string {
	var b strings.Builder
	b.WriteString("duplicate ")
	b.WriteString(string(e.Event.Kind))
	b.WriteString(` subscription "`)
	b.WriteString(e.Event.Name)
	b.WriteString(`" in process "`)
	b.WriteString(e.Node.ProcessID)
	b.WriteString(`": node "`)
	b.WriteString(e.Node.NodeID)
	b.WriteString(`" conflicts with node "`)
	b.WriteString(e.Existing.NodeID)
	b.WriteString(`"`)
	return b.String()
}

// UnknownNode occurs when a process refers to a node it doesn't have.
type UnknownNode struct {
	ProcessID string
	NodeID    string
}

func (e *UnknownNode) Error() string {
	return `node "` + e.NodeID + `" not found in process "` + e.ProcessID + `"`
}
