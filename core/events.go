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

// EventKind is the kind of an Event.
type EventKind string

const (
	MessageKind EventKind = "message"
	SignalKind  EventKind = "signal"
	ErrorKind   EventKind = "error"
)

// Event is something that can trigger a subscription: a message
// name, a signal name, or an error code, scoped by group.
type Event struct {
	Kind  EventKind `json:"kind"`
	Group string    `json:"group"`

	// Name is the message name, the signal name, or the error
	// code.  An ErrorEvent with an empty Name is used by boundary
	// events that catch any error.
	Name string `json:"name"`
}

// MessageEvent makes a message Event.
func MessageEvent(group, name string) Event {
	return Event{Kind: MessageKind, Group: group, Name: name}
}

// SignalEvent makes a signal Event.
func SignalEvent(group, name string) Event {
	return Event{Kind: SignalKind, Group: group, Name: name}
}

// ErrorEvent makes an error Event.
func ErrorEvent(group, code string) Event {
	return Event{Kind: ErrorKind, Group: group, Name: code}
}

// Key is a string that's equal for equal Events.
func (e Event) Key() string {
	return string(e.Kind) + "|" + e.Group + "|" + e.Name
}

func (e Event) String() string {
	return string(e.Kind) + "(" + e.Group + ", " + e.Name + ")"
}
