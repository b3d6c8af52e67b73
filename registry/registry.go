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

// Package registry correlates events with the nodes that should react
// to them.
//
// A Registry is an explicitly constructed value that lives as long as
// the application.  Subscriptions are kept in an immutable table.
// Writers (deployments, arming boundary events) build a new table
// and publish it with a single pointer swap, so readers (event
// dispatch) never wait on a lock and never see a half-applied
// deployment.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Comcast/arrow/core"

	"go.uber.org/zap"
)

// Subscription correlates an Event with a node.
//
// A definition-scoped subscription (InstanceScoped false) belongs to
// a process definition and starts new instances.  An instance-scoped
// subscription belongs to a running instance and is consumed when it
// fires.
type Subscription struct {
	Event          core.Event   `json:"event"`
	NodeRef        core.NodeRef `json:"ref"`
	InstanceScoped bool         `json:"instanceScoped,omitempty"`
}

// table is never modified after it has been published.
type table struct {
	byEvent map[string][]Subscription
	n       int
}

func (t *table) clone() *table {
	m := make(map[string][]Subscription, len(t.byEvent))
	for k, subs := range t.byEvent {
		m[k] = subs
	}
	return &table{byEvent: m, n: t.n}
}

// add copies the slice it modifies.
func (t *table) add(s Subscription) {
	k := s.Event.Key()
	old := t.byEvent[k]
	subs := make([]Subscription, len(old), len(old)+1)
	copy(subs, old)
	t.byEvent[k] = append(subs, s)
	t.n++
}

// filter removes the subscriptions for which drop returns true.
func (t *table) filter(drop func(Subscription) bool) []Subscription {
	var dropped []Subscription
	for k, subs := range t.byEvent {
		var keep []Subscription
		changed := false
		for i, s := range subs {
			if drop(s) {
				if !changed {
					keep = append(make([]Subscription, 0, len(subs)), subs[:i]...)
					changed = true
				}
				dropped = append(dropped, s)
				continue
			}
			if changed {
				keep = append(keep, s)
			}
		}
		if !changed {
			continue
		}
		if len(keep) == 0 {
			delete(t.byEvent, k)
		} else {
			t.byEvent[k] = keep
		}
	}
	t.n -= len(dropped)
	return dropped
}

// conflict finds an existing subscription that the given one would
// duplicate.
//
// Only definition-scoped message and signal subscriptions can
// conflict, and only with another node of the same process.  The
// second result is true if the exact subscription already exists.
func conflict(subs []Subscription, s Subscription) (*Subscription, bool) {
	for i := range subs {
		x := subs[i]
		if x == s {
			return nil, true
		}
		if s.InstanceScoped || x.InstanceScoped || s.Event.Kind == core.ErrorKind {
			continue
		}
		if x.NodeRef.ProcessRef() == s.NodeRef.ProcessRef() {
			return &subs[i], false
		}
	}
	return nil, false
}

// Registry is the subscription table.
type Registry struct {
	logger *zap.Logger

	// mu serializes writers.
	mu      sync.Mutex
	current atomic.Pointer[table]
}

// New makes an empty Registry.  The logger can be nil.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger: logger,
	}
	r.current.Store(&table{byEvent: make(map[string][]Subscription)})
	return r
}

// CreateSubscription adds a subscription.
//
// Adding an existing subscription does nothing.  Adding a
// definition-scoped message or signal subscription when another node
// of the same process already has one for the same event is a
// *core.DuplicateSubscriptionError.
func (r *Registry) CreateSubscription(event core.Event, ref core.NodeRef, instanceScoped bool) error {
	s := Subscription{
		Event:          event,
		NodeRef:        ref,
		InstanceScoped: instanceScoped,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.current.Load()
	if x, same := conflict(t.byEvent[event.Key()], s); same {
		return nil
	} else if x != nil {
		return &core.DuplicateSubscriptionError{
			Event:    event,
			Existing: x.NodeRef,
			Node:     ref,
		}
	}

	t = t.clone()
	t.add(s)
	r.current.Store(t)

	r.logger.Debug("subscription created",
		zap.Stringer("event", event),
		zap.Stringer("node", ref),
		zap.Bool("instanceScoped", instanceScoped))

	return nil
}

// Queue arms the instance-scoped subscription requested by the
// QueueAction.
func (r *Registry) Queue(a core.QueueAction) error {
	return r.CreateSubscription(a.Event, a.NodeRef, true)
}

func match(t *table, event core.Event) []Subscription {
	subs := t.byEvent[event.Key()]
	var wild []Subscription
	if event.Kind == core.ErrorKind && event.Name != "" {
		// Error subscriptions without a code catch any error.
		wild = t.byEvent[core.ErrorEvent(event.Group, "").Key()]
	}
	acc := make([]Subscription, 0, len(subs)+len(wild))
	acc = append(acc, subs...)
	return append(acc, wild...)
}

// Match returns the subscriptions that the event matches.  Nothing is
// consumed.
//
// An event matches a subscription with the same kind, group, and
// name.  An error event also matches the error subscriptions (of its
// group) that have no error code.
func (r *Registry) Match(event core.Event) []Subscription {
	return match(r.current.Load(), event)
}

// Fire returns the subscriptions that the event matches and removes
// the instance-scoped ones among them.
func (r *Registry) Fire(event core.Event) []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.current.Load()
	matched := match(t, event)

	consumed := make(map[Subscription]bool, len(matched))
	for _, s := range matched {
		if s.InstanceScoped {
			consumed[s] = true
		}
	}
	if 0 < len(consumed) {
		t = t.clone()
		t.filter(func(s Subscription) bool {
			return consumed[s]
		})
		r.current.Store(t)
	}

	r.logger.Debug("event fired",
		zap.Stringer("event", event),
		zap.Int("matched", len(matched)),
		zap.Int("consumed", len(consumed)))

	return matched
}

// Remove deletes a subscription.  Reports whether it existed.
func (r *Registry) Remove(s Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.current.Load().clone()
	if len(t.filter(func(x Subscription) bool { return x == s })) == 0 {
		return false
	}
	r.current.Store(t)
	return true
}

// RemoveProcess deletes the definition-scoped subscriptions of the
// process and returns them.
func (r *Registry) RemoveProcess(ref core.ProcessRef) []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.current.Load().clone()
	dropped := t.filter(definitionOf(ref))
	if 0 < len(dropped) {
		r.current.Store(t)
	}
	return dropped
}

func definitionOf(ref core.ProcessRef) func(Subscription) bool {
	return func(s Subscription) bool {
		return !s.InstanceScoped && s.NodeRef.ProcessRef() == ref
	}
}

// Len is the number of subscriptions.
func (r *Registry) Len() int {
	return r.current.Load().n
}

// Subscriptions returns all subscriptions ordered by event and then
// node.
func (r *Registry) Subscriptions() []Subscription {
	t := r.current.Load()
	acc := make([]Subscription, 0, t.n)
	for _, subs := range t.byEvent {
		acc = append(acc, subs...)
	}
	sort.Slice(acc, func(i, j int) bool {
		a, b := acc[i], acc[j]
		if a.Event.Key() != b.Event.Key() {
			return a.Event.Key() < b.Event.Key()
		}
		return a.NodeRef.String() < b.NodeRef.String()
	})
	return acc
}
