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

package registry

import (
	"errors"

	"github.com/Comcast/arrow/core"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrCommitted is returned when a Deployment is used after Commit.
var ErrCommitted = errors.New("deployment already committed")

// Deployment stages the definition-scoped subscriptions of a new
// version of a process.
//
// A Deployment is a core.Registrar.  Start events register with it,
// and then Commit replaces the process's previous subscriptions with
// the staged ones in one step.  Nothing is visible to the Registry's
// readers before Commit.
//
// A Deployment is not safe for concurrent use.
type Deployment struct {
	registry  *Registry
	ref       core.ProcessRef
	staged    []Subscription
	errs      error
	committed bool
}

// Prepare starts a Deployment for the process.
func (r *Registry) Prepare(ref core.ProcessRef) *Deployment {
	return &Deployment{
		registry: r,
		ref:      ref,
	}
}

// CreateSubscription stages a subscription.
//
// The node must belong to the process being deployed.  Two nodes
// staging the same message or signal is a
// *core.DuplicateSubscriptionError.
func (d *Deployment) CreateSubscription(event core.Event, ref core.NodeRef, instanceScoped bool) error {
	if d.committed {
		return ErrCommitted
	}

	var err error
	s := Subscription{
		Event:          event,
		NodeRef:        ref,
		InstanceScoped: instanceScoped,
	}
	switch {
	case ref.ProcessRef() != d.ref:
		err = &core.ConfigurationError{
			Component: "deployment " + d.ref.String(),
			Problem:   "node " + ref.String() + " belongs to another process",
		}
	case instanceScoped:
		err = &core.ConfigurationError{
			Component: "deployment " + d.ref.String(),
			Problem:   "instance-scoped subscription for " + ref.String(),
		}
	default:
		var same []Subscription
		for _, x := range d.staged {
			if x.Event == event {
				same = append(same, x)
			}
		}
		if x, exists := conflict(same, s); exists {
			return nil
		} else if x != nil {
			err = &core.DuplicateSubscriptionError{
				Event:    event,
				Existing: x.NodeRef,
				Node:     ref,
			}
		}
	}

	if err != nil {
		d.errs = multierr.Append(d.errs, err)
		return err
	}
	d.staged = append(d.staged, s)
	return nil
}

// Staged returns the staged subscriptions.
func (d *Deployment) Staged() []Subscription {
	acc := make([]Subscription, len(d.staged))
	copy(acc, d.staged)
	return acc
}

// Err returns all the errors encountered during staging (if any).
func (d *Deployment) Err() error {
	return d.errs
}

// Commit publishes the staged subscriptions, removing the process's
// previous definition-scoped subscriptions at the same moment.
//
// If any staging failed, nothing changes and the staging errors are
// returned.  Instance-scoped subscriptions of the process's running
// instances are not affected.
func (d *Deployment) Commit() error {
	if d.committed {
		return ErrCommitted
	}
	if d.errs != nil {
		return d.errs
	}

	r := d.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.current.Load().clone()
	dropped := t.filter(definitionOf(d.ref))
	for _, s := range d.staged {
		t.add(s)
	}
	r.current.Store(t)
	d.committed = true

	r.logger.Info("subscriptions replaced",
		zap.Stringer("process", d.ref),
		zap.Int("removed", len(dropped)),
		zap.Int("added", len(d.staged)))

	return nil
}
