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

package bpmn

import (
	"bytes"
	"context"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/registry"
	"github.com/Comcast/arrow/storage"

	"go.uber.org/zap"
)

// Deployer installs process definitions: it stores them and replaces
// the subscriptions of their previous versions.
type Deployer struct {
	Store    storage.ProcessStore
	Registry *registry.Registry
	Parser   *Parser
	Logger   *zap.Logger
}

// NewDeployer makes a Deployer.  The logger can be nil.
func NewDeployer(s storage.ProcessStore, r *registry.Registry, p *Parser, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deployer{
		Store:    s,
		Registry: r,
		Parser:   p,
		Logger:   logger,
	}
}

// Deploy parses the BPMN source and deploys all of its processes to
// the group.
//
// Each process gets the next version number for its id unless the
// source is unchanged, in which case the version stays the same.  If
// any process is rejected (for example, because two of its start
// events use the same signal), nothing is stored and no
// subscriptions change.
//
// All processes are stored before any subscriptions change.  If the
// store fails, the processes already written stay stored but no
// subscriptions change.
func (d *Deployer) Deploy(ctx context.Context, group string, source []byte) ([]*core.Process, error) {
	if err := core.CheckID("group", group); err != nil {
		return nil, err
	}
	ps, err := d.Parser.Parse(source)
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		if err := checkIDs(p); err != nil {
			return nil, err
		}
	}

	deployments := make([]*registry.Deployment, len(ps))
	for i, p := range ps {
		ref := core.ProcessRef{Group: group, ProcessID: p.ID}

		prev, err := d.Store.ReadProcess(ctx, ref)
		if err != nil {
			return nil, err
		}
		p.Version = 1
		if prev != nil {
			p.Version = prev.Version + 1
			if bytes.Equal(prev.Source, p.Source) {
				p.Version = prev.Version
			}
		}

		dep := d.Registry.Prepare(ref)
		if err := p.Register(group, dep); err != nil {
			d.Logger.Warn("deployment rejected",
				zap.Stringer("process", ref),
				zap.Error(err))
			return nil, err
		}
		deployments[i] = dep
	}

	for _, p := range ps {
		if err := d.Store.WriteProcess(ctx, group, p); err != nil {
			return nil, err
		}
	}

	for i, p := range ps {
		if err := deployments[i].Commit(); err != nil {
			return nil, err
		}
		d.Logger.Info("process deployed",
			zap.String("group", group),
			zap.String("process", p.ID),
			zap.Int("version", p.Version),
			zap.Int("subscriptions", len(deployments[i].Staged())))
	}

	return ps, nil
}

func checkIDs(p *core.Process) error {
	if err := core.CheckID("process", p.ID); err != nil {
		return err
	}
	for _, id := range p.Order {
		if err := core.CheckID("node", id); err != nil {
			return err
		}
	}
	return nil
}

// Undeploy removes the definition-scoped subscriptions of the
// process.  The stored definition stays so that running instances
// can finish.
func (d *Deployer) Undeploy(ctx context.Context, ref core.ProcessRef) int {
	n := len(d.Registry.RemoveProcess(ref))
	d.Logger.Info("process undeployed",
		zap.Stringer("process", ref),
		zap.Int("subscriptions", n))
	return n
}

// Start fires the event.  Each definition-scoped subscription that
// the event matches gets a State for a new instance, positioned at the
// start event.  The instance-scoped subscriptions that the event
// matched (and consumed) are returned for the executor, which knows
// the states of those instances.
func (d *Deployer) Start(ctx context.Context, event core.Event) ([]*core.State, []registry.Subscription) {
	var (
		starts  []*core.State
		waiting []registry.Subscription
	)
	for _, s := range d.Registry.Fire(event) {
		if s.InstanceScoped {
			waiting = append(waiting, s)
			continue
		}
		starts = append(starts, core.NewState(s.NodeRef))
	}
	return starts, waiting
}
