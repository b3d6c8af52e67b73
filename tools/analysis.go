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

package tools

import (
	"context"
	"sort"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/scripts"
)

// ProcessAnalysis reports the structure of a process and the
// problems that can be found without running it.
type ProcessAnalysis struct {
	NodeCount   int
	Flows       int
	Conditions  int
	ScriptTasks int

	StartEvents []string
	Subscribes  []string

	// Terminal nodes have no outgoing flows.
	Terminal []string

	// DeadEnds are terminal nodes that aren't end events.
	DeadEnds []string

	// Orphans have no incoming flows but aren't start or boundary
	// events.
	Orphans []string

	Languages []string
	Errors    []string
}

// Analyze examines the process.
//
// When given a Factory, Analyze also compiles the scripts of script
// tasks and reports their failures as Errors.
func Analyze(ctx context.Context, p *core.Process, f *scripts.Factory) (*ProcessAnalysis, error) {
	a := &ProcessAnalysis{
		NodeCount: len(p.Nodes),
		Flows:     len(p.Flows),
		Errors:    make([]string, 0, 8),
	}

	targeted := make(map[string]bool, len(p.Nodes))
	for _, fl := range p.Flows {
		targeted[fl.Target] = true
		if fl.Condition != "" {
			a.Conditions++
		}
	}

	languages := make(map[string]bool)
	for _, id := range p.Order {
		n := p.Nodes[id]
		entry := false
		switch vv := n.(type) {
		case *bpmn.MessageStartEvent:
			entry = true
			a.StartEvents = append(a.StartEvents, id)
			a.Subscribes = append(a.Subscribes, core.MessageEvent("", vv.Message).Key())
		case *bpmn.SignalStartEvent:
			entry = true
			a.StartEvents = append(a.StartEvents, id)
			a.Subscribes = append(a.Subscribes, core.SignalEvent("", vv.Signal).Key())
		case *bpmn.NoneStartEvent:
			entry = true
			a.StartEvents = append(a.StartEvents, id)
		case *bpmn.ErrorBoundaryEvent:
			entry = true
		case *bpmn.ScriptTask:
			a.ScriptTasks++
			languages[vv.Language] = true
			if f != nil {
				if _, err := f.Script(ctx, vv.Language, vv.Script); err != nil {
					a.Errors = append(a.Errors, id+": "+err.Error())
				}
			}
		}

		if len(p.Outgoing(id)) == 0 {
			a.Terminal = append(a.Terminal, id)
			if _, is := n.(*bpmn.EndEvent); !is {
				a.DeadEnds = append(a.DeadEnds, id)
			}
		}
		if !entry && !targeted[id] {
			a.Orphans = append(a.Orphans, id)
		}
	}

	if len(a.StartEvents) == 0 {
		a.Errors = append(a.Errors, "no start events")
	}

	a.Languages = keys(languages)
	sort.Strings(a.Subscribes)

	return a, nil
}

func keys(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
