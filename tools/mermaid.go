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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/core"
)

type MermaidOpts struct {
	// ShowConditions labels conditional flows with their
	// condition expressions.
	ShowConditions bool `json:"showConditions"`

	// TaskFill is the fill color for tasks.  Does not apply if
	// TaskClass is set.
	TaskFill string `json:"taskFill,omitempty"`

	// TaskClass will be the CSS class for tasks.
	TaskClass string `json:"taskClass,omitempty"`
}

// DefaultMermaidOpts are used when Mermaid is given nil options.
var DefaultMermaidOpts = MermaidOpts{
	ShowConditions: true,
	TaskFill:       "#bcf2db",
}

func label(id, name string) string {
	if name == "" {
		name = id
	}
	return strings.Replace(name, `"`, `'`, -1)
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given process.
//
// Events are drawn as circles and tasks as boxes.  An error boundary
// event has a dotted link from the activity it's attached to.
func Mermaid(p *core.Process, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &DefaultMermaidOpts
	}

	f := func(format string, args ...interface{}) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	f("graph LR")

	nids := make(map[string]string, len(p.Nodes))
	for i, id := range p.Order {
		nids[id] = fmt.Sprintf("n%d", i+1)
	}

	var attached []*bpmn.ErrorBoundaryEvent
	for _, id := range p.Order {
		nid := nids[id]
		switch vv := p.Nodes[id].(type) {
		case *bpmn.MessageStartEvent:
			f(`  %s(("message: %s"))`, nid, label(vv.Id, vv.Message))
		case *bpmn.SignalStartEvent:
			f(`  %s(("signal: %s"))`, nid, label(vv.Id, vv.Signal))
		case *bpmn.NoneStartEvent:
			f(`  %s(("%s"))`, nid, label(vv.Id, vv.Name))
		case *bpmn.EndEvent:
			f(`  %s((("%s")))`, nid, label(vv.Id, vv.Name))
		case *bpmn.ErrorBoundaryEvent:
			code := vv.Error
			if code == "" {
				code = "*"
			}
			f(`  %s(("error: %s"))`, nid, label(vv.Id, code))
			attached = append(attached, vv)
		case *bpmn.ScriptTask:
			f(`  %s["%s"]`, nid, label(vv.Id, vv.Name))
			if opts.TaskClass != "" {
				f("  class %s %s", nid, opts.TaskClass)
			} else if opts.TaskFill != "" {
				f("  style %s fill:%s", nid, opts.TaskFill)
			}
		default:
			f(`  %s["%s"]`, nid, label(id, ""))
		}
	}

	for _, b := range attached {
		f("  %s -.- %s", nids[b.AttachedTo], nids[b.Id])
	}

	for _, fl := range p.Flows {
		if opts.ShowConditions && fl.Condition != "" {
			f(`  %s -- "%s" --> %s`, nids[fl.Source], label("", fl.Condition), nids[fl.Target])
		} else {
			f("  %s --> %s", nids[fl.Source], nids[fl.Target])
		}
	}

	return nil
}
