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
	"fmt"
	"strings"

	"github.com/Comcast/arrow/bpmn/xmlelem"
	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/scripts"

	"go.uber.org/zap"
)

// Parser turns BPMN XML into core.Processes.
type Parser struct {
	// Scripts is used by script tasks.  Required only if a
	// process has script tasks.
	Scripts *scripts.Factory

	Logger *zap.Logger
}

// NewParser makes a Parser.  Both arguments can be nil.
func NewParser(f *scripts.Factory, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		Scripts: f,
		Logger:  logger,
	}
}

// definitions are the top-level declarations that events refer to.
type definitions struct {
	messages map[string]string
	signals  map[string]string
	errors   map[string]string
}

func declarations(root *xmlelem.Element, tag, attr string) (map[string]string, error) {
	es, err := root.Tags(tag)
	if err != nil {
		return nil, err
	}
	acc := make(map[string]string, len(es))
	for _, e := range es {
		id, err := e.Attribute("id", "")
		if err != nil {
			return nil, err
		}
		name, err := e.Attribute("name", id)
		if err != nil {
			return nil, err
		}
		if attr != "name" {
			if name, err = e.Attribute(attr, name); err != nil {
				return nil, err
			}
		}
		acc[id] = name
	}
	return acc, nil
}

func readDefinitions(root *xmlelem.Element) (*definitions, error) {
	var (
		defs = &definitions{}
		err  error
	)
	if defs.messages, err = declarations(root, "bpmn:message", "name"); err != nil {
		return nil, err
	}
	if defs.signals, err = declarations(root, "bpmn:signal", "name"); err != nil {
		return nil, err
	}
	if defs.errors, err = declarations(root, "bpmn:error", "errorCode"); err != nil {
		return nil, err
	}
	return defs, nil
}

// Parse reads all the processes in the BPMN document.
func (p *Parser) Parse(source []byte) ([]*core.Process, error) {
	root, err := xmlelem.Parse(source)
	if err != nil {
		return nil, err
	}
	if is, err := root.Is("bpmn:definitions"); err != nil {
		return nil, err
	} else if !is {
		return nil, fmt.Errorf("root element is %s, not definitions", root.LocalName())
	}

	defs, err := readDefinitions(root)
	if err != nil {
		return nil, err
	}

	es, err := root.Tags("bpmn:process")
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		return nil, fmt.Errorf("no processes")
	}

	acc := make([]*core.Process, 0, len(es))
	for _, e := range es {
		proc, err := p.process(e, defs)
		if err != nil {
			return nil, err
		}
		proc.Source = source
		acc = append(acc, proc)
	}
	return acc, nil
}

// ParseProcess reads the process with the given id.
func (p *Parser) ParseProcess(source []byte, id string) (*core.Process, error) {
	ps, err := p.Parse(source)
	if err != nil {
		return nil, err
	}
	for _, proc := range ps {
		if proc.ID == id {
			return proc, nil
		}
	}
	return nil, fmt.Errorf("process %s: %w", id, core.ErrNotFound)
}

func (p *Parser) process(e *xmlelem.Element, defs *definitions) (*core.Process, error) {
	id, err := e.Attribute("id", "")
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("process without an id")
	}
	name, err := e.Attribute("name", "")
	if err != nil {
		return nil, err
	}

	proc := &core.Process{
		ID:    id,
		Name:  name,
		Nodes: make(map[string]core.Node),
	}

	for _, c := range e.Children() {
		if c.NamespaceURI() != xmlelem.BPMN {
			continue
		}
		n, err := p.element(c, defs)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", id, err)
		}

		switch vv := n.(type) {
		case nil:
		case *core.SequenceFlow:
			proc.Flows = append(proc.Flows, *vv)
		case *documentation:
			proc.Doc = vv.text
		case core.Node:
			if _, have := proc.Nodes[vv.ID()]; have {
				return nil, fmt.Errorf("process %s: duplicate node id %s", id, vv.ID())
			}
			proc.Nodes[vv.ID()] = vv
			proc.Order = append(proc.Order, vv.ID())
		}
	}

	for _, f := range proc.Flows {
		for _, end := range []string{f.Source, f.Target} {
			if _, err := proc.Node(end); err != nil {
				return nil, fmt.Errorf("sequence flow %s: %w", f.ID, err)
			}
		}
	}
	for _, n := range proc.Nodes {
		if b, is := n.(*ErrorBoundaryEvent); is {
			if _, err := proc.Node(b.AttachedTo); err != nil {
				return nil, fmt.Errorf("boundary event %s: %w", b.Id, err)
			}
		}
	}

	p.Logger.Debug("process parsed",
		zap.String("process", id),
		zap.Int("nodes", len(proc.Nodes)),
		zap.Int("flows", len(proc.Flows)))

	return proc, nil
}

type documentation struct {
	text string
}

// attrs reads the named attributes, stopping at the first error.
func attrs(e *xmlelem.Element, names ...string) ([]string, error) {
	acc := make([]string, len(names))
	for i, name := range names {
		v, err := e.Attribute(name, "")
		if err != nil {
			return nil, err
		}
		acc[i] = v
	}
	return acc, nil
}

// element returns a core.Node, a *core.SequenceFlow, a
// *documentation, or nil for elements that don't matter.
func (p *Parser) element(e *xmlelem.Element, defs *definitions) (interface{}, error) {
	switch e.LocalName() {
	case "documentation":
		return &documentation{text: e.Text(true)}, nil

	case "extensionElements", "laneSet":
		return nil, nil

	case "sequenceFlow":
		as, err := attrs(e, "id", "sourceRef", "targetRef")
		if err != nil {
			return nil, err
		}
		f := &core.SequenceFlow{ID: as[0], Source: as[1], Target: as[2]}
		if c, err := e.Tag("bpmn:conditionExpression"); err != nil {
			return nil, err
		} else if c != nil {
			f.Condition = c.Text(true)
		}
		return f, nil

	case "startEvent":
		return p.startEvent(e, defs)

	case "boundaryEvent":
		return p.boundaryEvent(e, defs)

	case "endEvent":
		as, err := attrs(e, "id", "name")
		if err != nil {
			return nil, err
		}
		return &EndEvent{Id: as[0], Name: as[1]}, nil

	case "scriptTask":
		return p.scriptTask(e)

	default:
		id, _ := e.Attribute("id", "")
		return nil, fmt.Errorf("unsupported element %s %s", e.LocalName(), id)
	}
}

// eventName resolves the reference of an event definition.  The
// vendor attribute arrow:name, if present, wins.  An unknown
// reference is used as the name.
func eventName(def *xmlelem.Element, refAttr string, declared map[string]string) (string, error) {
	if name, err := def.Attribute("arrow:name", ""); err != nil || name != "" {
		return name, err
	}
	ref, err := def.Attribute(refAttr, "")
	if err != nil {
		return "", err
	}
	if name, have := declared[ref]; have {
		return name, nil
	}
	return ref, nil
}

func (p *Parser) startEvent(e *xmlelem.Element, defs *definitions) (core.Node, error) {
	as, err := attrs(e, "id", "name")
	if err != nil {
		return nil, err
	}
	none := NoneStartEvent{Id: as[0], Name: as[1]}

	if def, err := e.Tag("bpmn:messageEventDefinition"); err != nil {
		return nil, err
	} else if def != nil {
		name, err := eventName(def, "messageRef", defs.messages)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("message start event %s has no message", none.Id)
		}
		return &MessageStartEvent{NoneStartEvent: none, Message: name}, nil
	}

	if def, err := e.Tag("bpmn:signalEventDefinition"); err != nil {
		return nil, err
	} else if def != nil {
		name, err := eventName(def, "signalRef", defs.signals)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("signal start event %s has no signal", none.Id)
		}
		return &SignalStartEvent{NoneStartEvent: none, Signal: name}, nil
	}

	return &none, nil
}

func (p *Parser) boundaryEvent(e *xmlelem.Element, defs *definitions) (core.Node, error) {
	as, err := attrs(e, "id", "name", "attachedToRef")
	if err != nil {
		return nil, err
	}
	cancel, err := e.Attribute("cancelActivity", "true")
	if err != nil {
		return nil, err
	}

	def, err := e.Tag("bpmn:errorEventDefinition")
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("boundary event %s: only error boundary events are supported", as[0])
	}
	code, err := eventName(def, "errorRef", defs.errors)
	if err != nil {
		return nil, err
	}

	return &ErrorBoundaryEvent{
		Id:             as[0],
		Name:           as[1],
		AttachedTo:     as[2],
		Error:          code,
		CancelActivity: cancel != "false",
	}, nil
}

// language turns a scriptFormat like "text/javascript" into a
// language name like "javascript".
func language(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if i := strings.LastIndexByte(format, '/'); 0 <= i {
		format = format[i+1:]
	}
	return strings.TrimPrefix(format, "x-")
}

func (p *Parser) scriptTask(e *xmlelem.Element) (core.Node, error) {
	as, err := attrs(e, "id", "name", "scriptFormat")
	if err != nil {
		return nil, err
	}
	if p.Scripts == nil {
		return nil, &core.ConfigurationError{
			Component: "bpmn parser",
			Problem:   "script task " + as[0] + " but no script factory",
		}
	}
	src, err := e.Tag("bpmn:script")
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("script task %s has no script", as[0])
	}
	return &ScriptTask{
		Id:       as[0],
		Name:     as[1],
		Language: language(as[2]),
		Script:   src.Text(false),
		scripts:  p.Scripts,
	}, nil
}
