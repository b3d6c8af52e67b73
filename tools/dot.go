package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/core"

	"gopkg.in/yaml.v2"
)

// htmlLines escapes source for a Graphviz HTML-like label, one line
// per line.
func htmlLines(src string) string {
	src = strings.Replace(src, "&", `&amp;`, -1)
	src = strings.Replace(src, "<", `&lt;`, -1)
	src = strings.Replace(src, ">", `&gt;`, -1)
	return strings.Replace(strings.TrimSpace(src)+"\n", "\n", `<BR ALIGN="LEFT"/>`, -1)
}

// Dot makes a Graphviz dot file for the given process.
//
// The optional State marks a node of an instance: that node is red
// and shows the state's data (as YAML).
func Dot(p *core.Process, w io.Writer, st *core.State) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	f("digraph G {")
	f(`  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="box" style="rounded,filled"]
  edge [fontsize = "10"]`)

	var attached []*bpmn.ErrorBoundaryEvent
	for _, id := range p.Order {
		var (
			label     = htmlLines(id)
			shape     = "box"
			style     = "rounded,filled"
			color     = "black"
			fillcolor = "#99ddc8"
		)
		switch vv := p.Nodes[id].(type) {
		case *bpmn.MessageStartEvent:
			shape, fillcolor = "circle", "#52aa5e"
			label += `<FONT POINT-SIZE="8">message ` + htmlLines(vv.Message) + `</FONT>`
		case *bpmn.SignalStartEvent:
			shape, fillcolor = "circle", "#52aa5e"
			label += `<FONT POINT-SIZE="8">signal ` + htmlLines(vv.Signal) + `</FONT>`
		case *bpmn.NoneStartEvent:
			shape, fillcolor = "circle", "#52aa5e"
		case *bpmn.EndEvent:
			shape, style = "doublecircle", "filled,bold"
		case *bpmn.ErrorBoundaryEvent:
			shape, fillcolor = "circle", "#f9c98b"
			style += ",dashed"
			label += `<FONT POINT-SIZE="8">error ` + htmlLines(vv.Error) + `</FONT>`
			attached = append(attached, vv)
		case *bpmn.ScriptTask:
			shape, fillcolor = "note", "#2d93ad"
			label += `<FONT POINT-SIZE="6"><BR/>` + htmlLines(vv.Script) + `</FONT>`
		}
		if st != nil && st.NodeRef.NodeID == id {
			color = "red"
			fillcolor = "#f98b8b"
			if 0 < len(st.Data) {
				js, err := yaml.Marshal(map[string]interface{}(st.Data))
				if err != nil {
					js = []byte(err.Error())
				}
				label += `<FONT POINT-SIZE="8"><BR/>` + htmlLines(string(js)) + `</FONT>`
			}
		}
		f(`  %q [shape="%s", style="%s", color="%s", fillcolor="%s", label=<%s> ]`,
			id, shape, style, color, fillcolor, label)
	}

	for _, b := range attached {
		f(`  %q -> %q [ style="dotted" arrowhead="none" ]`, b.AttachedTo, b.Id)
	}

	for _, fl := range p.Flows {
		label := ""
		if fl.Condition != "" {
			label = htmlLines(fl.Condition)
		}
		f(`  %q -> %q [ label = <%s> ]`, fl.Source, fl.Target, label)
	}

	f("}")
	return nil
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(p *core.Process, st *core.State, basename string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	err = Dot(p, dotfile, st)
	if cerr := dotfile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
