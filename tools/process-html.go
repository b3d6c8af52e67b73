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
	"html"
	"io"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderProcessHTML writes an HTML fragment documenting the process:
// its documentation (markdown), its nodes in document order, and its
// sequence flows.
func RenderProcessHTML(p *core.Process, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}
	esc := html.EscapeString

	if p.Doc != "" {
		f(`<div class="processDoc doc">%s</div>`, md.Run([]byte(p.Doc)))
	}

	f(`<div class="nodes"><table>`)
	for _, id := range p.Order {
		f(`<tr class="node"><td><span id="%s" class="nodeName">%s</span></td><td>`, esc(id), esc(id))
		switch vv := p.Nodes[id].(type) {
		case *bpmn.MessageStartEvent:
			f(`<div>message <code>%s</code></div>`, esc(vv.Message))
		case *bpmn.SignalStartEvent:
			f(`<div>signal <code>%s</code></div>`, esc(vv.Signal))
		case *bpmn.ErrorBoundaryEvent:
			code := vv.Error
			if code == "" {
				code = "any error"
			}
			f(`<div>catches <code>%s</code> from <a href="#%s">%s</a></div>`,
				esc(code), esc(vv.AttachedTo), esc(vv.AttachedTo))
		case *bpmn.ScriptTask:
			f(`<div>%s</div>`, esc(vv.Language))
			f(`<div class="code"><pre>%s</pre></div>`, esc(vv.Script))
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	f(`<div class="flows"><table>`)
	for _, fl := range p.Flows {
		f(`<tr class="flow"><td><a href="#%s">%s</a></td><td><a href="#%s">%s</a></td>`,
			esc(fl.Source), esc(fl.Source), esc(fl.Target), esc(fl.Target))
		if fl.Condition != "" {
			f(`<td><code>%s</code></td>`, esc(fl.Condition))
		}
		f(`</tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderProcessPage writes a complete HTML page for the process.
//
// When includeGraph is true, the page renders the process with
// Mermaid.
func RenderProcessPage(p *core.Process, out io.Writer, cssFiles []string, includeGraph bool) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/process-html.css"}
	}

	title := html.EscapeString(p.ID)
	if p.Name != "" {
		title = html.EscapeString(p.Name)
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	if includeGraph {
		fmt.Fprintf(out, `  <script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>
  <script>mermaid.initialize({startOnLoad:true});</script>
`)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
    <div class="version">version %d</div>
`, title, p.Version)

	if includeGraph {
		fmt.Fprintf(out, "<div class=\"mermaid\">\n")
		if err := Mermaid(p, out, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "</div>\n")
	}

	if err := RenderProcessHTML(p, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}
