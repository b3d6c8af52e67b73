package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/interpreters"

	"github.com/google/go-cmp/cmp"
)

func TestAnalysis(t *testing.T) {
	ctx := context.Background()
	f, err := interpreters.NewFactory(4, nil)
	if err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(ctx, orderProcess(t), f)
	if err != nil {
		t.Fatal(err)
	}
	want := &ProcessAnalysis{
		NodeCount:   4,
		Flows:       3,
		Conditions:  1,
		ScriptTasks: 1,
		StartEvents: []string{"start"},
		Subscribes:  []string{"signal||go"},
		Terminal:    []string{"done"},
		Languages:   []string{"javascript"},
		Errors:      []string{},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Fatal(diff)
	}
}

func TestAnalysisProblems(t *testing.T) {
	ctx := context.Background()
	src := `<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <bpmn:process id="p">
    <bpmn:scriptTask id="broken" scriptFormat="javascript"><bpmn:script>return {;</bpmn:script></bpmn:scriptTask>
    <bpmn:scriptTask id="cobol" scriptFormat="cobol"><bpmn:script>MOVE A TO B</bpmn:script></bpmn:scriptTask>
    <bpmn:sequenceFlow id="f" sourceRef="broken" targetRef="cobol"/>
  </bpmn:process>
</bpmn:definitions>`
	f, err := interpreters.NewFactory(4, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := bpmn.NewParser(f, nil).ParseProcess([]byte(src), "p")
	if err != nil {
		t.Fatal(err)
	}
	a, err := Analyze(ctx, p, f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"broken"}, a.Orphans); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"cobol"}, a.DeadEnds); diff != "" {
		t.Fatal(diff)
	}
	if len(a.Errors) != 3 {
		t.Fatalf("errors %q", a.Errors)
	}
	for i, prefix := range []string{"broken: ", "cobol: ", "no start"} {
		if !strings.HasPrefix(a.Errors[i], prefix) {
			t.Fatalf("errors %q", a.Errors)
		}
	}

	// Without a factory, nothing is compiled.
	if a, err = Analyze(ctx, p, nil); err != nil {
		t.Fatal(err)
	}
	if len(a.Errors) != 1 {
		t.Fatalf("errors %q", a.Errors)
	}
}
