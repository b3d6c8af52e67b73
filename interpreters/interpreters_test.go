package interpreters

import (
	"context"
	"testing"

	"github.com/Comcast/arrow/core"
	"github.com/google/go-cmp/cmp"
)

func TestStandardLanguages(t *testing.T) {
	f, err := NewFactory(8, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ecmascript", "hypothesis", "javascript", "mustache", "typescript"}
	if diff := cmp.Diff(want, f.Languages()); diff != "" {
		t.Fatal(diff)
	}
}

func TestJavascriptAndTypescriptShareEngine(t *testing.T) {
	f, err := NewFactory(8, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	p := &core.Process{ID: "p"}
	st := core.NewState(core.NodeRef{Group: "g", ProcessID: "p", NodeID: "t"})

	for _, lang := range []string{"javascript", "typescript"} {
		exec, err := f.Executable(ctx, st, lang, `return {lang: "`+lang+`"};`)
		if err != nil {
			t.Fatal(err)
		}
		out, _, err := exec(ctx, st, core.NewEnvironment("g", p))
		if err != nil {
			t.Fatal(err)
		}
		if out.Data["lang"] != lang {
			t.Fatalf("data %#v", out.Data)
		}
	}
	if f.Len() != 2 {
		t.Fatalf("cached %d", f.Len())
	}
}
