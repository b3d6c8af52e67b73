package core

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStateCopy(t *testing.T) {
	st := NewState(NodeRef{"g", "p", "a"})
	if st.InstanceID == "" {
		t.Fatal("no instance id")
	}
	st.Data["x"] = 1

	c := st.Copy()
	c.Data["x"] = 2
	if st.Data["x"] != 1 {
		t.Fatal("copy shares data")
	}

	at := st.At(NodeRef{"g", "p", "b"})
	if at.InstanceID != st.InstanceID || at.NodeRef.NodeID != "b" || at.Reentry {
		t.Fatalf("got %s", at)
	}

	var nothing *State
	if nothing.Copy() != nil {
		t.Fatal("copied nil")
	}
}

func TestDataCopyIsDeep(t *testing.T) {
	d := Data{
		"order": map[string]interface{}{
			"items": []interface{}{"taco", map[string]interface{}{"n": 2}},
		},
	}
	c := d.Copy()
	order := c["order"].(map[string]interface{})
	order["paid"] = true
	items := order["items"].([]interface{})
	items[0] = "burrito"
	items[1].(map[string]interface{})["n"] = 3

	want := Data{
		"order": map[string]interface{}{
			"items": []interface{}{"taco", map[string]interface{}{"n": 2}},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatal(diff)
	}
}

func TestStateJSON(t *testing.T) {
	st := &State{
		NodeRef:    NodeRef{"g", "p", "a"},
		InstanceID: "i",
		Reentry:    true,
		Data:       Data{"n": "tacos"},
	}
	js, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	var back State
	if err := json.Unmarshal(js, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(st, &back); diff != "" {
		t.Fatal(diff)
	}
}

func TestRefs(t *testing.T) {
	r := ProcessRef{Group: "g", ProcessID: "p"}
	n := r.Node("a")
	if n.String() != "g:p:a" || r.String() != "g:p" {
		t.Fatal(n, r)
	}
	if n.ProcessRef() != r {
		t.Fatal(n.ProcessRef())
	}
	if MessageEvent("g", "m").Key() == SignalEvent("g", "m").Key() {
		t.Fatal("kinds collide")
	}
}
