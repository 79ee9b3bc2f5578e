package apiclient

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 17, "b": "q-7", "c": null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "17" || v.B != "q-7" || v.C != "" {
		t.Fatalf("got %+v", v)
	}

	out, err := json.Marshal(map[string]ID{"n": "17", "s": "q-7", "z": "007"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"n":17,"s":"q-7","z":"007"}` {
		t.Fatalf("marshal = %s", out)
	}
}
