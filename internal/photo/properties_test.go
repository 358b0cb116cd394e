package photo

import (
	"encoding/json"
	"testing"
)

func TestValueJSONNaturalForms(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		json  string
	}{
		{"string", String("hello"), `"hello"`},
		{"number", Number(2.8), `2.8`},
		{"bool", Bool(true), `true`},
		{"list", List("a", "b"), `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.json {
				t.Errorf("marshal = %s, want %s", data, tt.json)
			}

			var back Value
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatal(err)
			}
			if !back.Equal(tt.value) {
				t.Errorf("round trip = %v, want %v", back, tt.value)
			}
		})
	}
}

func TestValueUnmarshalRejectsMixedList(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`["a", 2]`), &v); err == nil {
		t.Error("list with a non-string element must fail to unmarshal")
	}
}

func TestValueUnmarshalNull(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`null`), &v); err != nil {
		t.Fatal(err)
	}
	if v.AsString() != "" {
		t.Errorf("null should decode as empty string, got %q", v.AsString())
	}
}

func TestValueAccessorsAcrossKinds(t *testing.T) {
	if s := Number(3).AsString(); s != "3" {
		t.Errorf("AsString on a number = %q, want 3", s)
	}
	if n, ok := String("x").AsNumber(); ok || n != 0 {
		t.Error("AsNumber on a string must report absent")
	}
	if !Bool(true).AsBool() || Bool(false).AsBool() {
		t.Error("AsBool must reflect the boolean value")
	}
	if Number(2).AsBool() != true || Number(0).AsBool() != false {
		t.Error("AsBool on a number follows non-zero")
	}
	if l := List("one").AsList(); len(l) != 1 || l[0] != "one" {
		t.Errorf("AsList = %v", l)
	}
}
