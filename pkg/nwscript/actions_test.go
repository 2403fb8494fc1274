package nwscript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinLookup(t *testing.T) {
	tests := []struct {
		name   string
		wantID int
		params int
		ret    DataType
	}{
		{"Random", 0, 1, Int},
		{"PrintString", 1, 1, Void},
		{"PrintInteger", 4, 1, Void},
		{"DelayCommand", 7, 2, Void},
		{"SetFacing", 10, 1, Void},
	}
	table := Builtin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, a, ok := table.Lookup(tt.name)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.name)
			}
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
			if len(a.Params) != tt.params {
				t.Errorf("params = %d, want %d", len(a.Params), tt.params)
			}
			if a.Return != tt.ret {
				t.Errorf("return = %s, want %s", a.Return, tt.ret)
			}
		})
	}

	if _, _, ok := table.Lookup("NoSuchRoutine"); ok {
		t.Error("Lookup of unknown routine succeeded")
	}
}

func TestRequiredParams(t *testing.T) {
	_, a, _ := Builtin().Lookup("PrintFloat")
	if got := a.RequiredParams(); got != 1 {
		t.Errorf("RequiredParams = %d, want 1", got)
	}
	if got := a.String(); got != "void PrintFloat(float fFloat, int nWidth = 18, int nDecimals = 9)" {
		t.Errorf("String = %q", got)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		typ     DataType
		text    string
		want    Value
		wantErr bool
	}{
		{Int, "42", Value{Type: Int, Int: 42}, false},
		{Int, "0x10", Value{Type: Int, Int: 16}, false},
		{Int, "abc", Value{}, true},
		{Float, "1.5f", Value{Type: Float, Float: 1.5}, false},
		{String, `"hi"`, Value{Type: String, String: "hi"}, false},
		{Object, "OBJECT_INVALID", Value{Type: Object, Int: ObjectInvalid}, false},
		{Vector, "[1.0, 2.0, 3.0]", Value{Type: Vector, Vector: [3]float32{1, 2, 3}}, false},
		{Vector, "[1.0, 2.0]", Value{}, true},
		{Effect, "0", Value{}, true},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.typ, tt.text)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseValue(%s, %q) expected error", tt.typ, tt.text)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseValue(%s, %q) error: %v", tt.typ, tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseValue(%s, %q) = %+v, want %+v", tt.typ, tt.text, got, tt.want)
		}
	}
}

const sampleYAML = `
actions:
  - name: Random
    returns: int
    params:
      - {name: nMax, type: int}
  - name: print
    returns: void
    params:
      - {name: n, type: int}
      - {name: width, type: int, default: "4"}
constants:
  - {name: TRUE, type: int, value: "1"}
  - {name: HALF, type: float, value: "0.5"}
`

func TestLoadYAML(t *testing.T) {
	table, err := LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadYAML error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len = %d, want 2", table.Len())
	}
	id, a, ok := table.Lookup("print")
	if !ok || id != 1 {
		t.Fatalf("Lookup(print) = %d, %v", id, ok)
	}
	if a.Params[1].Default == nil || a.Params[1].Default.Int != 4 {
		t.Errorf("default for width = %+v, want 4", a.Params[1].Default)
	}
	if v, ok := table.Constant("HALF"); !ok || v.Float != 0.5 {
		t.Errorf("Constant(HALF) = %+v, %v", v, ok)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad return", "actions:\n  - {name: x, returns: banana}\n"},
		{"void param", "actions:\n  - name: x\n    params:\n      - {name: p, type: void}\n"},
		{"bad default", "actions:\n  - name: x\n    params:\n      - {name: p, type: int, default: nope}\n"},
		{"unknown field", "actions:\n  - {name: x, colour: red}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadYAML([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadYAMLFile(path)
	if err != nil {
		t.Fatalf("LoadYAMLFile error: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}

	_, err = LoadYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}
