package nwscript

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlTable struct {
	Actions   []yamlAction   `yaml:"actions"`
	Constants []yamlConstant `yaml:"constants"`
}

type yamlAction struct {
	Name    string      `yaml:"name"`
	Returns string      `yaml:"returns"`
	Params  []yamlParam `yaml:"params"`
}

type yamlParam struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	Default *string `yaml:"default"`
}

type yamlConstant struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// LoadYAMLFile reads an engine table from a YAML document on disk.
func LoadYAMLFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	t, err := LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadYAML parses an engine table. Routine numbers follow document order.
func LoadYAML(data []byte) (*Table, error) {
	var doc yamlTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse action table: %w", err)
	}

	actions := make([]Routine, 0, len(doc.Actions))
	for i, ya := range doc.Actions {
		ret := Void
		if ya.Returns != "" {
			var ok bool
			if ret, ok = ParseDataType(ya.Returns); !ok {
				return nil, fmt.Errorf("action %d (%s): unknown return type %q", i, ya.Name, ya.Returns)
			}
		}
		a := Routine{Name: ya.Name, Return: ret}
		for _, yp := range ya.Params {
			pt, ok := ParseDataType(yp.Type)
			if !ok || pt == Void {
				return nil, fmt.Errorf("action %s: parameter %s has bad type %q", ya.Name, yp.Name, yp.Type)
			}
			p := Param{Name: yp.Name, Type: pt}
			if yp.Default != nil {
				v, err := ParseValue(pt, *yp.Default)
				if err != nil {
					return nil, fmt.Errorf("action %s: parameter %s: %w", ya.Name, yp.Name, err)
				}
				p.Default = &v
			}
			a.Params = append(a.Params, p)
		}
		actions = append(actions, a)
	}

	constants := make([]Constant, 0, len(doc.Constants))
	for _, yc := range doc.Constants {
		ct, ok := ParseDataType(yc.Type)
		if !ok {
			return nil, fmt.Errorf("constant %s: unknown type %q", yc.Name, yc.Type)
		}
		v, err := ParseValue(ct, yc.Value)
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", yc.Name, err)
		}
		constants = append(constants, Constant{Name: yc.Name, Value: v})
	}

	return NewTable(actions, constants), nil
}
