package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is a leaf comparison value: a single string or an ordered list.
// IsList disambiguates a one-element list from a scalar.
type Value struct {
	Text   string
	Items  []string
	IsList bool
}

// StringValue returns a scalar value.
func StringValue(s string) Value {
	return Value{Text: s}
}

// ListValue returns a list value. ListValue() is an empty list, not a scalar.
func ListValue(items ...string) Value {
	return Value{Items: append([]string{}, items...), IsList: true}
}

// Strings returns the value as a list; a scalar becomes a one-item list,
// an empty scalar an empty list.
func (v Value) Strings() []string {
	if v.IsList {
		return append([]string(nil), v.Items...)
	}
	if v.Text == "" {
		return nil
	}
	return []string{v.Text}
}

// String renders scalars verbatim and lists comma-joined.
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.Items, ", ")
	}
	return v.Text
}

// Equal compares two values by kind and content.
func (v Value) Equal(o Value) bool {
	if v.IsList != o.IsList {
		return false
	}
	if !v.IsList {
		return v.Text == o.Text
	}
	if len(v.Items) != len(o.Items) {
		return false
	}
	for i := range v.Items {
		if v.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

func (v Value) clone() Value {
	if v.IsList {
		return ListValue(v.Items...)
	}
	return v
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a JSON string, number, boolean or array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Value{}
	case string:
		*v = StringValue(t)
	case float64, bool:
		*v = StringValue(strings.TrimSpace(string(data)))
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprint(item)
			}
			items = append(items, s)
		}
		*v = Value{Items: items, IsList: true}
	default:
		return fmt.Errorf("condition value must be a string or list, got %s", string(data))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	if v.IsList {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return items, nil
	}
	return v.Text, nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*v = Value{}
			return nil
		}
		*v = StringValue(node.Value)
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: condition value list must hold scalars", item.Line)
			}
			items = append(items, item.Value)
		}
		*v = Value{Items: items, IsList: true}
	default:
		return fmt.Errorf("line %d: condition value must be a scalar or sequence", node.Line)
	}
	return nil
}
