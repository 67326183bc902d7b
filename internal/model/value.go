package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ValueKind identifies which variant of Value is populated.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindList   ValueKind = "list"
)

// Value is a capability or requirement literal. Exactly one variant is
// meaningful, selected by Kind. The zero Value is an empty string.
// Values encode to and decode from their plain JSON/YAML form.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// ListValue returns a list Value.
func ListValue(items ...Value) Value { return Value{Kind: KindList, List: items} }

// StringList returns a list Value of strings.
func StringList(items ...string) Value {
	out := make([]Value, len(items))
	for i, s := range items {
		out[i] = StringValue(s)
	}
	return ListValue(out...)
}

// ValueOf converts a decoded YAML/JSON value into a Value. Maps are
// rejected because capability values are never nested objects.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return StringValue(""), nil
	case Value:
		return t, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case float64:
		return NumberValue(t), nil
	case float32:
		return NumberValue(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, eris.Errorf("model: invalid number %q", t.String())
		}
		return NumberValue(f), nil
	case []string:
		return StringList(t...), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			if iv.Kind == KindList {
				return Value{}, eris.New("model: nested lists are not supported")
			}
			items = append(items, iv)
		}
		return ListValue(items...), nil
	default:
		return Value{}, eris.Errorf("model: unsupported value type %T", v)
	}
}

// ParseValue turns stored text into a Value: bracketed lists, booleans,
// numbers, otherwise the trimmed string.
func ParseValue(raw string) Value {
	txt := strings.TrimSpace(raw)
	if strings.HasPrefix(txt, "[") && strings.HasSuffix(txt, "]") {
		inner := strings.TrimSpace(txt[1 : len(txt)-1])
		if inner == "" {
			return ListValue()
		}
		parts := strings.Split(inner, ",")
		items := make([]Value, 0, len(parts))
		for _, p := range parts {
			p = strings.Trim(strings.TrimSpace(p), `"'`)
			items = append(items, StringValue(p))
		}
		return ListValue(items...)
	}
	switch strings.ToLower(txt) {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	if n, err := strconv.ParseFloat(txt, 64); err == nil {
		return NumberValue(n)
	}
	return StringValue(txt)
}

// IsEmpty reports whether the value carries no information. Numbers and
// booleans are never empty.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindNumber, KindBool:
		return false
	case KindList:
		return len(v.List) == 0
	default:
		return strings.TrimSpace(v.Str) == ""
	}
}

// String renders the value for explanations and answers.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	default:
		return v.Str
	}
}

// Strings returns the list items (or the scalar) rendered as strings.
func (v Value) Strings() []string {
	if v.Kind != KindList {
		return []string{v.String()}
	}
	out := make([]string, len(v.List))
	for i, item := range v.List {
		out[i] = item.String()
	}
	return out
}

// AsNumber coerces the value to a float. Numeric strings are accepted.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString, "":
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Equal compares two scalars: numerically when both coerce to numbers,
// otherwise as case-insensitive trimmed strings. Lists compare as sets.
func (v Value) Equal(other Value) bool {
	if v.Kind == KindList || other.Kind == KindList {
		if v.Kind != other.Kind {
			return false
		}
		return sameSet(v.Strings(), other.Strings())
	}
	if a, ok := v.AsNumber(); ok {
		if b, ok := other.AsNumber(); ok {
			return a == b
		}
	}
	return strings.EqualFold(strings.TrimSpace(v.String()), strings.TrimSpace(other.String()))
}

// Plain returns the value as a plain Go value (string, float64, bool, []any).
func (v Value) Plain() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Plain()
		}
		return out
	default:
		return v.Str
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	norm := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(strings.TrimSpace(s))
		}
		sort.Strings(out)
		return out
	}
	na, nb := norm(a), norm(b)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the plain form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Plain())
}

// UnmarshalJSON decodes a plain JSON scalar or array.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes the plain form.
func (v Value) MarshalYAML() (any, error) {
	return v.Plain(), nil
}

// UnmarshalYAML decodes a plain YAML scalar or sequence.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
