package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnswerValue is a scalar answer as it arrived: a string, a bool or a
// number. The original kind is kept so true/false questions can compare
// literals exactly.
type AnswerValue struct {
	v any // nil, string, bool or float64
}

func Text(s string) AnswerValue { return AnswerValue{v: s} }
func Bool(b bool) AnswerValue { return AnswerValue{v: b} }
func Number(f float64) AnswerValue { return AnswerValue{v: f} }

// IsZero reports whether no value was given.
func (a AnswerValue) IsZero() bool { return a.v == nil }

// String renders the value for comparison and display.
func (a AnswerValue) String() string {
	switch v := a.v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Equal is raw equality: same kind and same value, no folding.
func (a AnswerValue) Equal(b AnswerValue) bool {
	return a.v != nil && a.v == b.v
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v)
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	return a.set(raw)
}

func (a *AnswerValue) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return a.set(raw)
}

func (a *AnswerValue) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		a.v = nil
	case string, bool, float64:
		a.v = v
	case int:
		a.v = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		a.v = f
	default:
		return fmt.Errorf("answer must be a string, bool or number, got %T", raw)
	}
	return nil
}

// normalized is the trimmed, lower-cased text form.
func (a AnswerValue) normalized() string {
	return strings.ToLower(strings.TrimSpace(a.String()))
}
