package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"slimwell/intake-backend/internal"
)

type ValueKind int

const (
	ValueText ValueKind = iota
	ValueList
	ValueHeight
)

// Height is the legacy feet/inches shape. Current clients send height as a
// single inches value in the profile step.
type Height struct {
	Feet   int `json:"feet"`
	Inches int `json:"inches"`
}

// Value is one stored answer: a string, a list of strings or a height.
type Value struct {
	kind   ValueKind
	text   string
	list   []string
	height Height
}

func Text(s string) Value {
	return Value{kind: ValueText, text: s}
}

func List(items ...string) Value {
	copied := make([]string, len(items))
	copy(copied, items)
	return Value{kind: ValueList, list: copied}
}

func HeightValue(feet, inches int) Value {
	return Value{kind: ValueHeight, height: Height{Feet: feet, Inches: inches}}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) Text() string {
	return v.text
}

func (v Value) Items() []string {
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

func (v Value) IsEmpty() bool {
	switch v.kind {
	case ValueList:
		return len(v.list) == 0
	case ValueHeight:
		return v.height.Feet == 0 && v.height.Inches == 0
	default:
		return strings.TrimSpace(v.text) == ""
	}
}

func (v Value) Contains(option string) bool {
	for _, item := range v.list {
		if item == option {
			return true
		}
	}
	return false
}

// String flattens the value for submission: lists are comma-joined.
func (v Value) String() string {
	switch v.kind {
	case ValueList:
		return strings.Join(v.list, ", ")
	case ValueHeight:
		return fmt.Sprintf("%d'%d\"", v.height.Feet, v.height.Inches)
	default:
		return v.text
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueHeight:
		return json.Marshal(v.height)
	default:
		return json.Marshal(v.text)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Text("")
		return nil
	}

	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("%w: %v", internal.ErrInvalidAnswerValue, err)
		}
		*v = List(items...)
	case '{':
		var h Height
		if err := json.Unmarshal(data, &h); err != nil {
			return fmt.Errorf("%w: %v", internal.ErrInvalidAnswerValue, err)
		}
		*v = HeightValue(h.Feet, h.Inches)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", internal.ErrInvalidAnswerValue, err)
		}
		*v = Text(s)
	default:
		// numbers and booleans are stored by their literal text
		*v = Text(string(data))
	}
	return nil
}

// Answers is the answer store: answer key to value. Keys are only written by
// Set and never cleared implicitly.
type Answers map[string]Value

func (a Answers) Get(key string) (Value, bool) {
	v, ok := a[key]
	return v, ok
}

func (a Answers) Text(key string) string {
	return a[key].Text()
}

func (a Answers) Set(key string, v Value) {
	a[key] = v
}

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ToggleOption flips option in the checkbox list stored at key. Selecting
// NoneOption drops every other selection; selecting anything else drops
// NoneOption.
func (a Answers) ToggleOption(key, option string) {
	current := a[key]
	if current.Contains(option) {
		remaining := make([]string, 0, len(current.list))
		for _, item := range current.list {
			if item != option {
				remaining = append(remaining, item)
			}
		}
		a[key] = List(remaining...)
		return
	}

	if option == NoneOption {
		a[key] = List(NoneOption)
		return
	}

	next := make([]string, 0, len(current.list)+1)
	for _, item := range current.list {
		if item != NoneOption {
			next = append(next, item)
		}
	}
	a[key] = List(append(next, option)...)
}

var textPolicy = bluemonday.StrictPolicy()

// sanitize strips markup from free-text answers.
func sanitize(v Value) Value {
	clean := func(s string) string {
		return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
	}

	switch v.kind {
	case ValueText:
		return Text(clean(v.text))
	case ValueList:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = clean(item)
		}
		return List(items...)
	default:
		return v
	}
}
