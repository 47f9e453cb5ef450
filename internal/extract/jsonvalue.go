package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind tags the shape held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Member is one key/value pair of a JSON object, kept in source order
type Member struct {
	Key   string
	Value *Value
}

// Value is a decoded JSON document. Objects keep their members in source
// order so that mapping walks visit keys the way the page author wrote them.
type Value struct {
	Kind    Kind
	Str     string // string content, or the source literal of a number
	Bool    bool
	Items   []*Value
	Members []Member
}

var errTrailingData = errors.New("trailing data after JSON value")

// ParseJSON decodes text into a Value. Numbers keep their source literal.
func ParseJSON(text string) (*Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

// parseJSONContainer decodes text and keeps it only when it is an object or array
func parseJSONContainer(text string) *Value {
	v, err := ParseJSON(text)
	if err != nil || !v.IsContainer() {
		return nil
	}
	return v
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &Value{Kind: KindObject}
			index := make(map[string]int)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				member, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.set(index, key, member)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := &Value{Kind: KindArray, Items: []*Value{}}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return &Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return &Value{Kind: KindNumber, Str: t.String()}, nil
	case bool:
		return &Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return &Value{Kind: KindNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

// set replaces the value of an existing key in place, otherwise appends.
// Duplicate keys therefore resolve to the last value at the first position.
// index maps each key already stored in v to its member position.
func (v *Value) set(index map[string]int, key string, value *Value) {
	if i, ok := index[key]; ok {
		v.Members[i].Value = value
		return
	}
	index[key] = len(v.Members)
	v.Members = append(v.Members, Member{Key: key, Value: value})
}

// Get returns the member stored under key, or nil when v is not an object
// or has no such key.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != KindObject {
		return nil
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// IsContainer reports whether v is an object or an array
func (v *Value) IsContainer() bool {
	return v != nil && (v.Kind == KindObject || v.Kind == KindArray)
}

// StringValue returns the content of a string value
func (v *Value) StringValue() (string, bool) {
	if v == nil || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// Scalar returns the Go scalar for string, number and bool values.
// Numbers are returned as json.Number to keep their literal.
func (v *Value) Scalar() (any, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return json.Number(v.Str), true
	case KindBool:
		return v.Bool, true
	}
	return nil, false
}

// MarshalJSON encodes v compactly with object members in source order
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.Str)
	case KindString:
		encoded, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown JSON kind %d", v.Kind)
	}
	return nil
}
