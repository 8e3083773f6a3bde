package chatmodel

import (
	"encoding/json"
)

// ContentProvider exposes message content for chat history rendering.
type ContentProvider interface {
	GetContent() string
}

type Stringer interface {
	String() string
}

// Stringify renders any tool or model output as a string, preferring the
// value's own representation before falling back to JSON.
func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

// ToBytes renders any tool or model output as bytes.
func ToBytes(s any) []byte {
	if v, ok := s.(Stringer); ok {
		return []byte(v.String())
	}
	if v, ok := s.(ContentProvider); ok {
		return []byte(v.GetContent())
	}
	bs, _ := json.Marshal(s)
	return bs
}
