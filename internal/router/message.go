package router

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// json decodes payloads with encoding/json semantics (numbers as float64).
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is an inbound MQTT message after payload decoding.
type Message struct {
	// Topic the message arrived on.
	Topic string

	// Raw is the payload exactly as received.
	Raw []byte

	// Value is the decoded JSON value (map[string]any, []any, float64,
	// string, bool or nil) when JSON is true, otherwise string(Raw).
	Value any

	// JSON reports whether Raw parsed as JSON.
	JSON bool
}

// Decode builds a Message from a raw payload.
//
// Payloads that are not valid JSON are delivered as their original text;
// Decode never fails.
func Decode(topic string, raw []byte) Message {
	msg := Message{Topic: topic, Raw: raw}

	if gjson.ValidBytes(raw) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			msg.Value = v
			msg.JSON = true
			return msg
		}
	}

	msg.Value = string(raw)
	return msg
}

// Get returns the JSON value at path (gjson syntax, e.g. "cmd" or
// "items.0.sku"). The result does not exist for non-JSON payloads.
func (m Message) Get(path string) gjson.Result {
	if !m.JSON {
		return gjson.Result{}
	}
	return gjson.GetBytes(m.Raw, path)
}

// Object returns the decoded value as a JSON object, if it is one.
func (m Message) Object() (map[string]any, bool) {
	obj, ok := m.Value.(map[string]any)
	return obj, ok
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Raw)
}
