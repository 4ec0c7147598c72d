package eventstore

import (
	"encoding/json"
	"time"
)

// Event is one journaled build transition. Seq is assigned by the store
// and orders every event in the journal.
type Event struct {
	Seq     int64
	BuildID string
	Kind    string
	At      time.Time
	Body    json.RawMessage
}

// Decode unmarshals the body into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Body, v)
}
