// Package message defines the DIDComm plaintext message model shared by
// the envelope codec, the protocol handlers, and the message store.
package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is a DIDComm v2 plaintext frame.
type Message struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	From     string   `json:"from,omitempty"`
	To       []string `json:"to,omitempty"`
	ThID     string   `json:"thid,omitempty"`
	PThID    string   `json:"pthid,omitempty"`

	CreatedTime int64 `json:"created_time,omitempty"`

	Body        json.RawMessage `json:"body,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`

	// ApplicationParams carries protocol-specific key/value extensions,
	// including the ~transport return-route header.
	ApplicationParams map[string]json.RawMessage `json:"-"`
}

// Attachment carries an embedded payload, either inline JSON or a link.
type Attachment struct {
	ID        string          `json:"id"`
	MediaType string          `json:"media_type,omitempty"`
	Data      AttachmentData  `json:"data"`
}

// AttachmentData holds either an embedded JSON payload or a link to one.
type AttachmentData struct {
	JSON json.RawMessage `json:"json,omitempty"`
	Link string          `json:"links,omitempty"`
}

// Transport mirrors the ~transport application parameter used to request
// an inline response instead of queueing.
type Transport struct {
	ReturnRoute string `json:"return_route"`
}

// ReturnRouteAll reports whether m carries ~transport: {"return_route":"all"}.
func (m *Message) ReturnRouteAll() bool {
	raw, ok := m.ApplicationParams["~transport"]
	if !ok {
		return false
	}
	var t Transport
	if err := json.Unmarshal(raw, &t); err != nil {
		return false
	}
	return t.ReturnRoute == "all"
}

// NewID returns a fresh message identifier (UUIDv4).
func NewID() string {
	return uuid.NewString()
}

// Now returns the current Unix timestamp, the created_time convention
// used throughout the protocol handlers.
func Now() int64 {
	return time.Now().Unix()
}

// MarshalJSON flattens ApplicationParams as top-level sibling keys, the
// convention DIDComm v2 messages use for protocol-specific headers.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	base, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	if len(m.ApplicationParams) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.ApplicationParams {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON recovers ApplicationParams from unrecognized top-level
// keys, the mirror image of MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Message(a)

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	known := map[string]struct{}{
		"id": {}, "type": {}, "from": {}, "to": {}, "thid": {}, "pthid": {},
		"created_time": {}, "body": {}, "attachments": {},
	}
	for k, v := range all {
		if _, ok := known[k]; ok {
			continue
		}
		if m.ApplicationParams == nil {
			m.ApplicationParams = map[string]json.RawMessage{}
		}
		m.ApplicationParams[k] = v
	}
	return nil
}
