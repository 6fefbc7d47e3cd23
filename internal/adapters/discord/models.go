package discord

import (
	"encoding/json"
)

// SearchResult is one page of the guild message search endpoint
type SearchResult struct {
	TotalResults int            `json:"total_results"`
	Messages     []MessageGroup `json:"messages"`
}

// MessageGroup is a matched message plus its surrounding context messages.
// The first element is the match
type MessageGroup []Message

// Author is a partial Discord user document
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is a partial Discord message document. The undecoded bytes are kept
// so sinks can persist the record exactly as the API returned it
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id,omitempty"`
	Author    Author `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`

	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and retains the original bytes
func (m *Message) UnmarshalJSON(b []byte) error {
	type alias Message
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = Message(a)
	m.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON returns the original bytes when present
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	type alias Message
	return json.Marshal(alias(m))
}

// Raw returns the bytes the message was decoded from, or nil
func (m Message) Raw() json.RawMessage { return m.raw }

// Empty reports whether the page carries no message groups
func (r *SearchResult) Empty() bool { return r == nil || len(r.Messages) == 0 }

// Count returns the number of message groups in the page
func (r *SearchResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Messages)
}

// LastGroupFirstID returns the id of the first message of the last group.
// ok is false when the page or that group is empty
func (r *SearchResult) LastGroupFirstID() (id string, ok bool) {
	if r.Empty() {
		return "", false
	}
	last := r.Messages[len(r.Messages)-1]
	if len(last) == 0 || last[0].ID == "" {
		return "", false
	}
	return last[0].ID, true
}
