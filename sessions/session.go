package sessions

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jrsteele09/go-server-session/internal/utils"
)

// Session is the authenticated session record returned by the session API.
// The same shape is used on the wire and for the persisted snapshot.
type Session struct {
	SessionID     *string        // Session identifier, nil when no session was granted
	Bearer        string         // Bearer token for subsequent requests
	AccessAllowed bool           // Whether the credentials were accepted
	Data          map[string]any // Session payload, nil when unset

	// Extra holds provider-defined fields that are not modelled above. They are
	// kept verbatim so a snapshot round-trips without loss.
	Extra map[string]json.RawMessage
}

// wireSession is the JSON form of Session without the extra fields.
type wireSession struct {
	SessionID     *string        `json:"sessionId"`
	Bearer        string         `json:"bearer"`
	AccessAllowed bool           `json:"accessAllowed"`
	Data          map[string]any `json:"data"`
}

var knownFields = []string{"sessionId", "bearer", "accessAllowed", "data"}

// ID returns the session identifier or "" when there is none.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return utils.Value(s.SessionID)
}

// HasSession reports whether s carries a session identifier. An empty
// identifier still counts; only a missing one does not.
func (s *Session) HasSession() bool {
	return s != nil && s.SessionID != nil
}

// Clone returns a deep copy. Nested maps and slices in Data are copied too.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.SessionID != nil {
		c.SessionID = utils.Ptr(*s.SessionID)
	}
	c.Data = CloneData(s.Data)
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return &c
}

// CloneData deep copies a decoded JSON object.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	c := make(map[string]any, len(data))
	for k, v := range data {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = cloneValue(e)
		}
		return c
	default:
		return v
	}
}

func (s Session) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+len(knownFields))
	for k, v := range s.Extra {
		out[k] = v
	}
	out["sessionId"] = s.SessionID
	out["bearer"] = s.Bearer
	out["accessAllowed"] = s.AccessAllowed
	out["data"] = s.Data
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var w wireSession
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}

	*s = Session{
		SessionID:     w.SessionID,
		Bearer:        w.Bearer,
		AccessAllowed: w.AccessAllowed,
		Data:          w.Data,
		Extra:         all,
	}
	return nil
}

// Encode serialises the record into the snapshot stored in the persistence slot.
func Encode(s *Session) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("[sessions Encode] %w", err)
	}
	return string(b), nil
}

// Decode parses a snapshot written by Encode. A JSON null decodes to nil.
func Decode(snapshot string) (*Session, error) {
	var s *Session
	if err := json.Unmarshal([]byte(snapshot), &s); err != nil {
		return nil, fmt.Errorf("[sessions Decode] %w", err)
	}
	return s, nil
}
