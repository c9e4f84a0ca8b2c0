package sessions_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-server-session/internal/utils"
	"github.com/jrsteele09/go-server-session/sessions"
	"github.com/stretchr/testify/require"
)

func TestSession_HasSession(t *testing.T) {
	var nilSession *sessions.Session
	require.False(t, nilSession.HasSession())
	require.False(t, (&sessions.Session{}).HasSession())
	require.True(t, (&sessions.Session{SessionID: utils.Ptr("")}).HasSession())
	require.True(t, (&sessions.Session{SessionID: utils.Ptr("s1")}).HasSession())
}

func TestSession_SnapshotRoundTrip(t *testing.T) {
	snapshot := `{"sessionId":"s1","bearer":"t1","accessAllowed":true,"data":{"k":1},"user":{"name":"alice"},"expires":"2026-01-01"}`

	s, err := sessions.Decode(snapshot)
	require.NoError(t, err)
	require.Equal(t, "s1", s.ID())
	require.Equal(t, "t1", s.Bearer)
	require.True(t, s.AccessAllowed)
	require.Equal(t, map[string]any{"k": float64(1)}, s.Data)
	require.Len(t, s.Extra, 2)
	require.JSONEq(t, `{"name":"alice"}`, string(s.Extra["user"]))

	encoded, err := sessions.Encode(s)
	require.NoError(t, err)
	require.JSONEq(t, snapshot, encoded)
}

func TestSession_DecodeNullAndGarbage(t *testing.T) {
	s, err := sessions.Decode("null")
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = sessions.Decode("{not json")
	require.Error(t, err)
}

func TestSession_EncodeNilSessionID(t *testing.T) {
	encoded, err := sessions.Encode(&sessions.Session{Bearer: "anon"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded), &raw))
	require.Contains(t, raw, "sessionId")
	require.Nil(t, raw["sessionId"])
	require.Equal(t, false, raw["accessAllowed"])
}

func TestSession_Clone(t *testing.T) {
	orig := &sessions.Session{
		SessionID: utils.Ptr("s1"),
		Bearer:    "t1",
		Data:      map[string]any{"k": 1},
	}
	c := orig.Clone()
	*c.SessionID = "other"
	c.Data["k"] = 2

	require.Equal(t, "s1", orig.ID())
	require.Equal(t, 1, orig.Data["k"])
}

func TestSession_CloneNested(t *testing.T) {
	orig := &sessions.Session{
		SessionID: utils.Ptr("s1"),
		Data: map[string]any{
			"cart":  map[string]any{"items": []any{"a"}},
			"flags": []any{map[string]any{"on": true}},
		},
		Extra: map[string]json.RawMessage{"user": json.RawMessage(`{"name":"alice"}`)},
	}
	c := orig.Clone()
	c.Data["cart"].(map[string]any)["items"].([]any)[0] = "b"
	c.Data["flags"].([]any)[0].(map[string]any)["on"] = false
	c.Extra["user"][2] = 'N'

	require.Equal(t, "a", orig.Data["cart"].(map[string]any)["items"].([]any)[0])
	require.Equal(t, true, orig.Data["flags"].([]any)[0].(map[string]any)["on"])
	require.JSONEq(t, `{"name":"alice"}`, string(orig.Extra["user"]))
}

func TestSession_DecodeEmptySessionID(t *testing.T) {
	s, err := sessions.Decode(`{"sessionId":"","bearer":"b","accessAllowed":true}`)
	require.NoError(t, err)
	require.True(t, s.HasSession())
	require.Equal(t, "", s.ID())
}
