package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaunch/internal/keys"
)

func TestParseTokenForms(t *testing.T) {
	cases := []struct {
		in   string
		want KeyToken
	}{
		{"Key.shift", SpecialToken("shift")},
		{"Key.shift_r", SpecialToken("shift_r")},
		{"'a'", CharToken('a')},
		{`"'"`, CharToken('\'')},
		{`'\\'`, CharToken('\\')},
		{"'é'", CharToken('é')},
		{"x", CharToken('x')},
		{"<65437>", CodeToken(65437)},
		{"<abc>", KeyToken{Kind: TokenUnknown, Raw: "<abc>"}},
		{"Key.", KeyToken{Kind: TokenUnknown, Raw: "Key."}},
		{"'ab'", KeyToken{Kind: TokenUnknown, Raw: "'ab'"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseToken(tc.in))
		})
	}
}

func TestTokenFormatRoundTrip(t *testing.T) {
	tokens := []KeyToken{
		SpecialToken("ctrl_l"),
		CharToken('a'),
		CharToken('\''),
		CharToken('"'),
		CharToken('\\'),
		CharToken('\n'),
		CharToken('€'),
		CodeToken(96),
		{Kind: TokenUnknown, Raw: "??"},
	}
	for _, tok := range tokens {
		assert.Equal(t, tok, ParseToken(tok.Format()), "token %q", tok.Format())
	}
}

func TestTokenFor(t *testing.T) {
	assert.Equal(t, SpecialToken("shift"), TokenFor(keys.Shift))
	k, ok := keys.FromRune('q')
	require.True(t, ok)
	assert.Equal(t, "'q'", TokenFor(k).Format())
}

func TestButton(t *testing.T) {
	assert.Equal(t, ButtonLeft, ParseButton("Button.left"))
	assert.Equal(t, ButtonRight, ParseButton("right"))
	assert.Equal(t, "Button.middle", ButtonMiddle.Format())
	assert.False(t, ParseButton("Button.x1").Valid())
	assert.Equal(t, "Button.x1", ParseButton("Button.x1").Format())
}

func TestEventJSONRoundTrip(t *testing.T) {
	events := []Event{
		Move(10, 20, 1700000000.125),
		Click(10, 20, ButtonLeft, true, 1700000000.25),
		Click(10, 20, Button("x2"), false, 1700000000.3),
		Scroll(5, 6, 0, -1.5, 1700000000.5),
		Press(CharToken('a'), 1700000001),
		Release(SpecialToken("enter"), 1700000001.0001),
		Void(1700000002),
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		var got Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, e, got, "%s", data)
	}
}

func TestEventJSONFields(t *testing.T) {
	data, err := json.Marshal(Click(3, 4, ButtonRight, false, 2.5))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "mouse_click", m["type"])
	assert.Equal(t, "Button.right", m["button"])
	assert.Equal(t, false, m["pressed"])
	assert.Equal(t, 2.5, m["time"])
	assert.NotContains(t, m, "key")
	assert.NotContains(t, m, "dx")

	data, err = json.Marshal(Void(9))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"void","time":9}`, string(data))
}

func TestEventUnmarshalStrict(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"type":"teleport","time":1}`), &e)
	assert.ErrorIs(t, err, ErrUnknownKind)

	err = json.Unmarshal([]byte(`{"type":"mouse_move","x":1,"time":1}`), &e)
	assert.ErrorIs(t, err, ErrMissingField)

	err = json.Unmarshal([]byte(`{"type":"key_press","time":1}`), &e)
	assert.ErrorIs(t, err, ErrMissingField)

	err = json.Unmarshal([]byte(`{"type":"void"}`), &e)
	assert.ErrorIs(t, err, ErrMissingField)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"mouse_move","x":10.6,"y":2,"time":1}`), &e))
	assert.Equal(t, Move(11, 2, 1), e)
}

func TestBufferHelpers(t *testing.T) {
	b := Buffer{Move(1, 1, 1), Press(CharToken('a'), 2), Void(4)}
	assert.Equal(t, 3.0, b.Duration())
	assert.True(t, b.EndsWithVoid())
	assert.Equal(t, 1, b.Count(KindKeyPress))

	c := b.Clone()
	c[0].X = 99
	assert.Equal(t, 1, b[0].X)
	assert.Nil(t, Buffer(nil).Clone())
}
