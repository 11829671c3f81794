package recording

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaunch/internal/event"
)

func sampleBuffer() event.Buffer {
	return event.Buffer{
		event.Move(10, 10, 1700000000.0),
		event.Click(10, 10, event.ButtonLeft, true, 1700000000.1),
		event.Click(10, 10, event.ButtonLeft, false, 1700000000.2),
		event.Scroll(10, 10, 0, 2, 1700000000.25),
		event.Press(event.SpecialToken("shift"), 1700000000.26),
		event.Press(event.CharToken('A'), 1700000000.27),
		event.Release(event.CharToken('A'), 1700000000.28),
		event.Release(event.SpecialToken("shift"), 1700000000.29),
		event.Void(1700000000.3),
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	buf := sampleBuffer()
	data, err := Serialize(buf)
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, buf, got)
}

func TestSerializeEmpty(t *testing.T) {
	data, err := Serialize(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeserializeFormatErrors(t *testing.T) {
	for name, input := range map[string]string{
		"not json": "[{",
		"object":   `{"type":"void","time":1}`,
		"null":     "null",
		"empty":    "",
		"string":   `"events"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize([]byte(input))
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestDeserializeLenientElements(t *testing.T) {
	input := `[
		{"type":"mouse_move","x":1,"y":2,"time":1.5},
		{"type":"teleport","time":2.0},
		{"type":"key_press","time":3.0},
		42,
		{"type":"mouse_click","x":1,"y":2,"button":"Button.left","pressed":true,"time":4.0}
	]` + "\n\n"

	buf, issues, err := Decode([]byte(input))
	require.NoError(t, err)
	require.Len(t, buf, 5)

	assert.Equal(t, event.Move(1, 2, 1.5), buf[0])
	assert.Equal(t, event.Void(2.0), buf[1])
	assert.Equal(t, event.Void(3.0), buf[2])
	assert.Equal(t, event.Void(3.0), buf[3], "unreadable time falls back to previous element")
	assert.Equal(t, event.Click(1, 2, event.ButtonLeft, true, 4.0), buf[4])

	require.Len(t, issues, 3)
	assert.Equal(t, 1, issues[0].Index)
	assert.ErrorIs(t, issues[0].Err, event.ErrUnknownKind)
	assert.ErrorIs(t, issues[1].Err, event.ErrMissingField)
}

func TestDeserializeFirstElementWithoutTime(t *testing.T) {
	buf, err := Deserialize([]byte(`[{"type":"mouse_move"}]`))
	require.NoError(t, err)
	assert.Equal(t, event.Buffer{event.Void(0)}, buf)
}

func TestSaveAndLoadRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	path, err := SaveRecord(dir, sampleBuffer(), now)
	require.NoError(t, err)
	assert.Equal(t, "record_20240309_140507.json", filepath.Base(path))

	second, err := SaveRecord(dir, sampleBuffer(), now)
	require.NoError(t, err)
	assert.Equal(t, "record_20240309_140507_1.json", filepath.Base(second))

	got, err := LoadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, sampleBuffer(), got)
}

func TestSaveRecordEmpty(t *testing.T) {
	_, err := SaveRecord(t.TempDir(), nil, time.Now())
	assert.ErrorIs(t, err, ErrEmptyRecording)
}

func TestLoadRecordMissing(t *testing.T) {
	_, err := LoadRecord(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	data, err := Serialize(sampleBuffer())
	require.NoError(t, err)
	assert.NoError(t, Validate(data))

	assert.Error(t, Validate([]byte(`[{"type":"teleport","time":1}]`)))
	assert.Error(t, Validate([]byte(`[{"type":"key_press","time":1}]`)))
	assert.Error(t, Validate([]byte(`{"type":"void","time":1}`)))

	var fe *FormatError
	assert.ErrorAs(t, Validate([]byte(`[`)), &fe)
}

func TestDigest(t *testing.T) {
	d1, err := BufferDigest(sampleBuffer())
	require.NoError(t, err)
	assert.Len(t, d1, 64)

	other := sampleBuffer()
	other[0].X = 11
	d2, err := BufferDigest(other)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	d3, err := BufferDigest(sampleBuffer())
	require.NoError(t, err)
	assert.Equal(t, d1, d3)
}
