package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaunch/internal/event"
	"slaunch/internal/recording"
)

func events() event.Buffer {
	return event.Buffer{
		event.Move(1, 2, 10),
		event.Press(event.CharToken('a'), 10.5),
		event.Release(event.CharToken('a'), 10.6),
		event.Void(10.7),
	}
}

func TestRoundTripEmbedded(t *testing.T) {
	doc := New("Login macro", 3, events())
	data, err := doc.Bytes()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Login macro", got.Title())
	assert.Equal(t, 3, got.HowMany)
	assert.True(t, got.IsRecorded())
	assert.Equal(t, events(), got.Events)
	assert.Equal(t, doc.Lines, got.Lines)
}

func TestParseToleratesTrailingWhitespace(t *testing.T) {
	data := "title=x\ntype=recorded\nicon=none\nscript=\nhow_many=-1\nrecord_events=\n" +
		`[{"type":"void","time":1}]` + "\n\n  \n"
	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, Infinite, doc.HowMany)
	assert.Equal(t, event.Buffer{event.Void(1)}, doc.Events)
}

func TestParseCRLF(t *testing.T) {
	data := "title=win\r\nhow_many=2\r\nrecord_events=\r\n[]\r\n"
	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "win", doc.Title())
	assert.Equal(t, 2, doc.HowMany)
	assert.NotNil(t, doc.Events)
	assert.Empty(t, doc.Events)
}

func TestParseInvalidHowMany(t *testing.T) {
	for _, v := range []string{"abc", "0", "-5", ""} {
		doc, err := Parse([]byte("title=t\nhow_many=" + v + "\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, doc.HowMany, "how_many=%q", v)
	}
}

func TestParseMalformedSegment(t *testing.T) {
	_, err := Parse([]byte("title=t\nrecord_events=\n{not json"))
	var fe *recording.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestPreservesUnknownLines(t *testing.T) {
	data := "title=t\ntype=on_off\nicon=none\non_off_state=on\nscript=\necho hi\n"
	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Nil(t, doc.Events)
	assert.False(t, doc.IsRecorded())

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data+"how_many=1\n", string(out))
}

func TestSetAndGet(t *testing.T) {
	doc := New("a", 1, nil)
	doc.Set(KeyTitle, "b")
	doc.Set("color", "red")
	assert.Equal(t, "b", doc.Title())
	assert.Equal(t, "red", doc.Get("color"))
	assert.Equal(t, "", doc.Get("missing"))
}

func TestResolveLegacyRecordPath(t *testing.T) {
	records := t.TempDir()
	path, err := recording.SaveRecord(records, events(), time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	doc, err := Parse([]byte("title=old\ntype=recorded\nicon=none\nscript=\nrecord_path=" +
		filepath.Base(path) + "\nhow_many=2\n"))
	require.NoError(t, err)
	assert.True(t, doc.IsRecorded())
	assert.Equal(t, path, doc.RecordFile(records))

	buf, err := doc.Resolve(records)
	require.NoError(t, err)
	assert.Equal(t, events(), buf)

	doc.RecordPath = path
	assert.Equal(t, path, doc.RecordFile("/elsewhere"))
}

func TestResolveEmbeddedWins(t *testing.T) {
	doc := New("t", 1, events())
	doc.RecordPath = "missing.json"
	buf, err := doc.Resolve(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, events(), buf)
}

func TestResolveNoRecording(t *testing.T) {
	doc := New("t", 1, nil)
	_, err := doc.Resolve(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRecording)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets", "macro"+Extension)
	require.NoError(t, Save(path, New("macro", Infinite, events())))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Infinite, doc.HowMany)
	assert.Equal(t, events(), doc.Events)
}
