package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMarshal_KnownBytes(t *testing.T) {
	got := Marshal(NewPayload(Line{Path: "a", Value: "b"}))

	// lines(2, len=6) { path(1, len=1) "a", value(2, len=1) "b" }
	want := []byte{0x12, 0x06, 0x0a, 0x01, 'a', 0x12, 0x01, 'b'}
	assert.Equal(t, want, got)
}

func TestMarshal_RoundTrip(t *testing.T) {
	p := &Payload{}
	p.Add("/tmp/log_gen/abc.log", "hello")
	p.Add("/tmp/log_gen/abc.log", "world")
	p.Add("/tmp/log_gen/x/def.log", strings.Repeat("z", 2047))
	p.Add("/tmp/log_gen/empty.log", "")

	decoded, err := Unmarshal(Marshal(p))
	require.NoError(t, err)
	assert.Equal(t, p.Lines, decoded.Lines)
	assert.Equal(t, 4, decoded.Len())
}

func TestUnmarshal_Empty(t *testing.T) {
	p, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	var b []byte
	// points (field 1) carrying an opaque telemetry message
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0x0a, 0x03, 'f', 'o', 'o'})

	line := protowire.AppendTag(nil, linePathField, protowire.BytesType)
	line = protowire.AppendString(line, "/a.log")
	// timestamp_ms (field 4) on the line
	line = protowire.AppendTag(line, 4, protowire.VarintType)
	line = protowire.AppendVarint(line, 1234)
	line = protowire.AppendTag(line, lineValueField, protowire.BytesType)
	line = protowire.AppendString(line, "v")

	b = protowire.AppendTag(b, payloadLinesField, protowire.BytesType)
	b = protowire.AppendBytes(b, line)

	p, err := Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, Line{Path: "/a.log", Value: "v"}, p.Lines[0])
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"truncated tag", []byte{0x80}},
		{"line length past end", []byte{0x12, 0x10, 0x0a}},
		{"invalid utf8 value", []byte{0x12, 0x03, 0x12, 0x01, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.body)
			assert.ErrorIs(t, err, ErrFraming)
		})
	}
}

func TestReadFrame_Sequence(t *testing.T) {
	var buf bytes.Buffer
	first := NewPayload(Line{Path: "/a.log", Value: "hello"})
	second := NewPayload(Line{Path: "/a.log", Value: "world"}, Line{Path: "/b.log", Value: "x"})
	require.NoError(t, WriteFrame(&buf, first))
	require.NoError(t, WriteFrame(&buf, second))

	r := NewReader(&buf, 0)

	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, first.Lines, got.Lines)

	got, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, second.Lines, got.Lines)

	_, err = r.ReadFrame()
	assert.True(t, errors.Is(err, io.EOF))
	assert.False(t, errors.Is(err, ErrFraming))
}

func TestReadFrame_PrefixMatchesBody(t *testing.T) {
	var buf bytes.Buffer
	p := NewPayload(Line{Path: "/a.log", Value: "hello"})
	require.NoError(t, WriteFrame(&buf, p))

	raw := buf.Bytes()
	size := binary.BigEndian.Uint32(raw[:prefixLength])
	assert.Equal(t, len(raw)-prefixLength, int(size))
	assert.Equal(t, Marshal(p), raw[prefixLength:])
}

func TestReadFrame_LengthExceedsAvailableBytes(t *testing.T) {
	var frame []byte
	frame = binary.BigEndian.AppendUint32(frame, 100)
	frame = append(frame, Marshal(NewPayload(Line{Path: "/a.log", Value: "x"}))...)

	_, err := NewReader(bytes.NewReader(frame), 0).ReadFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFraming)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_ShortPrefix(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x00, 0x00}), 0).ReadFrame()
	assert.ErrorIs(t, err, ErrFraming)
}

func TestReadFrame_Oversized(t *testing.T) {
	var frame []byte
	frame = binary.BigEndian.AppendUint32(frame, 1024)
	frame = append(frame, make([]byte, 1024)...)

	_, err := NewReader(bytes.NewReader(frame), 512).ReadFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFraming)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestWriteFrame_WriteError(t *testing.T) {
	err := WriteFrame(failingWriter{}, NewPayload(Line{Path: "/a.log", Value: "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
