// Package wire implements the line-report protocol shared by the verifying
// listener and the traffic emitters.
//
// Each payload is a protobuf message preceded by a 4-byte big-endian length:
//
//	message LogLine { string path = 1; string value = 2; }
//	message Payload { repeated Telemetry points = 1; repeated LogLine lines = 2; }
//
// Only the lines field is produced. Unknown fields are skipped on decode so
// peers that also carry telemetry points interoperate.
package wire

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	payloadLinesField protowire.Number = 2
	linePathField     protowire.Number = 1
	lineValueField    protowire.Number = 2
)

// Line is one reported log line and the logical path it was read from.
type Line struct {
	Path  string
	Value string
}

// Payload is a batch of reported lines. Lines are processed in order.
type Payload struct {
	Lines []Line
}

// NewPayload creates a payload holding the given lines.
func NewPayload(lines ...Line) *Payload {
	return &Payload{Lines: lines}
}

// Add appends a line to the payload.
func (p *Payload) Add(path, value string) {
	p.Lines = append(p.Lines, Line{Path: path, Value: value})
}

// Len returns the number of lines in the payload.
func (p *Payload) Len() int {
	return len(p.Lines)
}

// Marshal encodes the payload body (without the length prefix).
func Marshal(p *Payload) []byte {
	var b []byte
	for _, line := range p.Lines {
		b = protowire.AppendTag(b, payloadLinesField, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(lineSize(line)))
		b = appendLine(b, line)
	}
	return b
}

func lineSize(line Line) int {
	n := 0
	if line.Path != "" {
		n += protowire.SizeTag(linePathField) + protowire.SizeBytes(len(line.Path))
	}
	if line.Value != "" {
		n += protowire.SizeTag(lineValueField) + protowire.SizeBytes(len(line.Value))
	}
	return n
}

// appendLine follows proto3 rules: empty strings are not written.
func appendLine(b []byte, line Line) []byte {
	if line.Path != "" {
		b = protowire.AppendTag(b, linePathField, protowire.BytesType)
		b = protowire.AppendString(b, line.Path)
	}
	if line.Value != "" {
		b = protowire.AppendTag(b, lineValueField, protowire.BytesType)
		b = protowire.AppendString(b, line.Value)
	}
	return b
}

// Unmarshal decodes a payload body. Errors wrap ErrFraming.
func Unmarshal(b []byte) (*Payload, error) {
	p := &Payload{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: payload tag: %w", ErrFraming, protowire.ParseError(n))
		}
		b = b[n:]

		if num == payloadLinesField && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: payload line: %w", ErrFraming, protowire.ParseError(n))
			}
			line, err := unmarshalLine(raw)
			if err != nil {
				return nil, err
			}
			p.Lines = append(p.Lines, line)
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("%w: payload field %d: %w", ErrFraming, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return p, nil
}

func unmarshalLine(b []byte) (Line, error) {
	var line Line
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Line{}, fmt.Errorf("%w: line tag: %w", ErrFraming, protowire.ParseError(n))
		}
		b = b[n:]

		if (num == linePathField || num == lineValueField) && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Line{}, fmt.Errorf("%w: line field %d: %w", ErrFraming, num, protowire.ParseError(n))
			}
			if !utf8.Valid(raw) {
				return Line{}, fmt.Errorf("%w: line field %d is not valid UTF-8", ErrFraming, num)
			}
			if num == linePathField {
				line.Path = string(raw)
			} else {
				line.Value = string(raw)
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return Line{}, fmt.Errorf("%w: line field %d: %w", ErrFraming, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return line, nil
}
