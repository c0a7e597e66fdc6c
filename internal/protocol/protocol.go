// Package protocol implements the line-oriented wire format spoken
// between the server and voxel clients, plus the chat command table.
//
// A frame is a single tag letter followed by comma-separated fields,
// terminated by '\n'. Carriage returns are stripped before framing.
package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// Frame tags. B, P and T travel in both directions; the client's B
// and P omit the leading p,q / id fields, which the server fills in.
const (
	TagYou        byte = 'U'
	TagBlock      byte = 'B'
	TagChunk      byte = 'C'
	TagPosition   byte = 'P'
	TagDisconnect byte = 'D'
	TagTalk       byte = 'T'
	TagKey        byte = 'K'
	TagNick       byte = 'N'
)

// ErrMalformed reports a frame with the wrong arity or an unparseable
// field. Malformed frames are dropped by the caller without reply.
var ErrMalformed = errors.New("protocol: malformed frame")

// Block is a client block edit. The server derives the chunk.
type Block struct {
	X, Y, Z, W int
}

// ChunkReq asks for all block rows in chunk (P, Q) past the rowid
// cursor Key. Key is optional on the wire and defaults to 0.
type ChunkReq struct {
	P, Q int
	Key  int64
}

// Position is a client position update. The server attaches the id
// when rebroadcasting.
type Position struct {
	X, Y, Z, RX, RY float64
}

// Split separates a raw line into its tag and fields. Lines without a
// single-letter tag field yield tag 0.
func Split(line string) (byte, []string) {
	fields := strings.Split(line, ",")
	if len(fields[0]) != 1 {
		return 0, nil
	}
	return fields[0][0], fields[1:]
}

// ParseBlock decodes the fields of a client B frame: x, y, z, w.
func ParseBlock(fields []string) (Block, error) {
	if len(fields) != 4 {
		return Block{}, ErrMalformed
	}
	n, err := ints(fields)
	if err != nil {
		return Block{}, err
	}
	return Block{X: n[0], Y: n[1], Z: n[2], W: n[3]}, nil
}

// ParseChunkReq decodes the fields of a C frame: p, q and an optional
// rowid cursor.
func ParseChunkReq(fields []string) (ChunkReq, error) {
	if len(fields) != 2 && len(fields) != 3 {
		return ChunkReq{}, ErrMalformed
	}
	n, err := ints(fields[:2])
	if err != nil {
		return ChunkReq{}, err
	}
	req := ChunkReq{P: n[0], Q: n[1]}
	if len(fields) == 3 {
		key, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return ChunkReq{}, ErrMalformed
		}
		req.Key = key
	}
	return req, nil
}

// ParsePosition decodes the fields of a client P frame: x, y, z, rx, ry.
func ParsePosition(fields []string) (Position, error) {
	if len(fields) != 5 {
		return Position{}, ErrMalformed
	}
	f := make([]float64, 5)
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Position{}, ErrMalformed
		}
		f[i] = v
	}
	return Position{X: f[0], Y: f[1], Z: f[2], RX: f[3], RY: f[4]}, nil
}

// ParseTalk reassembles the free-form text of a T frame. Commas in the
// body are part of the text, so the fields are rejoined.
func ParseTalk(fields []string) string {
	return strings.Join(fields, ",")
}

// Pack formats an outbound frame: the tag, each field rendered
// compactly, a trailing newline. Whole floats render without a
// fractional part.
func Pack(tag byte, fields ...any) []byte {
	var b strings.Builder
	b.WriteByte(tag)
	for _, f := range fields {
		b.WriteByte(',')
		b.WriteString(formatField(f))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func formatField(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		panic("protocol: unsupported field type")
	}
}

func ints(fields []string) ([]int, error) {
	n := make([]int, len(fields))
	for i, s := range fields {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, ErrMalformed
		}
		n[i] = v
	}
	return n, nil
}
