package native

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/nickyhof/flintdb/core"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/xxh3"
)

// Encoded row layout:
//
//	[0]    format version
//	[1]    compressor id
//	[2:10] xxh3 of the payload as stored, little endian
//	[10:]  payload, a JSON array with one text cell or null per column
const (
	codecVersion    = 1
	codecHeaderSize = 10
)

const (
	compressNone byte = iota
	compressZstd
	compressLZ4
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

func compressorID(name string) (byte, error) {
	switch name {
	case "", "none":
		return compressNone, nil
	case "zstd":
		return compressZstd, nil
	case "lz4":
		return compressLZ4, nil
	}
	return 0, fmt.Errorf("%w compressor: %s", ErrUnsupported, name)
}

// encodeRow serialises values for storage.
func encodeRow(values []core.Value, compressor string) ([]byte, error) {
	id, err := compressorID(compressor)
	if err != nil {
		return nil, err
	}

	cells := make([]*string, len(values))
	for i, v := range values {
		if v.IsNil() {
			continue
		}
		text := v.Format()
		cells[i] = &text
	}
	payload, err := json.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}

	switch id {
	case compressZstd:
		payload = zstdEncoder.EncodeAll(payload, nil)
	case compressLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("failed to compress row: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress row: %w", err)
		}
		payload = buf.Bytes()
	}

	data := make([]byte, codecHeaderSize, codecHeaderSize+len(payload))
	data[0] = codecVersion
	data[1] = id
	binary.LittleEndian.PutUint64(data[2:codecHeaderSize], xxh3.Hash(payload))
	return append(data, payload...), nil
}

// decodeRow reverses encodeRow against the columns of meta. A checksum
// mismatch or malformed payload wraps ErrCorrupt.
func decodeRow(data []byte, meta *core.Meta) ([]core.Value, error) {
	if len(data) < codecHeaderSize || data[0] != codecVersion {
		return nil, fmt.Errorf("%w: bad row header", ErrCorrupt)
	}
	payload := data[codecHeaderSize:]
	if binary.LittleEndian.Uint64(data[2:codecHeaderSize]) != xxh3.Hash(payload) {
		return nil, fmt.Errorf("%w: row checksum mismatch", ErrCorrupt)
	}

	switch data[1] {
	case compressNone:
	case compressZstd:
		plain, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		payload = plain
	case compressLZ4:
		plain, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		payload = plain
	default:
		return nil, fmt.Errorf("%w: unknown compressor %d", ErrCorrupt, data[1])
	}

	var cells []*string
	if err := json.Unmarshal(payload, &cells); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(cells) != len(meta.Columns) {
		return nil, fmt.Errorf("%w: row has %d cells, table has %d columns", ErrCorrupt, len(cells), len(meta.Columns))
	}

	values := make([]core.Value, len(cells))
	for i, cell := range cells {
		if cell == nil {
			values[i] = core.NilValue()
			continue
		}
		v, err := core.ParseValue(*cell, meta.Columns[i])
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrCorrupt, meta.Columns[i].Name, err)
		}
		values[i] = v
	}
	return values, nil
}
