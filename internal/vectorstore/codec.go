package vectorstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"docuchat/internal/pkg/textsplit"
)

// Binary layout (little endian):
//
//	magic   [4]byte "DCIX"
//	version uint16
//	dim     uint32
//	count   uint32
//	entries count × { ordinal uint32, textLen uint32, text []byte, vector dim × float32 }
//
// Dimension and count travel with the blob, so a stored index can be decoded
// without any external context.
var indexMagic = [4]byte{'D', 'C', 'I', 'X'}

const codecVersion uint16 = 1

// Encode serializes the index into its versioned binary form.
func Encode(x *Index) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(indexMagic[:])
	if err := writeAll(&buf, codecVersion, uint32(x.dim), uint32(len(x.entries))); err != nil {
		return nil, fmt.Errorf("encode index header: %w", err)
	}

	for _, e := range x.entries {
		text := []byte(e.Chunk.Text)
		if err := writeAll(&buf, uint32(e.Chunk.Ordinal), uint32(len(text))); err != nil {
			return nil, fmt.Errorf("encode entry %d: %w", e.Chunk.Ordinal, err)
		}
		buf.Write(text)
		for _, v := range e.Vector {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return nil, fmt.Errorf("encode entry %d vector: %w", e.Chunk.Ordinal, err)
			}
		}
	}
	return buf.Bytes(), nil
}

// Decode rebuilds an index from its binary form.
func Decode(blob []byte) (*Index, error) {
	r := bytes.NewReader(blob)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("decode index header: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("decode index: bad magic %q", magic[:])
	}

	var version uint16
	var dim, count uint32
	if err := readAll(r, &version, &dim, &count); err != nil {
		return nil, fmt.Errorf("decode index header: %w", err)
	}
	if version != codecVersion {
		return nil, fmt.Errorf("decode index: unsupported version %d", version)
	}

	x := &Index{dim: int(dim)}
	x.entries = make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		var ordinal, textLen uint32
		if err := readAll(r, &ordinal, &textLen); err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", i, err)
		}
		text := make([]byte, textLen)
		if _, err := io.ReadFull(r, text); err != nil {
			return nil, fmt.Errorf("decode entry %d text: %w", i, err)
		}
		vector := make([]float32, dim)
		for d := range vector {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, fmt.Errorf("decode entry %d vector: %w", i, err)
			}
			vector[d] = math.Float32frombits(bits)
		}
		x.entries = append(x.entries, Entry{
			Chunk:  textsplit.Chunk{Text: string(text), Ordinal: int(ordinal)},
			Vector: vector,
		})
	}
	return x, nil
}

func writeAll(w io.Writer, values ...interface{}) error {
	for _, v := range values {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readAll(r io.Reader, targets ...interface{}) error {
	for _, t := range targets {
		if err := binary.Read(r, binary.LittleEndian, t); err != nil {
			return err
		}
	}
	return nil
}
