package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/segbuild/model"
)

// The id tracker maps document ids to their dense ordinals within a
// segment. It is uploaded alongside the data blob so later build cycles
// can tombstone documents without touching segment data. The encoding
// is a zstd stream of length-prefixed ids in ordinal order.

// EncodeIDTracker writes the id tracker for a segment whose ordinals
// follow the order of ids.
func EncodeIDTracker(w io.Writer, ids []model.DocumentID) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create id tracker compressor: %w", err)
	}

	bw := bufio.NewWriter(zw)

	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(ids)))
	if _, err := bw.Write(scratch[:n]); err != nil {
		return err
	}

	for _, id := range ids {
		n := binary.PutUvarint(scratch[:], uint64(len(id)))
		if _, err := bw.Write(scratch[:n]); err != nil {
			return err
		}
		if _, err := bw.WriteString(string(id)); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// DecodeIDTracker reads an id tracker back into an id-to-ordinal map.
func DecodeIDTracker(r io.Reader) (map[model.DocumentID]uint32, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create id tracker decompressor: %w", err)
	}
	defer zr.Close()

	br := bufio.NewReader(zr)

	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("read id tracker length: %w", err)
	}

	ids := make(map[model.DocumentID]uint32, count)
	buf := make([]byte, 0, 64)
	for ordinal := uint32(0); uint64(ordinal) < count; ordinal++ {
		size, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("read id length at ordinal %d: %w", ordinal, err)
		}
		if cap(buf) < int(size) {
			buf = make([]byte, size)
		}
		buf = buf[:size]
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read id at ordinal %d: %w", ordinal, err)
		}
		ids[model.DocumentID(buf)] = ordinal
	}

	return ids, nil
}
