package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/segbuild/model"
)

// Flat segment layout: a header (magic, dimension, row count) followed
// by a stream of LZ4 blocks. Each block header is
// [uncompressed uint32][compressed uint32], where compressed == 0 marks
// a block stored raw. The decompressed stream is a sequence of rows:
// uvarint id length, id bytes, dimension little-endian float32 values.

const (
	flatMagic     = uint32(0x4C464253) // "SBFL"
	flatBlockSize = 256 * 1024
)

// incompressible blocks are stored raw rather than inflated
const minCompressionRatio = 0.9

type blockWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

func (b *blockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := flatBlockSize - b.buf.Len()
		if space <= 0 {
			if err := b.flushBlock(); err != nil {
				return total, err
			}
			space = flatBlockSize
		}
		n := min(len(p), space)
		b.buf.Write(p[:n])
		total += n
		p = p[n:]
	}
	return total, nil
}

func (b *blockWriter) flushBlock() error {
	if b.buf.Len() == 0 {
		return nil
	}
	data := b.buf.Bytes()

	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return err
	}

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(len(data)))
	if n == 0 || float64(n) > float64(len(data))*minCompressionRatio {
		binary.LittleEndian.PutUint32(header[4:], 0)
		if _, err := b.w.Write(header[:]); err != nil {
			return err
		}
		if _, err := b.w.Write(data); err != nil {
			return err
		}
	} else {
		binary.LittleEndian.PutUint32(header[4:], uint32(n))
		if _, err := b.w.Write(header[:]); err != nil {
			return err
		}
		if _, err := b.w.Write(compressed[:n]); err != nil {
			return err
		}
	}

	b.buf.Reset()
	return nil
}

type blockReader struct {
	r     *bufio.Reader
	block []byte
	off   int
}

func (b *blockReader) Read(p []byte) (int, error) {
	for b.off >= len(b.block) {
		if err := b.readBlock(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.block[b.off:])
	b.off += n
	return n, nil
}

func (b *blockReader) readBlock() error {
	var header [8]byte
	if _, err := io.ReadFull(b.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}
	uncompressed := binary.LittleEndian.Uint32(header[0:])
	compressed := binary.LittleEndian.Uint32(header[4:])

	if compressed == 0 {
		b.block = make([]byte, uncompressed)
		if _, err := io.ReadFull(b.r, b.block); err != nil {
			return fmt.Errorf("read raw block: %w", err)
		}
		b.off = 0
		return nil
	}

	src := make([]byte, compressed)
	if _, err := io.ReadFull(b.r, src); err != nil {
		return fmt.Errorf("read compressed block: %w", err)
	}
	dst := make([]byte, uncompressed)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return fmt.Errorf("decompress block: %w", err)
	}
	if uint32(n) != uncompressed {
		return fmt.Errorf("decompressed size mismatch: got %d, want %d", n, uncompressed)
	}
	b.block = dst
	b.off = 0
	return nil
}

// FlatWriter streams id/vector rows into the flat segment layout.
type FlatWriter struct {
	bw      *blockWriter
	dim     int
	want    uint64
	written uint64
}

// NewFlatWriter writes the header for count rows of the given
// dimension. Exactly count rows must follow.
func NewFlatWriter(w io.Writer, dim int, count uint64) (*FlatWriter, error) {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], flatMagic)
	if _, err := w.Write(header[:]); err != nil {
		return nil, err
	}

	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(dim))
	if _, err := w.Write(scratch[:n]); err != nil {
		return nil, err
	}
	n = binary.PutUvarint(scratch[:], count)
	if _, err := w.Write(scratch[:n]); err != nil {
		return nil, err
	}

	return &FlatWriter{bw: &blockWriter{w: w}, dim: dim, want: count}, nil
}

// Add appends one row.
func (w *FlatWriter) Add(id model.DocumentID, vec []float32) error {
	if len(vec) != w.dim {
		return fmt.Errorf("vector for %s has dimension %d, index expects %d", id, len(vec), w.dim)
	}
	if w.written >= w.want {
		return fmt.Errorf("row count overflow: declared %d rows", w.want)
	}

	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(id)))
	if _, err := w.bw.Write(scratch[:n]); err != nil {
		return err
	}
	if _, err := w.bw.Write([]byte(id)); err != nil {
		return err
	}

	row := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(row[4*i:], math.Float32bits(v))
	}
	if _, err := w.bw.Write(row); err != nil {
		return err
	}

	w.written++
	return nil
}

// Close flushes the final block. It fails if fewer rows were added than
// declared.
func (w *FlatWriter) Close() error {
	if w.written != w.want {
		return fmt.Errorf("row count underflow: declared %d rows, wrote %d", w.want, w.written)
	}
	return w.bw.flushBlock()
}

// FlatReader iterates the rows of a flat segment.
type FlatReader struct {
	br   *bufio.Reader
	dim  int
	rest uint64
}

// NewFlatReader validates the header and positions at the first row.
func NewFlatReader(r io.Reader) (*FlatReader, error) {
	hr := bufio.NewReader(r)

	var header [4]byte
	if _, err := io.ReadFull(hr, header[:]); err != nil {
		return nil, fmt.Errorf("read flat header: %w", err)
	}
	if magic := binary.LittleEndian.Uint32(header[:]); magic != flatMagic {
		return nil, fmt.Errorf("bad flat magic 0x%08x", magic)
	}

	dim, err := binary.ReadUvarint(hr)
	if err != nil {
		return nil, fmt.Errorf("read flat dimension: %w", err)
	}
	count, err := binary.ReadUvarint(hr)
	if err != nil {
		return nil, fmt.Errorf("read flat row count: %w", err)
	}

	return &FlatReader{
		br:   bufio.NewReader(&blockReader{r: hr}),
		dim:  int(dim),
		rest: count,
	}, nil
}

// Dimension returns the vector dimension recorded in the header.
func (r *FlatReader) Dimension() int { return r.dim }

// Next returns the next row, or io.EOF after the last one.
func (r *FlatReader) Next() (model.DocumentID, []float32, error) {
	if r.rest == 0 {
		return "", nil, io.EOF
	}

	size, err := binary.ReadUvarint(r.br)
	if err != nil {
		return "", nil, fmt.Errorf("read row id length: %w", err)
	}
	id := make([]byte, size)
	if _, err := io.ReadFull(r.br, id); err != nil {
		return "", nil, fmt.Errorf("read row id: %w", err)
	}

	raw := make([]byte, 4*r.dim)
	if _, err := io.ReadFull(r.br, raw); err != nil {
		return "", nil, fmt.Errorf("read row vector: %w", err)
	}
	vec := make([]float32, r.dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}

	r.rest--
	return model.DocumentID(id), vec, nil
}
