// Package farfile reads and writes patch tables as PTBL binary files and
// as YAML descriptions.
//
// A PTBL file is laid out as:
//
//	"PTBL" | version u8 | compression u8 | payload | xxhash64(payload) u64
//
// The checksum covers the uncompressed payload. All integers are little
// endian. Decoding replays the payload through far.Builder, so a decoded
// table satisfies the same invariants as one built in memory.
package farfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/patchtables/pkg/far"
	"github.com/Faultbox/patchtables/pkg/sdc"
)

// PTBL format errors.
var (
	ErrInvalidMagic       = errors.New("invalid PTBL magic: expected 'PTBL'")
	ErrUnsupportedVersion = errors.New("unsupported PTBL version")
	ErrTruncatedData      = errors.New("truncated PTBL data")
	ErrChecksumMismatch   = errors.New("PTBL checksum mismatch")
	ErrUnknownCompression = errors.New("unknown PTBL compression")
)

const (
	magic         = "PTBL"
	Version uint8 = 1

	headerSize  = 6
	trailerSize = 8
)

// Compression selects how the payload is stored.
type Compression uint8

// Compression codecs.
const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression parses "none" or "zstd".
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return CompressionNone, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if c > CompressionZstd {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Options control encoding.
type Options struct {
	Compression Compression
}

// Header is the fixed prefix of a PTBL file.
type Header struct {
	Version     uint8
	Compression Compression
}

// ReadHeader validates and returns the header of a PTBL file.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize+trailerSize {
		return Header{}, ErrTruncatedData
	}
	if string(data[0:4]) != magic {
		return Header{}, ErrInvalidMagic
	}
	h := Header{Version: data[4], Compression: Compression(data[5])}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Compression > CompressionZstd {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownCompression, data[5])
	}
	return h, nil
}

// Marshal encodes pt into a PTBL file image.
func Marshal(pt *far.PatchTables, opts Options) ([]byte, error) {
	payload, err := encodePayload(pt)
	if err != nil {
		return nil, err
	}
	sum := xxhash.Sum64(payload)

	switch opts.Compression {
	case CompressionNone:
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		payload = enc.EncodeAll(payload, nil)
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(opts.Compression))
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(payload) + trailerSize)
	out.WriteString(magic)
	out.WriteByte(Version)
	out.WriteByte(byte(opts.Compression))
	out.Write(payload)
	_ = binary.Write(&out, binary.LittleEndian, sum)
	return out.Bytes(), nil
}

// Encode writes pt to w as a PTBL file.
func Encode(w io.Writer, pt *far.PatchTables, opts Options) error {
	data, err := Marshal(pt, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes pt to path as a PTBL file.
func WriteFile(path string, pt *far.PatchTables, opts Options) error {
	data, err := Marshal(pt, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Decode parses a PTBL file image.
func Decode(data []byte) (*far.PatchTables, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	body := data[headerSize : len(data)-trailerSize]
	want := binary.LittleEndian.Uint64(data[len(data)-trailerSize:])

	payload := body
	if h.Compression == CompressionZstd {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing payload: %w", err)
		}
	}

	if got := xxhash.Sum64(payload); got != want {
		return nil, fmt.Errorf("%w: got %016x, want %016x", ErrChecksumMismatch, got, want)
	}
	return decodePayload(payload)
}

// ReadFile loads a PTBL file from disk.
func ReadFile(path string) (*far.PatchTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PTBL file: %w", err)
	}
	return Decode(data)
}

// stencil table flags
const (
	hasVertexStencils  = 1 << 0
	hasVaryingStencils = 1 << 1
)

func encodePayload(pt *far.PatchTables) ([]byte, error) {
	var buf bytes.Buffer
	put := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	put(uint32(pt.MaxValence()))
	put(uint32(pt.NumPtexFaces()))

	put(uint32(pt.NumPatchArrays()))
	for a := 0; a < pt.NumPatchArrays(); a++ {
		desc := pt.PatchArrayDescriptor(a)
		n := pt.NumPatches(a)
		put(uint8(desc.Type))
		put(uint32(n))
		put(pt.PatchArrayVertices(a))
		put(pt.PatchParams(a))

		var quads []uint32
		for p := 0; p < n; p++ {
			quads = append(quads, pt.PatchQuadOffsets(pt.Handle(a, p))...)
		}
		if len(quads) > 0 {
			put(uint8(1))
			put(quads)
		} else {
			put(uint8(0))
		}
	}

	type creased struct {
		array, patch uint32
		sharpness    float32
	}
	var creases []creased
	for a := 0; a < pt.NumPatchArrays(); a++ {
		for p := 0; p < pt.NumPatches(a); p++ {
			if s := pt.SingleCreaseSharpnessAt(a, p); s > 0 {
				creases = append(creases, creased{uint32(a), uint32(p), s})
			}
		}
	}
	put(uint32(len(creases)))
	for _, c := range creases {
		put(c.array)
		put(c.patch)
		put(c.sharpness)
	}

	valence := pt.VertexValenceTable()
	put(uint32(len(valence)))
	put(valence)

	var flags uint8
	if pt.EndCapVertexStencils() != nil {
		flags |= hasVertexStencils
	}
	if pt.EndCapVaryingStencils() != nil {
		flags |= hasVaryingStencils
	}
	put(flags)
	if flags&hasVertexStencils != 0 {
		putStencils(put, pt.EndCapVertexStencils())
	}
	if flags&hasVaryingStencils != 0 {
		putStencils(put, pt.EndCapVaryingStencils())
	}

	put(uint32(pt.NumFVarChannels()))
	for c := 0; c < pt.NumFVarChannels(); c++ {
		put(uint8(pt.FVarChannelLinearInterpolation(c)))
		types := pt.FVarPatchTypes(c)
		put(uint32(len(types)))
		for i, t := range types {
			values := pt.FVarPatchValues(c, pt.HandleAt(i))
			put(uint8(t))
			put(uint32(len(values)))
			put(values)
		}
	}

	return buf.Bytes(), nil
}

// stencilSource reports how many source vertices a table addresses.
type stencilSource interface {
	NumControlVertices() int
}

func putStencils(put func(any), st far.Stencils) {
	n := st.NumStencils()
	sizes := make([]int32, n)
	var indices []far.Index
	var weights []float32
	numCV := 0
	for i := 0; i < n; i++ {
		s := st.Stencil(far.Index(i))
		sizes[i] = int32(s.Size())
		indices = append(indices, s.Indices...)
		weights = append(weights, s.Weights...)
		for _, idx := range s.Indices {
			numCV = max(numCV, int(idx)+1)
		}
	}
	if src, ok := st.(stencilSource); ok {
		numCV = max(numCV, src.NumControlVertices())
	}

	put(uint32(numCV))
	put(uint32(n))
	put(sizes)
	put(indices)
	put(weights)
}

// reader decodes little-endian fields and remembers the first failure.
type reader struct {
	r   *bytes.Reader
	err error
}

func (d *reader) read(what string, v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		d.err = fmt.Errorf("%w: reading %s", ErrTruncatedData, what)
	}
}

func (d *reader) u8(what string) uint8 {
	var v uint8
	d.read(what, &v)
	return v
}

func (d *reader) u32(what string) uint32 {
	var v uint32
	d.read(what, &v)
	return v
}

// count reads an element count and checks that the remaining data can
// hold that many elements of the given size.
func (d *reader) count(what string, size int) int {
	n := int(d.u32(what))
	if d.err == nil && n*size > d.r.Len() {
		d.err = fmt.Errorf("%w: %s %d exceeds remaining data", ErrTruncatedData, what, n)
		return 0
	}
	return n
}

func (d *reader) indices(what string, n int) []far.Index {
	if d.err != nil {
		return nil
	}
	if n*4 > d.r.Len() {
		d.err = fmt.Errorf("%w: reading %s", ErrTruncatedData, what)
		return nil
	}
	v := make([]far.Index, n)
	d.read(what, v)
	return v
}

func decodePayload(payload []byte) (*far.PatchTables, error) {
	d := &reader{r: bytes.NewReader(payload)}

	maxValence := d.u32("max valence")
	numPtexFaces := d.u32("ptex face count")
	if d.err != nil {
		return nil, d.err
	}
	b := far.NewBuilder(int(maxValence), int(numPtexFaces))

	numArrays := d.count("patch array count", 5)
	b.ReservePatchArrays(numArrays)
	for a := 0; a < numArrays && d.err == nil; a++ {
		desc := far.NewDescriptor(far.PatchType(d.u8("patch type")))
		n := d.count("patch count", 8)
		verts := d.indices("patch vertices", n*desc.NumControlVertices())

		params := make([]far.PatchParam, n)
		d.read("patch params", params)

		var quads []uint32
		if d.u8("quad offsets flag") != 0 && d.err == nil {
			if 16*n > d.r.Len() {
				d.err = fmt.Errorf("%w: reading quad offsets", ErrTruncatedData)
				break
			}
			quads = make([]uint32, 4*n)
			d.read("quad offsets", quads)
		}
		if d.err != nil {
			break
		}
		if _, err := b.PushPatchArray(desc, n, verts, params, quads); err != nil {
			return nil, fmt.Errorf("patch array %d: %w", a, err)
		}
	}

	numCreases := d.count("crease count", 12)
	for i := 0; i < numCreases && d.err == nil; i++ {
		a := d.u32("crease array")
		p := d.u32("crease patch")
		var sharpness float32
		d.read("crease sharpness", &sharpness)
		if d.err != nil {
			break
		}
		if err := b.SetSingleCreaseSharpness(int(a), int(p), sharpness); err != nil {
			return nil, fmt.Errorf("crease %d: %w", i, err)
		}
	}

	valence := d.indices("valence table", d.count("valence table size", 4))
	if d.err != nil {
		return nil, d.err
	}
	if len(valence) > 0 {
		if err := b.SetVertexValenceTable(valence); err != nil {
			return nil, err
		}
	}

	flags := d.u8("stencil flags")
	var vertex, varying far.Stencils
	if flags&hasVertexStencils != 0 {
		st, err := readStencils(d)
		if err != nil {
			return nil, fmt.Errorf("vertex stencils: %w", err)
		}
		vertex = st
	}
	if flags&hasVaryingStencils != 0 {
		st, err := readStencils(d)
		if err != nil {
			return nil, fmt.Errorf("varying stencils: %w", err)
		}
		varying = st
	}
	if vertex != nil || varying != nil {
		if err := b.SetEndCapStencils(vertex, varying); err != nil {
			return nil, err
		}
	}

	if err := readFVarChannels(d, b); err != nil {
		return nil, err
	}
	if d.r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing payload bytes", d.r.Len())
	}
	return b.Build()
}

func readStencils(d *reader) (far.Stencils, error) {
	numCV := d.u32("stencil source count")
	n := d.count("stencil count", 4)
	sizes := make([]int32, n)
	d.read("stencil sizes", sizes)
	if d.err != nil {
		return nil, d.err
	}

	total := 0
	for _, s := range sizes {
		if s < 0 {
			return nil, fmt.Errorf("%w: negative stencil size", far.ErrInvalidStencils)
		}
		total += int(s)
	}
	indices := d.indices("stencil indices", total)
	weights := make([]float32, len(indices))
	d.read("stencil weights", weights)
	if d.err != nil {
		return nil, d.err
	}
	return far.NewStencilTable(int(numCV), sizes, indices, weights)
}

func readFVarChannels(d *reader, b *far.Builder) error {
	numChannels := d.count("fvar channel count", 5)
	if d.err != nil {
		return d.err
	}
	if numChannels == 0 {
		return nil
	}
	if err := b.AllocateFVarChannels(numChannels); err != nil {
		return err
	}

	for c := 0; c < numChannels; c++ {
		interp := sdc.FVarLinearInterpolation(d.u8("fvar interpolation"))
		n := d.count("fvar patch count", 5)
		if d.err != nil {
			return d.err
		}
		if err := b.SetFVarChannelLinearInterpolation(c, interp); err != nil {
			return err
		}
		for p := 0; p < n; p++ {
			t := far.PatchType(d.u8("fvar patch type"))
			values := d.indices("fvar values", d.count("fvar value count", 4))
			if d.err != nil {
				return d.err
			}
			if p == 0 {
				if err := b.SetFVarChannelPatchesType(c, t); err != nil {
					return err
				}
			}
			if err := b.AppendFVarPatch(c, t, values); err != nil {
				return fmt.Errorf("fvar channel %d patch %d: %w", c, p, err)
			}
		}
	}
	return nil
}
