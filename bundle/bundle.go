// Package bundle implements the persisted-model container format.
//
// A bundle is a single self-describing byte sequence holding a JSON
// manifest plus named binary artifacts:
//
//	header   magic, format version, blob compression codec
//	manifest JSON (model type id, fitted shape, hyperparameters)
//	toc      per-artifact {id, offset, length, crc32} into the blob region
//	blob     concatenated artifact bytes, optionally compressed as a whole
//	trailer  crc32 of everything above
//
// Artifact bytes round-trip verbatim: compression is applied to the stored
// blob region only and offsets always address the uncompressed region, so
// a decoded artifact is bit-identical to what was encoded.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	// Magic identifies fmgo bundle files (ASCII "FMB0").
	Magic uint32 = 0x464D4230
	// Version is the current container format version.
	Version uint32 = 1
)

var (
	ErrInvalidMagic   = errors.New("bundle: invalid magic number")
	ErrInvalidVersion = errors.New("bundle: unsupported version")
	ErrChecksum       = errors.New("bundle: checksum mismatch")
	ErrNoSuchArtifact = errors.New("bundle: no such artifact")
)

// Artifact is one named byte payload.
type Artifact struct {
	ID   string
	Data []byte
}

// TOCEntry locates one artifact inside the (uncompressed) blob region.
type TOCEntry struct {
	ID     string
	Offset uint64
	Length uint64
	CRC32  uint32
}

// Bundle is a decoded container.
type Bundle struct {
	Manifest json.RawMessage
	TOC      []TOCEntry

	blob []byte
}

// DecodeManifest unmarshals the manifest into v.
func (b *Bundle) DecodeManifest(v any) error {
	return json.Unmarshal(b.Manifest, v)
}

// Artifact returns a copy of the named artifact's bytes, verifying its
// content hash.
func (b *Bundle) Artifact(id string) ([]byte, error) {
	for _, e := range b.TOC {
		if e.ID != id {
			continue
		}
		if e.Offset > uint64(len(b.blob)) || e.Length > uint64(len(b.blob))-e.Offset {
			return nil, fmt.Errorf("bundle: artifact %q extends past blob region", e.ID)
		}
		data := b.blob[e.Offset : e.Offset+e.Length]
		if crc32.ChecksumIEEE(data) != e.CRC32 {
			return nil, fmt.Errorf("%w: artifact %q", ErrChecksum, id)
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchArtifact, id)
}

// Has reports whether the bundle contains an artifact with the given id.
func (b *Bundle) Has(id string) bool {
	for _, e := range b.TOC {
		if e.ID == id {
			return true
		}
	}
	return false
}

type encodeOptions struct {
	compression Compression
}

// Option configures Encode.
type Option func(*encodeOptions)

// WithCompression selects the blob-region compression codec. The codec
// name is recorded in the header, so decoding needs no configuration.
func WithCompression(c Compression) Option {
	return func(o *encodeOptions) {
		o.compression = c
	}
}

// Encode serializes the manifest and artifacts into a bundle.
func Encode(manifest any, artifacts []Artifact, opts ...Option) ([]byte, error) {
	o := encodeOptions{compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.compression.valid() {
		return nil, fmt.Errorf("bundle: unknown compression codec %d", o.compression)
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("bundle: encode manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(artifacts))
	toc := make([]TOCEntry, 0, len(artifacts))
	var blob []byte
	for _, a := range artifacts {
		if a.ID == "" {
			return nil, errors.New("bundle: empty artifact id")
		}
		if _, dup := seen[a.ID]; dup {
			return nil, fmt.Errorf("bundle: duplicate artifact id %q", a.ID)
		}
		seen[a.ID] = struct{}{}

		toc = append(toc, TOCEntry{
			ID:     a.ID,
			Offset: uint64(len(blob)),
			Length: uint64(len(a.Data)),
			CRC32:  crc32.ChecksumIEEE(a.Data),
		})
		blob = append(blob, a.Data...)
	}

	stored, err := compress(o.compression, blob)
	if err != nil {
		return nil, err
	}

	w := newWriter()
	w.uint32(Magic)
	w.uint32(Version)
	w.uint8(uint8(o.compression))
	w.pad(3)
	w.bytes32(manifestJSON)
	w.uint32(uint32(len(toc)))
	for _, e := range toc {
		w.string16(e.ID)
		w.uint64(e.Offset)
		w.uint64(e.Length)
		w.uint32(e.CRC32)
	}
	w.bytes64(stored)
	w.trailerCRC()

	return w.buf, nil
}

// Decode parses a bundle, verifying the trailer checksum and the table of
// contents before returning.
func Decode(data []byte) (*Bundle, error) {
	r := &reader{buf: data}

	magic, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrInvalidVersion, version, Version)
	}

	// Trailer covers everything before it; verify before trusting any
	// variable-length field.
	if err := r.verifyTrailer(); err != nil {
		return nil, err
	}

	comp, err := r.uint8()
	if err != nil {
		return nil, err
	}
	compression := Compression(comp)
	if !compression.valid() {
		return nil, fmt.Errorf("bundle: unknown compression codec %d", comp)
	}
	if err := r.skip(3); err != nil {
		return nil, err
	}

	manifestJSON, err := r.bytes32()
	if err != nil {
		return nil, err
	}

	count, err := r.uint32()
	if err != nil {
		return nil, err
	}
	toc := make([]TOCEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e TOCEntry
		if e.ID, err = r.string16(); err != nil {
			return nil, err
		}
		if e.Offset, err = r.uint64(); err != nil {
			return nil, err
		}
		if e.Length, err = r.uint64(); err != nil {
			return nil, err
		}
		if e.CRC32, err = r.uint32(); err != nil {
			return nil, err
		}
		toc = append(toc, e)
	}

	stored, err := r.bytes64()
	if err != nil {
		return nil, err
	}
	blob, err := decompress(compression, stored)
	if err != nil {
		return nil, err
	}

	// Overflow-safe: Offset+Length can wrap uint64 on crafted input.
	for _, e := range toc {
		if e.Offset > uint64(len(blob)) || e.Length > uint64(len(blob))-e.Offset {
			return nil, fmt.Errorf("bundle: artifact %q extends past blob region", e.ID)
		}
	}

	return &Bundle{
		Manifest: json.RawMessage(manifestJSON),
		TOC:      toc,
		blob:     blob,
	}, nil
}
