package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"
)

// Format selects a document encoding
type Format int

const (
	// YAML is human-editable and the default for unknown extensions
	YAML Format = iota
	// JSON matches the scene stream encoding
	JSON
	// Compressed is JSON in a snappy block behind a checksummed header
	Compressed
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case JSON:
		return "json"
	case Compressed:
		return "snappy"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// magic prefixes compressed documents
var magic = [4]byte{'F', 'G', 'S', '1'}

// ErrChecksum is returned when a compressed document fails verification
var ErrChecksum = errors.New("snapshot checksum mismatch")

// FormatFor picks a format from a file extension
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".fgz", ".sz", ".snappy":
		return Compressed
	default:
		return YAML
	}
}

// Encode writes doc to w
func Encode(w io.Writer, doc Document, f Format) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml snapshot: %w", err)
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case Compressed:
		return encodeCompressed(w, doc)
	default:
		return fmt.Errorf("unknown snapshot format %v", f)
	}
}

// Format: [magic:4][len:4][crc32:4][snappy block:len]
func encodeCompressed(w io.Writer, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	block := snappy.Encode(nil, raw)

	var header [12]byte
	copy(header[:4], magic[:])
	binary.BigEndian.PutUint32(header[4:8], uint32(len(block)))
	binary.BigEndian.PutUint32(header[8:12], crc32.ChecksumIEEE(block))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

// Decode reads a document from r
func Decode(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return doc, fmt.Errorf("decode yaml snapshot: %w", err)
		}
	case JSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return doc, fmt.Errorf("decode json snapshot: %w", err)
		}
	case Compressed:
		var err error
		if doc, err = decodeCompressed(r); err != nil {
			return doc, err
		}
	default:
		return doc, fmt.Errorf("unknown snapshot format %v", f)
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	return doc, doc.Validate()
}

func decodeCompressed(r io.Reader) (Document, error) {
	var doc Document
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return doc, fmt.Errorf("read snapshot header: %w", err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return doc, fmt.Errorf("%w: bad magic %q", ErrInvalidDocument, header[:4])
	}

	size := binary.BigEndian.Uint32(header[4:8])
	block := make([]byte, size)
	if _, err := io.ReadFull(r, block); err != nil {
		return doc, fmt.Errorf("read snapshot body: %w", err)
	}
	if crc32.ChecksumIEEE(block) != binary.BigEndian.Uint32(header[8:12]) {
		return doc, ErrChecksum
	}

	raw, err := snappy.Decode(nil, block)
	if err != nil {
		return doc, fmt.Errorf("decompress snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode snapshot: %w", err)
	}
	return doc, nil
}

// SaveFile writes doc to path in the format implied by its extension,
// replacing any previous file atomically.
func SaveFile(path string, doc Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, FormatFor(path)); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a document from path
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Decode(f, FormatFor(path))
}
