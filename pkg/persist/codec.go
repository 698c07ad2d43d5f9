// Package persist saves and restores knowledge stores as exchange documents,
// on local disk, in PostgreSQL, or in an S3-compatible bucket.
package persist

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/validation"
)

var (
	// ErrUnknownFormat is returned for a file extension or format name with no codec.
	ErrUnknownFormat = errors.New("unknown snapshot format")
	// ErrCorruptSnapshot is returned when a compressed snapshot fails its checksum.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrNoSnapshot is returned by Load when the backend holds no snapshot yet.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrInvalidSnapshot is returned by Load when a stored document fails validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// restore validates doc the way datasets are validated and builds a store from it.
func restore(doc knowledge.Document) (*knowledge.Store, error) {
	if err := validation.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return knowledge.Import(doc)
}

// Codec converts an exchange document to and from bytes.
type Codec interface {
	Name() string
	Encode(doc knowledge.Document) ([]byte, error)
	Decode(data []byte) (knowledge.Document, error)
}

// JSONCodec writes indented JSON with non-ASCII text left as is.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(doc knowledge.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func (JSONCodec) Decode(data []byte) (knowledge.Document, error) {
	var doc knowledge.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return knowledge.Document{}, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}

// YAMLCodec writes the document as YAML.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(doc knowledge.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Decode(data []byte) (knowledge.Document, error) {
	var doc knowledge.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return knowledge.Document{}, fmt.Errorf("decode yaml: %w", err)
	}
	return doc, nil
}

// snappyMagic starts every compressed snapshot.
var snappyMagic = []byte("SNSZ\x01")

// SnappyCodec compresses the output of Inner with snappy. The frame is
// [magic:5][crc32:4][snappy block], the checksum covering the block.
type SnappyCodec struct {
	Inner Codec
}

func (c SnappyCodec) inner() Codec {
	if c.Inner == nil {
		return JSONCodec{}
	}
	return c.Inner
}

func (c SnappyCodec) Name() string { return "snappy" }

func (c SnappyCodec) Encode(doc knowledge.Document) ([]byte, error) {
	raw, err := c.inner().Encode(doc)
	if err != nil {
		return nil, err
	}
	block := snappy.Encode(nil, raw)

	out := make([]byte, 0, len(snappyMagic)+4+len(block))
	out = append(out, snappyMagic...)
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(block))
	out = append(out, block...)
	return out, nil
}

func (c SnappyCodec) Decode(data []byte) (knowledge.Document, error) {
	header := len(snappyMagic) + 4
	if len(data) < header || !bytes.Equal(data[:len(snappyMagic)], snappyMagic) {
		return knowledge.Document{}, fmt.Errorf("%w: bad header", ErrCorruptSnapshot)
	}
	sum := binary.BigEndian.Uint32(data[len(snappyMagic):header])
	block := data[header:]
	if crc32.ChecksumIEEE(block) != sum {
		return knowledge.Document{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	raw, err := snappy.Decode(nil, block)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return c.inner().Decode(raw)
}

// CodecByName returns the codec for "json", "yaml" or "snappy".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	case "snappy", "sz":
		return SnappyCodec{Inner: JSONCodec{}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// CodecFor picks a codec from the extension of path: .json, .yaml/.yml,
// or .sz/.snappy for compressed JSON.
func CodecFor(path string) (Codec, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return CodecByName(ext)
}
