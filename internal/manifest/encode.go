package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects a manifest encoding.
type Format uint8

const (
	FormatMsgpack Format = iota + 1
	FormatJSON
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "msgpack", "mp":
		return FormatMsgpack, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown manifest format %q (expected: msgpack|json)", s)
	}
}

// Encode writes m to w in the given format.
func Encode(w io.Writer, m *Manifest, format Format) error {
	switch format {
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetOmitEmpty(true)
		return enc.Encode(m)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	default:
		return fmt.Errorf("unknown manifest format %d", format)
	}
}

// Decode reads a manifest written by Encode. Manifests of another Version
// are rejected.
func Decode(r io.Reader, format Format) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&m)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&m)
	default:
		return nil, fmt.Errorf("unknown manifest format %d", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("manifest version %d, want %d", m.Version, Version)
	}
	return &m, nil
}
