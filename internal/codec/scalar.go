package codec

import (
	"encoding/binary"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"wirec/internal/types"
)

// scalarBits parses a bool, integer or float scalar into its wire bits.
func scalarBits(tt types.Type, node *yaml.Node) (uint64, error) {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return 0, errMismatch("expected a %s scalar", kindWord(tt))
	}
	bits := int(tt.Width)
	switch tt.Kind {
	case types.KindBool:
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return 0, errMismatch("expected true or false, got %q", node.Value)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case types.KindInt:
		v, err := strconv.ParseInt(node.Value, 0, bits)
		if err != nil {
			return 0, &Error{Kind: ErrValueMismatch, Msg: "expected i" + strconv.Itoa(bits), Err: err}
		}
		return uint64(v), nil
	case types.KindUint:
		v, err := strconv.ParseUint(node.Value, 0, bits)
		if err != nil {
			return 0, &Error{Kind: ErrValueMismatch, Msg: "expected u" + strconv.Itoa(bits), Err: err}
		}
		return v, nil
	case types.KindFloat:
		v, err := parseFloat(node.Value, bits)
		if err != nil {
			return 0, &Error{Kind: ErrValueMismatch, Msg: "expected f" + strconv.Itoa(bits), Err: err}
		}
		if tt.Width == types.Width32 {
			return uint64(math.Float32bits(float32(v))), nil
		}
		return math.Float64bits(v), nil
	default:
		return 0, errMismatch("%s is not a scalar type", tt.Kind)
	}
}

// readUint reads size little-endian bytes at pos.
func readUint(buf []byte, pos int, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(buf[pos])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf[pos:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf[pos:]))
	default:
		return binary.LittleEndian.Uint64(buf[pos:])
	}
}

// signExtend interprets the low width bits of v as a two's complement value.
func signExtend(v uint64, width types.Width) int64 {
	shift := 64 - uint(width)
	return int64(v<<shift) >> shift //nolint:gosec // two's complement reinterpretation
}

// scalarNode renders wire bits of a bool, integer or float as a scalar node.
func scalarNode(tt types.Type, v uint64) *yaml.Node {
	switch tt.Kind {
	case types.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v != 0)}
	case types.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(signExtend(v, tt.Width), 10)}
	case types.KindUint:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(v, 10)}
	default:
		f := math.Float64frombits(v)
		if tt.Width == types.Width32 {
			f = float64(math.Float32frombits(uint32(v)))
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(f, int(tt.Width))}
	}
}

// parseFloat accepts the YAML spellings of the non-finite values as well as
// everything strconv does.
func parseFloat(s string, bits int) (float64, error) {
	switch s {
	case ".inf", ".Inf", ".INF", "+.inf", "+.Inf", "+.INF":
		return math.Inf(1), nil
	case "-.inf", "-.Inf", "-.INF":
		return math.Inf(-1), nil
	case ".nan", ".NaN", ".NAN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bits)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func kindWord(tt types.Type) string {
	switch tt.Kind {
	case types.KindInt:
		return "i" + strconv.Itoa(int(tt.Width))
	case types.KindUint:
		return "u" + strconv.Itoa(int(tt.Width))
	case types.KindFloat:
		return "f" + strconv.Itoa(int(tt.Width))
	default:
		return tt.Kind.String()
	}
}
