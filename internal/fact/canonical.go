package fact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalJSON produces the canonical text form used for storage:
//   - keys sorted by UTF-16 code units
//   - keys NFC normalised; string values kept byte for byte
//   - no HTML escaping
//   - floats always carry a '.' or exponent so they decode back as Float
func (s Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalString(norm.NFC.String(k))
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalValue(s.m[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a flat JSON object of primitives.
// Numbers without a fraction or exponent become Int, others Float.
func (s *Set) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Set{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode facts: %w", err)
	}

	m := make(map[string]Value, len(raw))
	for name, rv := range raw {
		v, err := decodeValue(rv)
		if err != nil {
			return fmt.Errorf("decode fact %q: %w", name, err)
		}
		if err := put(m, name, v); err != nil {
			return err
		}
	}
	*s = Set{m: m}
	return nil
}

// Marshal returns the canonical text form of s.
func Marshal(s Set) (string, error) {
	data, err := s.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Unmarshal parses the canonical text form produced by Marshal.
func Unmarshal(text string) (Set, error) {
	var s Set
	if err := s.UnmarshalJSON([]byte(text)); err != nil {
		return Set{}, err
	}
	return s, nil
}

func decodeValue(rv any) (Value, error) {
	switch val := rv.(type) {
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		text := val.String()
		if strings.ContainsAny(text, ".eE") {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, err
			}
			return checkValue(Float(f))
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, err
		}
		return Int(n), nil
	case nil:
		return nil, fmt.Errorf("null is not a fact value")
	default:
		return nil, fmt.Errorf("nested %T is not a fact value", rv)
	}
}

func marshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Float:
		if _, err := checkValue(val); err != nil {
			return nil, err
		}
		text := strconv.FormatFloat(float64(val), 'g', -1, 64)
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
		return []byte(text), nil
	case String:
		return marshalString(string(val))
	default:
		return nil, fmt.Errorf("unsupported fact value %T", v)
	}
}

// marshalString encodes s as a JSON string without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// compareKeys orders strings by UTF-16 code units, matching RFC 8785.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
