package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidJSON      = errors.New("invalid JSON")
	ErrNotRepresentable = errors.New("value not representable as JSON")
)

// FromJSON decodes exactly one JSON document. Integers without a fraction or
// exponent decode as Int, every other number as Float, and object key order
// is kept.
func FromJSON(data []byte) (Value, error) {
	dec := NewDecoder(bytes.NewReader(data))
	v, err := dec.Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidJSON)
		}
		return nil, err
	}
	if _, err := dec.dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidJSON)
	}
	return v, nil
}

// Decoder reads a stream of concatenated or newline separated JSON documents.
type Decoder struct {
	dec *json.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec}
}

// Decode returns the next document, or io.EOF when the stream is exhausted.
func (d *Decoder) Decode() (Value, error) {
	tok, err := d.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return d.decodeToken(tok)
}

func (d *Decoder) decodeToken(tok json.Token) (Value, error) {
	switch current := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(current), nil
	case string:
		return String(current), nil
	case json.Number:
		return parseNumber(string(current))
	case json.Delim:
		switch current {
		case '{':
			return d.decodeObject()
		case '[':
			return d.decodeArray()
		}
	}
	return nil, fmt.Errorf("%w: unexpected token %v", ErrInvalidJSON, tok)
}

func (d *Decoder) decodeObject() (Value, error) {
	out := NewObject(4)
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return out, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key must be a string", ErrInvalidJSON)
		}
		next, err := d.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		item, err := d.decodeToken(next)
		if err != nil {
			return nil, err
		}
		out.Set(key, item)
	}
}

func (d *Decoder) decodeArray() (Value, error) {
	out := Array{}
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if delim, ok := tok.(json.Delim); ok && delim == ']' {
			return out, nil
		}
		item, err := d.decodeToken(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
}

func parseNumber(literal string) (Value, error) {
	if !strings.ContainsAny(literal, ".eE") {
		if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid number %q", ErrInvalidJSON, literal)
	}
	return Float(f), nil
}

// ToJSON encodes v as compact JSON. Floats always carry a fraction or an
// exponent so they decode back as Float.
func ToJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSONIndent encodes v as indented JSON.
func ToJSONIndent(v Value, indent string) ([]byte, error) {
	compact, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) MarshalJSON() ([]byte, error) {
	return ToJSON(o)
}

func (a Array) MarshalJSON() ([]byte, error) {
	return ToJSON(a)
}

func (f Float) MarshalJSON() ([]byte, error) {
	return ToJSON(f)
}

func appendJSON(buf *bytes.Buffer, v Value) error {
	switch current := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(current)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(current), 10))
	case Float:
		f := float64(current)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", ErrNotRepresentable, f)
		}
		buf.WriteString(FormatFloat(f))
	case String:
		appendString(buf, string(current))
	case Array:
		buf.WriteByte('[')
		for i, item := range current {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Object:
		buf.WriteByte('{')
		if current == nil {
			buf.WriteByte('}')
			return nil
		}
		for i, key := range current.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendString(buf, key)
			buf.WriteByte(':')
			if err := appendJSON(buf, current.fields[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %T", ErrNotRepresentable, v)
	}
	return nil
}

// FormatFloat renders f in the shortest form that still reads back as a float.
func FormatFloat(f float64) string {
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eEnN") {
		out += ".0"
	}
	return out
}

func appendString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode always terminates with a newline.
	buf.Truncate(buf.Len() - 1)
}
