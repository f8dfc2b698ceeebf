// Package body holds the payload delivered with a fetch result.
//
// A payload is a closed variant decided when the response is decoded:
// it is either absent, textual, or structured. Structured payloads are
// compared through their canonical serialization, which is compact JSON
// with object keys in sorted order.
package body

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"mime"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Kind is the runtime shape of a Body.
type Kind int

const (
	KindAbsent Kind = iota
	KindText
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Body is an opaque payload. The zero value is an absent body.
type Body struct {
	kind Kind
	text string
	s    *structured
}

// structured holds either canonical bytes or a Go value that is
// canonicalized on first use.
type structured struct {
	once      sync.Once
	value     any
	canonical []byte
	err       error
}

func (s *structured) bytes() ([]byte, error) {
	s.once.Do(func() {
		if s.canonical != nil {
			return
		}
		raw, err := json.Marshal(s.value)
		if err != nil {
			s.err = fmt.Errorf("could not serialize value: %w", err)
			return
		}
		s.canonical, s.err = canonicalize(raw)
	})
	return s.canonical, s.err
}

// Absent returns a body that carries no payload.
func Absent() Body {
	return Body{}
}

// Text returns a textual body.
func Text(s string) Body {
	return Body{kind: KindText, text: s}
}

// JSON parses raw JSON into a structured body.
// It returns an error if raw is not a single valid JSON value in UTF-8.
func JSON(raw []byte) (Body, error) {
	if !utf8.Valid(raw) {
		return Body{}, errInvalidUTF8
	}
	canonical, err := canonicalize(raw)
	if err != nil {
		return Body{}, err
	}
	return Body{kind: KindStructured, s: &structured{canonical: canonical}}, nil
}

// Value wraps a Go value as a structured body.
// Serialization is deferred until the canonical form is first needed;
// a value that cannot be serialized reports the error from Canonical.
func Value(v any) Body {
	return Body{kind: KindStructured, s: &structured{value: v}}
}

// Kind returns the shape of the body.
func (b Body) Kind() Kind {
	return b.kind
}

// IsAbsent reports whether the body carries no payload.
func (b Body) IsAbsent() bool {
	return b.kind == KindAbsent
}

// Text returns the payload of a textual body, or "" for other kinds.
func (b Body) Text() string {
	return b.text
}

// Canonical returns the canonical serialization of a structured body.
// Textual bodies return their bytes unchanged and absent bodies return nil.
func (b Body) Canonical() ([]byte, error) {
	switch b.kind {
	case KindText:
		return []byte(b.text), nil
	case KindStructured:
		return b.s.bytes()
	}
	return nil, nil
}

// Decode unmarshals a structured body into v.
func (b Body) Decode(v any) error {
	if b.kind != KindStructured {
		return fmt.Errorf("cannot decode %s body", b.kind)
	}
	canonical, err := b.s.bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(canonical, v)
}

// String returns the text of a textual body or the canonical JSON of a
// structured one. It is intended for logging.
func (b Body) String() string {
	switch b.kind {
	case KindText:
		return b.text
	case KindStructured:
		if canonical, err := b.s.bytes(); err == nil {
			return string(canonical)
		}
		return "<unserializable>"
	}
	return ""
}

// Decode turns a response payload into a Body based on its media type.
// JSON media types become structured bodies; everything else, including
// JSON that does not parse, becomes text. An empty payload is absent.
func Decode(contentType string, raw []byte) Body {
	if len(raw) == 0 {
		return Absent()
	}
	if IsJSONMediaType(contentType) {
		if b, err := JSON(raw); err == nil {
			return b
		}
	}
	return Text(string(raw))
}

// IsJSONMediaType reports whether a Content-Type header value denotes JSON,
// i.e. application/json or any +json structured syntax suffix.
func IsJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

var (
	errTrailingData = errors.New("unexpected data after JSON value")
	errInvalidUTF8  = errors.New("JSON is not valid UTF-8")
)

// maxNumberExponent bounds the exponents that are normalized; numbers
// beyond it keep their literal form.
const maxNumberExponent = 400

// canonicalize re-encodes a JSON document so that equal documents produce
// equal bytes. Object keys are sorted by encoding/json when marshaling maps,
// and numbers are written in their shortest exact decimal form.
func canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalizeNumbers(v)); err != nil {
		return nil, fmt.Errorf("could not encode canonical JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return normalizeNumber(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}

// normalizeNumber rewrites a number literal without losing precision,
// so that 1, 1.0 and 1e0 are equal while 0.1 and 0.10000000000000001 are not.
func normalizeNumber(n json.Number) json.Number {
	s := string(n)
	if i := strings.IndexAny(s, "eE"); i != -1 {
		exp, err := strconv.Atoi(s[i+1:])
		if err != nil || exp > maxNumberExponent || exp < -maxNumberExponent {
			return n
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return n
	}
	if r.IsInt() {
		return json.Number(r.Num().String())
	}
	// the denominator of a decimal literal is 2^a * 5^b, so max(a, b)
	// digits represent it exactly
	return json.Number(r.FloatString(decimalDigits(r.Denom())))
}

func decimalDigits(denom *big.Int) int {
	d := new(big.Int).Set(denom)
	rem := new(big.Int)
	count := func(p int64) int {
		n := 0
		div := big.NewInt(p)
		for {
			q, m := new(big.Int).QuoRem(d, div, rem)
			if m.Sign() != 0 {
				return n
			}
			d = q
			n++
		}
	}
	twos := count(2)
	fives := count(5)
	if twos > fives {
		return twos
	}
	return fives
}
