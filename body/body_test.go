package body

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCanonicalKeyOrder(t *testing.T) {
	a, err := JSON([]byte(`{"a":1,"b":2}`))
	require.NoError(t, err)
	b, err := JSON([]byte(`{ "b": 2, "a": 1 }`))
	require.NoError(t, err)

	ca, err := a.Canonical()
	require.NoError(t, err)
	cb, err := b.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(ca))
	assert.Equal(t, ca, cb)
}

func TestJSONNestedObjects(t *testing.T) {
	b, err := JSON([]byte(`{"z":{"y":[{"d":1,"c":"<x>"}]},"a":null}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":null,"z":{"y":[{"c":"<x>","d":1}]}}`, b.String())
}

func TestJSONKeepsLargeIntegers(t *testing.T) {
	b, err := JSON([]byte(`{"id":12345678901234567890}`))
	require.NoError(t, err)
	assert.Equal(t, `{"id":12345678901234567890}`, b.String())
}

func TestJSONNormalizesNumbers(t *testing.T) {
	tests := map[string]string{
		`1`:                   `1`,
		`1.0`:                 `1`,
		`1e0`:                 `1`,
		`-0`:                  `0`,
		`1.50`:                `1.5`,
		`-0.25`:               `-0.25`,
		`1.5e-3`:              `0.0015`,
		`2E+2`:                `200`,
		`0.10000000000000001`: `0.10000000000000001`,
		`1e500`:               `1e500`,
	}
	for in, expected := range tests {
		t.Run(in, func(t *testing.T) {
			b, err := JSON([]byte(`[` + in + `]`))
			require.NoError(t, err)
			assert.Equal(t, `[`+expected+`]`, b.String())
		})
	}
}

func TestJSONRejectsInvalidUTF8(t *testing.T) {
	_, err := JSON([]byte("{\"a\":\"\xff\"}"))
	assert.ErrorIs(t, err, errInvalidUTF8)

	b := Decode("application/json", []byte("{\"a\":\"\xff\"}"))
	assert.Equal(t, KindText, b.Kind())
	assert.Equal(t, "{\"a\":\"\xff\"}", b.Text())
}

func TestJSONRejectsInvalid(t *testing.T) {
	_, err := JSON([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = JSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestValueCanonicalizesStructs(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	b := Value(user{Name: "ada", Age: 36})
	assert.Equal(t, KindStructured, b.Kind())
	assert.Equal(t, `{"age":36,"name":"ada"}`, b.String())

	var decoded user
	require.NoError(t, b.Decode(&decoded))
	assert.Equal(t, user{Name: "ada", Age: 36}, decoded)
}

func TestValueSerializationFailure(t *testing.T) {
	b := Value(map[string]any{"ch": make(chan int)})
	_, err := b.Canonical()
	assert.Error(t, err)
	assert.Equal(t, "<unserializable>", b.String())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		raw         string
		kind        Kind
		str         string
	}{
		{"empty payload", "application/json", "", KindAbsent, ""},
		{"json", "application/json; charset=utf-8", `{"b":1,"a":2}`, KindStructured, `{"a":2,"b":1}`},
		{"json suffix", "application/problem+json", `{"title":"x"}`, KindStructured, `{"title":"x"}`},
		{"invalid json", "application/json", `{"a":`, KindText, `{"a":`},
		{"plain text", "text/plain", "hello", KindText, "hello"},
		{"no content type", "", `{"a":1}`, KindText, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Decode(tt.contentType, []byte(tt.raw))
			assert.Equal(t, tt.kind, b.Kind())
			assert.Equal(t, tt.str, b.String())
		})
	}
}

func TestDecodeRejectsNonStructured(t *testing.T) {
	var v any
	assert.Error(t, Text("x").Decode(&v))
	assert.Error(t, Absent().Decode(&v))
}
