package caster

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

// rowsJSON keeps numbers as json.Number so that integer and float columns
// survive a round trip untouched.
var rowsJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

type Caster[T any] interface {
	From([]byte) (T, error)
	To(T) ([]byte, error)
}

type JSONCaster[T any] struct{}

func (jc JSONCaster[T]) From(data []byte) (T, error) {
	var v T
	err := rowsJSON.Unmarshal(data, &v)
	return v, err
}

func (jc JSONCaster[T]) To(v T) ([]byte, error) {
	return rowsJSON.Marshal(v)
}

// Valid reports whether data is a well formed JSON document.
func Valid(data []byte) bool {
	return rowsJSON.Valid(data)
}

// Encode writes v as JSON followed by a newline.
func Encode(w io.Writer, v interface{}) error {
	return rowsJSON.NewEncoder(w).Encode(v)
}
