// Package codec wraps the JSON encoder used for payload serialization and
// for the encode/decode round-trips behind all copy-on-read semantics.
package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Encode(v any) ([]byte, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

func Decode[T any](bz []byte) (T, error) {
	v := new(T)
	if err := json.Unmarshal(bz, v); err != nil {
		return *v, eris.Wrap(err, "")
	}
	return *v, nil
}

// DeepCopy produces an independent copy of v through an encode/decode
// round-trip.
func DeepCopy[T any](v T) (T, error) {
	bz, err := Encode(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](bz)
}
