package httputil

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an absent PATCH field from an explicit null.
//
//	absent        Set=false
//	null          Set=true, Value=nil
//	"x" / 1 / ... Set=true, Value=&v
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON only runs when the key is present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
