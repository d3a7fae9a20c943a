package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps every JSON request body. Message content is bounded far
// below this by the service layer.
const MaxBodyBytes = 4 << 20

// ParseJSON decodes the request body into dest. Unknown fields are ignored.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseOptionalJSON is ParseJSON for endpoints whose body may be omitted.
// An empty body leaves dest untouched.
func ParseOptionalJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := ParseJSON(w, r, dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
