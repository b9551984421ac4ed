// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object into dst. Unknown fields,
// trailing data and bodies over maxBodyBytes are rejected; on failure a
// problem response has already been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("body must contain a single JSON object")
	}
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxErr):
		writeProblem(w, r, errBodyLarge, fmt.Sprintf("Request body must not exceed %d bytes", maxErr.Limit))
	case errors.Is(err, io.EOF):
		writeProblem(w, r, errBadRequest, "Request body is empty")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		writeProblem(w, r, errBadRequest, "Request body is not valid JSON")
	case errors.As(err, &typeErr):
		writeProblem(w, r, errBadRequest, fmt.Sprintf("Field %q has the wrong type", typeErr.Field))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		writeProblem(w, r, errBadRequest, "Unknown field "+strings.TrimPrefix(err.Error(), "json: unknown field "))
	default:
		writeProblem(w, r, errBadRequest, err.Error())
	}
	return false
}
