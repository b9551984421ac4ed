// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/nimbus"
	"github.com/ManuGH/nimbus/internal/version"
)

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"message": nimbus.ExampleFunction()})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, version.Get())
}
