package api

import (
	"net/http"

	"github.com/seenimoa/finsum/internal/config"
)

// handleGetConfigKeys returns the masked status of the configured credentials.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, config.CheckAPIKeys(s.cfg))
}
