package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.uc.Reference.Currencies())
}

func (s *Server) listActionTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.uc.Reference.ActionTaxonomy())
}

func (s *Server) listReference(w http.ResponseWriter, r *http.Request) {
	entries, err := s.uc.Reference.ListReference(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, entries)
}
