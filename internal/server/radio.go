package server

import (
	"net/http"

	"github.com/voyagen/darteve/internal/radio"
)

func (s *Server) handleRadioStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stations, err := s.radio.Search(r.Context(), radio.Query{
		Country: q.Get("country"),
		Name:    q.Get("q"),
		Genre:   q.Get("genre"),
	})
	if err != nil {
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}
