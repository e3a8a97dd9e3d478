package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/internal/models"
	"github.com/voyagen/darteve/internal/player"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type openSessionRequest struct {
	StreamURL string          `json:"stream_url"`
	Type      string          `json:"type"`
	MatchID   string          `json:"match_id"`
	Mirrors   []models.Mirror `json:"mirrors"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	open := player.OpenRequest{StreamURL: req.StreamURL, Type: req.Type, MatchID: req.MatchID, Mirrors: req.Mirrors}
	if req.MatchID != "" {
		m, ok := s.catalog.Match(req.MatchID)
		if !ok {
			writeErr(w, http.StatusNotFound, fmt.Errorf("match %s not found", req.MatchID))
			return
		}
		if open.StreamURL == "" {
			open.StreamURL = m.StreamURL
		}
		if len(open.Mirrors) == 0 {
			open.Mirrors = m.Mirrors
		}
	}

	sess, err := s.players.Open(open)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*player.Session, bool) {
	sess, err := s.players.Get(r.PathValue("id"))
	if err != nil {
		writeServiceErr(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.players.Close(r.PathValue("id")); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeNoContent(w)
}

// command runs fn against the session and answers with its new snapshot.
func (s *Server) command(w http.ResponseWriter, r *http.Request, fn func(*player.Session) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleRetrySession(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, (*player.Session).Retry)
}

type indexRequest struct {
	Index *int `json:"index"`
}

func decodeIndex(r *http.Request) (int, error) {
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, err
	}
	if req.Index == nil {
		return 0, errors.New("index is required")
	}
	return *req.Index, nil
}

func (s *Server) handleSelectMirror(w http.ResponseWriter, r *http.Request) {
	i, err := decodeIndex(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	s.command(w, r, func(sess *player.Session) error { return sess.SelectMirror(i) })
}

func (s *Server) handleSelectQuality(w http.ResponseWriter, r *http.Request) {
	i, err := decodeIndex(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	s.command(w, r, func(sess *player.Session) error { return sess.SelectQuality(i) })
}

type sessionEventRequest struct {
	Attempt uint64 `json:"attempt"`
	Event   string `json:"event"`
	Fatal   bool   `json:"fatal"`
	Network bool   `json:"network"`
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	var req sessionEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Report(req.Attempt, req.Event, req.Fatal, req.Network); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePlayerPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if snap := sess.Snapshot(); snap.State == player.StateEmbedded {
		http.Redirect(w, r, snap.Target, http.StatusFound)
		return
	}
	var buf bytes.Buffer
	if err := sess.RenderPage(&buf, "/api/sessions/"+sess.ID()+"/events"); err != nil {
		writeServiceErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleSessionWS pushes every state change of a session as JSON until the
// session closes or the client goes away.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	updates, cancel, err := s.players.Subscribe(id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// Reads only detect the close; clients have nothing to send.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Str("session", id).Msg("websocket read")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug().Err(err).Str("session", id).Msg("websocket write")
				return
			}
		}
	}
}
