// Package httpapi serves the lobby: login, game creation and listing. Live
// play happens over the websocket endpoint.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"example.com/chess_session_server/internal/errors"
	"example.com/chess_session_server/internal/store"
)

const maxJSONBodyBytes int64 = 1 << 16

// Server exposes the lobby collaborators over HTTP.
type Server struct {
	lobby store.Lobby
	auth  store.Authenticator
	log   *zap.Logger
}

func NewServer(lobby store.Lobby, auth store.Authenticator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{lobby: lobby, auth: auth, log: log}
}

// Register mounts the lobby routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/session", s.withJSON(s.handleSession))
	mux.HandleFunc("/game", s.withJSON(s.handleGame))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler returns a mux with only the lobby routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// ---- JSON helpers ----

func (s *Server) withJSON(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("lobby request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Code: errors.Code(err), Message: "Error: " + err.Error()})
}

func statusFor(err error) int {
	switch errors.Code(err) {
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeForbidden:
		return http.StatusForbidden
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeMalformedCommand, errors.CodeInvalidMove:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(errors.ErrMalformedCommand, "decode body: %v", err)
	}
	return nil
}

// identity resolves the Authorization header (a bare token or "Bearer <token>").
func (s *Server) identity(r *http.Request) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	return s.auth.ResolveIdentity(r.Context(), token)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: errors.CodeMalformedCommand, Message: "Error: method not allowed"})
}

// ---- API: session ----

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Username  string `json:"username"`
	AuthToken string `json:"authToken"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.lobby.Login(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	s.log.Info("login", zap.String("user", username))
	writeJSON(w, http.StatusOK, loginResponse{Username: username, AuthToken: token})
}

// ---- API: game ----

type createGameRequest struct {
	GameName string `json:"gameName"`
}

type createGameResponse struct {
	GameID string `json:"gameID"`
}

type listGamesResponse struct {
	Games []store.GameRecord `json:"games"`
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, "GET, POST")
		return
	}
	username, err := s.identity(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.Method == http.MethodGet {
		games, err := s.lobby.ListGames(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if games == nil {
			games = []store.GameRecord{}
		}
		writeJSON(w, http.StatusOK, listGamesResponse{Games: games})
		return
	}

	var req createGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.lobby.CreateGame(r.Context(), req.GameName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("game created", zap.String("game", id), zap.String("user", username))
	writeJSON(w, http.StatusOK, createGameResponse{GameID: id})
}
