// Package webhook exposes the chat workflow over HTTP. A relay for the chat
// platform posts each inbound message and sends the returned replies back.
package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/wingo/internal/oracle"
)

// maxBody caps a request body; base64 chart screenshots fit well inside.
const maxBody = 16 << 20

// Handler answers inbound chat messages.
type Handler interface {
	HandleText(ctx context.Context, chatID, text string) string
	HandlePhoto(ctx context.Context, chatID string, img []byte) string
}

// Message is an inbound chat event. Photo is base64 encoded and takes
// precedence over Text.
type Message struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text,omitempty"`
	Photo  string `json:"photo,omitempty"`
}

// Response carries the replies for one message, in send order.
type Response struct {
	ChatID  string   `json:"chat_id"`
	Replies []string `json:"replies"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// Server routes webhook requests to a Handler.
type Server struct {
	handler Handler
	log     *zap.Logger
	mux     *http.ServeMux
}

// NewServer returns a Server for h. log may be nil.
func NewServer(h Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{handler: h, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/webhook", s.handleWebhook)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("webhook listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()
	log := s.log.With(zap.String("request_id", reqID))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, reqID, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, reqID, "read body")
		return
	}
	if len(body) > maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, reqID, "body too large")
		return
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		writeError(w, http.StatusBadRequest, reqID, "invalid json")
		return
	}
	msg.ChatID = strings.TrimSpace(msg.ChatID)
	if msg.ChatID == "" {
		writeError(w, http.StatusBadRequest, reqID, "chat_id is required")
		return
	}

	resp := Response{ChatID: msg.ChatID}
	switch {
	case msg.Photo != "":
		img, err := base64.StdEncoding.DecodeString(msg.Photo)
		if err != nil {
			writeError(w, http.StatusBadRequest, reqID, "photo is not valid base64")
			return
		}
		log.Debug("photo received", zap.String("chat", msg.ChatID), zap.Int("bytes", len(img)))
		resp.Replies = []string{oracle.AnalyzingReply, s.handler.HandlePhoto(r.Context(), msg.ChatID, img)}
	case strings.TrimSpace(msg.Text) != "":
		log.Debug("text received", zap.String("chat", msg.ChatID))
		resp.Replies = []string{s.handler.HandleText(r.Context(), msg.ChatID, msg.Text)}
	default:
		writeError(w, http.StatusBadRequest, reqID, "text or photo is required")
		return
	}

	w.Header().Set("X-Request-ID", reqID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeError(w http.ResponseWriter, status int, reqID, msg string) {
	w.Header().Set("X-Request-ID", reqID)
	writeJSON(w, status, errorResponse{Error: msg, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
