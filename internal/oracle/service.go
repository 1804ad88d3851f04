// Package oracle runs the chat-facing workflow: serial submissions, the
// corrections that follow them, and chart image analysis.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/wingo/internal/chart"
	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/ocr"
	"github.com/rcliao/wingo/internal/predict"
	"github.com/rcliao/wingo/internal/store"
)

// correctPrefix starts a correction message, matched case-insensitively.
const correctPrefix = "CORRECT:"

// Service links predictions, chat history and overrides.
type Service struct {
	store    store.Store
	engine   *predict.Engine
	analyzer *chart.Analyzer
	ocr      ocr.Recognizer
	locks    *chatLocks
	log      *zap.Logger
}

// New returns a Service over st. rec may be nil when images are not handled.
func New(st store.Store, rec ocr.Recognizer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	engine := predict.NewEngine(st)
	return &Service{
		store:    st,
		engine:   engine,
		analyzer: chart.NewAnalyzer(engine),
		ocr:      rec,
		locks:    newChatLocks(),
		log:      log,
	}
}

// Predict returns the outcome for serial without recording anything.
func (s *Service) Predict(ctx context.Context, serial string) (predict.Prediction, error) {
	return s.engine.Predict(ctx, serial)
}

// Submit predicts serial and records it as the chat's pending serial.
func (s *Service) Submit(ctx context.Context, chatID, serial string) (predict.Prediction, error) {
	if !isSerial(serial) {
		return predict.Prediction{}, fmt.Errorf("%w: %q", ErrInvalidSerial, serial)
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	p, err := s.engine.Predict(ctx, serial)
	if err != nil {
		return predict.Prediction{}, err
	}
	if _, err := s.store.PutChat(ctx, store.ChatParams{ChatID: chatID, Serial: serial, Outcome: p.Outcome}); err != nil {
		return predict.Prediction{}, fmt.Errorf("record chat %s: %w", chatID, err)
	}

	s.log.Info("prediction",
		zap.String("chat", chatID),
		zap.String("serial", serial),
		zap.String("color", string(p.Color)),
		zap.String("size", string(p.Size)),
		zap.String("source", string(p.Source)))
	return p, nil
}

// Correct applies a "<color> <size>" correction to the chat's pending
// serial. The serial stays pending, so a second correction overwrites the
// first.
func (s *Service) Correct(ctx context.Context, chatID, body string) (*model.Override, error) {
	out, err := parseCorrection(body)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	entry, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNoPendingSerial)
	}
	if err != nil {
		return nil, fmt.Errorf("read chat %s: %w", chatID, err)
	}

	o, err := s.store.PutOverride(ctx, store.OverrideParams{Serial: entry.LastSerial, Outcome: out, ChatID: chatID})
	if err != nil {
		return nil, fmt.Errorf("store override %s: %w", entry.LastSerial, err)
	}

	s.log.Info("override stored",
		zap.String("chat", chatID),
		zap.String("serial", o.Serial),
		zap.String("predicted", entry.Outcome.String()),
		zap.String("corrected", out.String()))
	return o, nil
}

// Analyze runs the chart analyzer over recognized text.
func (s *Service) Analyze(ctx context.Context, text string) (*chart.Report, error) {
	return s.analyzer.Analyze(ctx, text)
}

// AnalyzeImage recognizes the text in img and analyzes it.
func (s *Service) AnalyzeImage(ctx context.Context, img []byte) (*chart.Report, error) {
	if s.ocr == nil {
		return nil, errors.New("image recognition is not configured")
	}
	text, err := s.ocr.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("recognize image: %w", err)
	}
	r, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	s.log.Debug("chart analyzed", zap.Int("observations", len(r.Observations)), zap.Int("notes", len(r.Notes)))
	return r, nil
}

// HandleText answers one inbound text message. Every failure becomes a reply.
func (s *Service) HandleText(ctx context.Context, chatID, text string) string {
	input := strings.ToUpper(strings.TrimSpace(text))

	switch {
	case input == "/START" || strings.HasPrefix(input, "/START@"):
		return Welcome

	case strings.HasPrefix(input, correctPrefix):
		o, err := s.Correct(ctx, chatID, strings.TrimPrefix(input, correctPrefix))
		if err != nil {
			return s.replyError(chatID, err)
		}
		return correctionReply(o)

	case isSerial(input):
		p, err := s.Submit(ctx, chatID, input)
		if err != nil {
			return s.replyError(chatID, err)
		}
		return predictionReply(p)

	default:
		return invalidInputReply
	}
}

// HandlePhoto answers one inbound chart photo.
func (s *Service) HandlePhoto(ctx context.Context, chatID string, img []byte) string {
	r, err := s.AnalyzeImage(ctx, img)
	if err != nil {
		s.log.Warn("image analysis failed", zap.String("chat", chatID), zap.Error(err))
		return imageFailedReply
	}
	return analysisReply(r)
}

func (s *Service) replyError(chatID string, err error) string {
	switch {
	case errors.Is(err, ErrNoPendingSerial), errors.Is(err, ErrInvalidCorrection):
		return noSerialReply
	case errors.Is(err, ErrInvalidSerial):
		return invalidInputReply
	default:
		s.log.Error("interaction failed", zap.String("chat", chatID), zap.Error(err))
		return storageFailedReply
	}
}

// parseCorrection reads "<color> <size>", ignoring case and extra tokens.
func parseCorrection(body string) (model.Outcome, error) {
	tokens := strings.Fields(strings.ToUpper(body))
	if len(tokens) < 2 {
		return model.Outcome{}, fmt.Errorf("%w: want \"<color> <size>\", got %q", ErrInvalidCorrection, strings.TrimSpace(body))
	}
	color, err := model.ParseColor(tokens[0])
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %v", ErrInvalidCorrection, err)
	}
	size, err := model.ParseSize(tokens[1])
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %v", ErrInvalidCorrection, err)
	}
	return model.Outcome{Color: color, Size: size}, nil
}

// isSerial reports whether s is a non-empty string of ASCII digits.
func isSerial(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
