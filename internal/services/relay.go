package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"askrelay/internal/models"
)

const (
	DefaultTrimWindow   = 10
	DefaultSystemPrompt = "Explain clearly for a student."
	DefaultEmptyAnswer  = "No response from model."
)

// RelayPolicy selects how strictly incoming histories are handled.
type RelayPolicy struct {
	// RequireHistory rejects requests that only carry a question.
	RequireHistory bool
	// ValidateHistory checks roles and content of every message.
	ValidateHistory bool
	// TrimHistory keeps the first message plus the last TrimWindow messages.
	TrimHistory bool
	TrimWindow  int

	SystemPrompt string
	EmptyAnswer  string
}

// RelayService forwards a chat history upstream and unwraps the answer.
type RelayService struct {
	client CompletionClient
	events EventPublisher
	model  string
	policy RelayPolicy
}

// NewRelayService builds a relay. events may be nil.
func NewRelayService(client CompletionClient, events EventPublisher, model string, policy RelayPolicy) *RelayService {
	if policy.TrimWindow <= 0 {
		policy.TrimWindow = DefaultTrimWindow
	}
	if policy.EmptyAnswer == "" {
		policy.EmptyAnswer = DefaultEmptyAnswer
	}
	return &RelayService{
		client: client,
		events: events,
		model:  model,
		policy: policy,
	}
}

// Relay resolves the history from req, forwards it upstream once and returns
// the extracted answer. Failures are returned as *RelayError.
func (s *RelayService) Relay(ctx context.Context, requestID string, req models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()

	history, err := s.resolveHistory(req)
	if err != nil {
		s.publish(ctx, requestID, 0, false, start, err)
		return nil, err
	}

	if s.policy.ValidateHistory {
		if err := validateHistory(history); err != nil {
			s.publish(ctx, requestID, len(history), false, start, err)
			return nil, err
		}
	}

	truncated := false
	if s.policy.TrimHistory {
		var dropped int
		history, dropped = trimHistory(history, s.policy.TrimWindow)
		if dropped > 0 {
			truncated = true
			log.Printf("relay: dropped %d middle messages (request_id=%s)", dropped, requestID)
		}
	}

	answer, err := s.client.Complete(ctx, history)
	latency := time.Since(start)
	if err != nil {
		log.Printf("relay: upstream call failed model=%s messages=%d latency=%s: %v", s.model, len(history), latency, err)
		s.publish(ctx, requestID, len(history), truncated, start, err)
		return nil, err
	}

	if answer == "" {
		empty := &RelayError{Kind: UpstreamEmptyResponse, Message: "upstream returned no content"}
		log.Printf("relay: %s model=%s messages=%d, using placeholder", empty.Kind, s.model, len(history))
		s.publish(ctx, requestID, len(history), truncated, start, empty)
		return &models.AskResponse{Answer: s.policy.EmptyAnswer, Truncated: truncated}, nil
	}

	log.Printf("relay: model=%s messages=%d truncated=%t latency=%s", s.model, len(history), truncated, latency)
	s.publish(ctx, requestID, len(history), truncated, start, nil)
	return &models.AskResponse{Answer: answer, Truncated: truncated}, nil
}

func (s *RelayService) resolveHistory(req models.AskRequest) ([]models.ChatMessage, error) {
	raw := bytes.TrimSpace(req.History)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if s.policy.RequireHistory {
			return nil, NewInvalidInputError("history is required and must be an array", nil)
		}
		return s.questionHistory(req.Question)
	}

	if raw[0] != '[' {
		return nil, NewInvalidInputError("history must be an array of messages", nil)
	}

	var history []models.ChatMessage
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, NewInvalidInputError("history contains malformed messages", err)
	}
	if len(history) == 0 {
		return nil, NewInvalidInputError("history must not be empty", nil)
	}
	return history, nil
}

func (s *RelayService) questionHistory(question string) ([]models.ChatMessage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, NewInvalidInputError("question or history is required", nil)
	}
	history := make([]models.ChatMessage, 0, 2)
	if s.policy.SystemPrompt != "" {
		history = append(history, models.ChatMessage{Role: models.RoleSystem, Content: s.policy.SystemPrompt})
	}
	return append(history, models.ChatMessage{Role: models.RoleUser, Content: question}), nil
}

func validateHistory(history []models.ChatMessage) error {
	for i, msg := range history {
		if !msg.Role.Valid() {
			return NewInvalidInputError(fmt.Sprintf("message %d has invalid role %q", i, msg.Role), nil)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return NewInvalidInputError(fmt.Sprintf("message %d has empty content", i), nil)
		}
	}
	return nil
}

// trimHistory keeps history[0] and the last window messages, in order.
// It returns the number of messages dropped.
func trimHistory(history []models.ChatMessage, window int) ([]models.ChatMessage, int) {
	if window <= 0 || len(history) <= window+1 {
		return history, 0
	}
	trimmed := make([]models.ChatMessage, 0, window+1)
	trimmed = append(trimmed, history[0])
	trimmed = append(trimmed, history[len(history)-window:]...)
	return trimmed, len(history) - len(trimmed)
}

func (s *RelayService) publish(ctx context.Context, requestID string, messages int, truncated bool, start time.Time, err error) {
	if s.events == nil {
		return
	}

	event := models.RelayEvent{
		ID:        uuid.New(),
		RequestID: requestID,
		Model:     s.model,
		Messages:  messages,
		Truncated: truncated,
		Outcome:   "OK",
		LatencyMS: time.Since(start).Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		event.Outcome = KindOf(err).String()
		event.Error = err.Error()
	}

	// The caller may already be gone; the event should still go out.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if perr := s.events.Publish(pubCtx, event); perr != nil {
		log.Printf("relay: %v", perr)
	}
}
