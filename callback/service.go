package callback

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"todoflow/domain/entity"
	"todoflow/infrastructure/circuitbreaker"
)

// EventReminderDue is the event name carried by every reminder webhook
const EventReminderDue = "reminder.due"

// StatusError is a non-2xx webhook response
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("callback returned status %d", e.Code)
}

// Retryable reports whether the receiver may accept a later attempt
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Payload is the JSON body posted for a due reminder
type Payload struct {
	Event       string    `json:"event"`
	TodoID      string    `json:"todo_id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
	SentAt      time.Time `json:"sent_at"`
}

// Service delivers due reminders to a webhook
type Service struct {
	url            string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	signingSecret  string
	maxAttempts    int
	retryDelay     time.Duration
	logger         *zap.Logger
}

// NewService creates a new callback service posting to url
func NewService(
	url string,
	timeout time.Duration,
	circuitBreaker *circuitbreaker.CircuitBreaker,
	signingSecret string,
	maxAttempts int,
	logger *zap.Logger,
) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Service{
		url:            url,
		client:         &http.Client{Timeout: timeout},
		circuitBreaker: circuitBreaker,
		signingSecret:  signingSecret,
		maxAttempts:    maxAttempts,
		retryDelay:     500 * time.Millisecond,
		logger:         logger,
	}
}

// Notify posts r to the webhook, retrying server errors
func (s *Service) Notify(ctx context.Context, r entity.Reminder) error {
	body, err := json.Marshal(Payload{
		Event:       EventReminderDue,
		TodoID:      r.TaskID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		At:          r.At.UTC(),
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = s.deliver(ctx, r, body, attempt)
		if err == nil {
			return nil
		}

		var statusErr *StatusError
		retryable := !errors.Is(err, circuitbreaker.ErrOpen) &&
			(!errors.As(err, &statusErr) || statusErr.Retryable())
		if !retryable || attempt >= s.maxAttempts {
			s.logger.Error("Reminder callback failed",
				zap.String("todo_id", r.TaskID),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return err
		}

		s.logger.Warn("Reminder callback failed, will retry",
			zap.String("todo_id", r.TaskID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
}

func (s *Service) deliver(ctx context.Context, r entity.Reminder, body []byte, attempt int) error {
	if s.circuitBreaker == nil {
		return s.deliverHTTPCallback(ctx, r, body, attempt)
	}
	return s.circuitBreaker.Execute(s.url, func() error {
		return s.deliverHTTPCallback(ctx, r, body, attempt)
	})
}

// deliverHTTPCallback performs the actual HTTP POST
func (s *Service) deliverHTTPCallback(ctx context.Context, r entity.Reminder, body []byte, attempt int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Todo-ID", r.TaskID)
	req.Header.Set("X-Owner-ID", r.OwnerID)
	req.Header.Set("X-Attempt", fmt.Sprintf("%d", attempt))
	if s.signingSecret != "" {
		req.Header.Set("X-Signature", Sign(s.signingSecret, body))
	}

	startTime := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	s.logger.Debug("Callback delivered",
		zap.String("todo_id", r.TaskID),
		zap.String("callback_url", s.url),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(startTime)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Sign creates the HMAC signature header value for a payload
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
