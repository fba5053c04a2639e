package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/northroute/internal/retry"
	"github.com/northroute/pkg/schema"
)

// ReplyGenerationError reports a failed reply generation with a
// human-readable diagnostic. The triggering user message has already been
// appended and persisted by the time this surfaces, so the user retries by
// simply resubmitting.
type ReplyGenerationError struct {
	Detail string
	Cause  error
}

func (e *ReplyGenerationError) Error() string {
	return "reply generation failed: " + e.Detail
}

func (e *ReplyGenerationError) Unwrap() error { return e.Cause }

// GenerateReply asks the backend for an assistant reply given the target
// thread's history. Transient failures (timeouts, 429, gateway errors) are
// retried with backoff; anything still failing afterwards, and any
// non-transient failure immediately, becomes a *ReplyGenerationError.
func (c *Client) GenerateReply(ctx context.Context, message string, history []schema.HistoryItem) (string, error) {
	var (
		reply     string
		permanent error
	)

	result := retry.RetryWithBackoffAndReason(ctx, c.retryCfg, func() (error, string) {
		text, err := c.chat(ctx, message, history)
		if err == nil {
			reply = text
			return nil, "success"
		}
		if !retry.IsRetryableError(err) {
			// A client-side rejection will not improve on retry; stop here.
			permanent = err
			return nil, "permanent_failure"
		}
		return err, "transient_failure"
	})

	if permanent != nil {
		return "", asReplyError(permanent)
	}
	if !result.Success {
		log.Debug().Int("attempts", result.Attempts).Err(result.LastError).Msg("reply generation exhausted retries")
		return "", asReplyError(result.LastError)
	}
	return reply, nil
}

func (c *Client) chat(ctx context.Context, message string, history []schema.HistoryItem) (string, error) {
	var resp schema.ChatResponse
	err := c.postJSON(ctx, "/chat", schema.ChatRequest{Message: message, History: history}, &resp)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Reply)
	if reply == "" {
		return "", fmt.Errorf("backend returned an empty reply")
	}
	return reply, nil
}

func asReplyError(err error) *ReplyGenerationError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return &ReplyGenerationError{
			Detail: fmt.Sprintf("assistant backend rejected the request (status %d)", statusErr.Status),
			Cause:  err,
		}
	}
	return &ReplyGenerationError{
		Detail: err.Error(),
		Cause:  err,
	}
}
