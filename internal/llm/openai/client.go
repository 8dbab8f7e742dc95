package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
)

// MapFields implements llm.FieldMapper using text-only chat/completions.
func (c *Client) MapFields(ctx context.Context, req llm.MapRequest) (llm.MappedFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.RawText),
		"qr_payloads", len(req.QRPayloads),
		"timezone", req.Timezone,
	)

	if c.cfg.APIKey == "" {
		return llm.MappedFields{}, nil, errors.New("openai api key not configured")
	}

	schema := llm.BuildPassJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      1000,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req.Timezone)},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + llm.MustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.postWithRetry(ctx, rid, endpoint, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappedFields{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappedFields{}, raw, fmt.Errorf("%w: decode openai response: %v", llm.ErrInvalidResponse, err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappedFields{}, raw, fmt.Errorf("%w: no choices in openai response", llm.ErrInvalidResponse)
	}
	content := []byte(stripFences(cc.Choices[0].Message.Content))

	// Validate strictly first, then retry once on a sanitized copy.
	if err := llm.ValidatePassJSON(content); err != nil {
		cleaned, dropped, sErr := llm.NormalizeAndSanitizeJSON(content, c.logger)
		if sErr != nil {
			c.logger.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.MappedFields{}, content, fmt.Errorf("%w: %v", llm.ErrInvalidResponse, sErr)
		}
		if vErr := llm.ValidatePassJSON(cleaned); vErr != nil {
			c.logger.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.MappedFields{}, content, fmt.Errorf("%w: schema validation failed: %v", llm.ErrInvalidResponse, vErr)
		}
		c.logger.Warn("llm.extract.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		content = cleaned
	}

	var out llm.MappedFields
	if err := json.Unmarshal(content, &out); err != nil {
		return llm.MappedFields{}, content, fmt.Errorf("%w: unmarshal fields: %v", llm.ErrInvalidResponse, err)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"type", out.Type,
		"title", out.Title,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, content, nil
}

func (c *Client) postWithRetry(ctx context.Context, rid, url string, body map[string]any) ([]byte, error) {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	backoff := c.cfg.BackoffBase

	for attempt := 0; ; attempt++ {
		raw, err := llm.SendJSON(ctx, c.http, url, body, headers, c.logger)
		if err == nil {
			return raw, nil
		}

		var httpErr *llm.HTTPError
		if !errors.As(err, &httpErr) || !httpErr.Retryable() || attempt >= c.cfg.MaxRetries {
			return nil, err
		}

		wait := backoff + c.jitter(backoff)
		c.logger.Warn("llm.extract.retry",
			"req_id", rid,
			"status", httpErr.Status,
			"attempt", attempt+1,
			"backoff", wait.String(),
		)
		select {
		case <-time.After(wait):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func randomJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)/2 + 1))
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
