// Package enrich talks to an OpenAI-compatible chat-completions endpoint to
// generate the narrative content for a round: a historical fact, a notable
// person, and a short history. The game stays fully playable when this
// service is down; callers substitute sentinels on error.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

var ErrNoAPIKey = errors.New("no api key configured")

type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client is safe for concurrent use. An optional keyFn overrides the
// configured API key per call, so a key saved through the settings store
// takes effect without a restart.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger
	keyFn  func(ctx context.Context) string
}

func New(logger *slog.Logger, cfg Config, keyFn func(ctx context.Context) string) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		keyFn:  keyFn,
	}
}

const systemPrompt = `You are a geography and history tutor for a quiz game.
Respond with strict, valid JSON only: no prose, no markdown fences, no
comments. Your answer must start with { and end with }. Keep every text
field concise and factual.`

type personPayload struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Bio  string `json:"bio"`
	Fact string `json:"fact"`
}

// Enrich requests the full narrative payload for a round.
func (c *Client) Enrich(ctx context.Context, country, city string) (geoquiz.Enrichment, error) {
	user := fmt.Sprintf(`Generate content about %s, %s as a JSON object with this exact shape:
{
  "historical_fact": "one surprising historical fact about %s",
  "person": {"name": "...", "role": "...", "bio": "one sentence", "fact": "one intriguing fact about this person, without naming them"},
  "history": "a short paragraph on the history of %s"
}
The person must be a notable figure associated with %s or %s.`,
		city, country, city, country, city, country)

	content, err := c.chat(ctx, user)
	if err != nil {
		return geoquiz.Enrichment{}, err
	}

	var payload struct {
		HistoricalFact string        `json:"historical_fact"`
		Person         personPayload `json:"person"`
		History        string        `json:"history"`
	}
	if err := decodeLoose(content, &payload); err != nil {
		return geoquiz.Enrichment{}, fmt.Errorf("parsing enrichment: %w", err)
	}
	if payload.HistoricalFact == "" || payload.Person.Name == "" || payload.History == "" {
		return geoquiz.Enrichment{}, errors.New("enrichment response missing fields")
	}

	return geoquiz.Enrichment{
		HistoricalFact: payload.HistoricalFact,
		Person:         geoquiz.Person(payload.Person),
		History:        payload.History,
	}, nil
}

// FollowUp fetches one kind-specific payload for the current round.
func (c *Client) FollowUp(ctx context.Context, req geoquiz.FollowUpRequest) (geoquiz.FollowUpResult, error) {
	switch req.Kind {
	case geoquiz.FollowUpMoreInfo:
		return c.moreFacts(ctx, req)
	case geoquiz.FollowUpOtherPerson:
		return c.otherPerson(ctx, req)
	case geoquiz.FollowUpHistoryDeepDive:
		return c.historyDeepDive(ctx, req)
	}
	return geoquiz.FollowUpResult{}, fmt.Errorf("unknown follow-up kind %q", req.Kind)
}

func (c *Client) moreFacts(ctx context.Context, req geoquiz.FollowUpRequest) (geoquiz.FollowUpResult, error) {
	user := fmt.Sprintf(`Give exactly 3 more interesting facts about %s, %s as JSON:
{"facts": ["...", "...", "..."]}`, req.City, req.Country)

	content, err := c.chat(ctx, user)
	if err != nil {
		return geoquiz.FollowUpResult{}, err
	}
	var payload struct {
		Facts []string `json:"facts"`
	}
	if err := decodeLoose(content, &payload); err != nil {
		return geoquiz.FollowUpResult{}, fmt.Errorf("parsing facts: %w", err)
	}
	if len(payload.Facts) == 0 {
		return geoquiz.FollowUpResult{}, errors.New("no facts in response")
	}
	return geoquiz.FollowUpResult{Facts: payload.Facts}, nil
}

func (c *Client) otherPerson(ctx context.Context, req geoquiz.FollowUpRequest) (geoquiz.FollowUpResult, error) {
	user := fmt.Sprintf(`Pick a different notable figure associated with %s or %s — not %s — as JSON:
{"name": "...", "role": "...", "bio": "one sentence", "fact": "one intriguing fact about this person, without naming them"}`,
		req.City, req.Country, req.PersonName)

	content, err := c.chat(ctx, user)
	if err != nil {
		return geoquiz.FollowUpResult{}, err
	}
	var payload personPayload
	if err := decodeLoose(content, &payload); err != nil {
		return geoquiz.FollowUpResult{}, fmt.Errorf("parsing person: %w", err)
	}
	if payload.Name == "" {
		return geoquiz.FollowUpResult{}, errors.New("no person in response")
	}
	return geoquiz.FollowUpResult{Person: geoquiz.Person(payload)}, nil
}

func (c *Client) historyDeepDive(ctx context.Context, req geoquiz.FollowUpRequest) (geoquiz.FollowUpResult, error) {
	user := fmt.Sprintf(`Give exactly 5 key points from the history of %s, %s in chronological order as JSON:
{"history_points": ["...", "...", "...", "...", "..."]}`, req.City, req.Country)

	content, err := c.chat(ctx, user)
	if err != nil {
		return geoquiz.FollowUpResult{}, err
	}
	var payload struct {
		HistoryPoints []string `json:"history_points"`
	}
	if err := decodeLoose(content, &payload); err != nil {
		return geoquiz.FollowUpResult{}, fmt.Errorf("parsing history points: %w", err)
	}
	if len(payload.HistoryPoints) == 0 {
		return geoquiz.FollowUpResult{}, errors.New("no history points in response")
	}
	return geoquiz.FollowUpResult{HistoryPoints: payload.HistoryPoints}, nil
}

// chat posts one system+user exchange and returns the assistant's content.
// Transient failures (network errors, 5xx) are retried twice with backoff.
func (c *Client) chat(ctx context.Context, userPrompt string) (string, error) {
	key := c.cfg.APIKey
	if c.keyFn != nil {
		if k := c.keyFn(ctx); k != "" {
			key = k
		}
	}
	if key == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": 0.8,
		"max_tokens":  1024,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+key)

		resp, err = c.httpc.Do(req)
		if err == nil && resp.StatusCode < 500 {
			break
		}
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
		if attempt < 2 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
			}
		} else if err != nil {
			return "", fmt.Errorf("calling enrichment service: %w", err)
		}
	}
	if resp == nil {
		return "", errors.New("enrichment service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("enrichment service returned %d: %s", resp.StatusCode, raw)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}
	return completion.Choices[0].Message.Content, nil
}

// decodeLoose parses content as JSON; when strict parsing fails it retries
// on the substring between the first { and the last }, which recovers
// responses wrapped in prose or markdown fences.
func decodeLoose(content string, v any) error {
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response: %.80q", content)
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}
