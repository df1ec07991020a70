package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/latestcomment/ai-battle-arena/internal/models"
)

// APIError is a non-2xx answer from the battle backend.
type APIError struct {
	StatusCode int
	Detail     string // FastAPI-style "detail", empty when absent or not a string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("battle api error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("battle api error (status %d)", e.StatusCode)
}

type createBattleRequest struct {
	Topic  string `json:"topic"`
	Rounds int    `json:"rounds"`
}

// ArenaClient talks to the battle backend's REST API.
type ArenaClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewArenaClient creates a client for baseURL, e.g. "http://localhost:8000".
// A zero timeout disables it.
func NewArenaClient(baseURL string, timeout time.Duration, log *zap.Logger) *ArenaClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArenaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *ArenaClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

func (c *ArenaClient) CreateBattle(ctx context.Context, topic string, rounds int) (*models.Battle, error) {
	var resp models.Battle
	if err := c.send(ctx, http.MethodPost, "/api/battles", createBattleRequest{Topic: topic, Rounds: rounds}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ArenaClient) ProcessRound(ctx context.Context, battleID string) (*models.Battle, error) {
	var resp models.Battle
	if err := c.send(ctx, http.MethodPost, battlePath(battleID, "round"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ArenaClient) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	var resp models.Battle
	if err := c.send(ctx, http.MethodGet, battlePath(battleID, ""), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ArenaClient) GetVotes(ctx context.Context, battleID string) (*models.VoteTally, error) {
	var resp models.VoteTally
	if err := c.send(ctx, http.MethodGet, battlePath(battleID, "votes"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ArenaClient) Vote(ctx context.Context, battleID string, vote models.Vote) (*models.VoteTally, error) {
	var resp models.VoteTally
	if err := c.send(ctx, http.MethodPost, battlePath(battleID, "vote"), vote, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func battlePath(battleID, action string) string {
	p := "/api/battles/" + url.PathEscape(battleID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *ArenaClient) send(ctx context.Context, method, path string, body, dest any) error {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("battle api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(data)}
	}

	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// parseDetail pulls a string "detail" out of an error body. Validation
// errors carry a list there, which is not user-facing.
func parseDetail(body []byte) string {
	var errResp struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || len(errResp.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(errResp.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}
