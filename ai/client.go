package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/types"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	requestTimeout = 30 * time.Second
	temperature    = 0.7
	cacheKeyPrefix = "ai:answer:"
)

// Client asks an OpenAI-compatible chat-completions endpoint for parenting
// advice. Answers are cached in redis (when configured) and duplicate
// in-flight questions are collapsed, since upstream calls are slow and
// metered.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
	rdb        *redis.Client // may be nil
	cacheTTL   time.Duration
	group      singleflight.Group
}

// New creates a Client. rdb may be nil to disable the answer cache.
func New(cfg config.AIConfig, rdb *redis.Client) *Client {
	cacheTTL, err := time.ParseDuration(cfg.CacheDuration)
	if err != nil || cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		rdb:        rdb,
		cacheTTL:   cacheTTL,
	}
}

// Enabled reports whether an upstream endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GetAdvice answers a parenting question. Failures of the upstream call are
// reported as ErrUpstream; the caller gets no partial answer.
func (c *Client) GetAdvice(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is empty", types.ErrInvalidContent)
	}
	if !c.Enabled() {
		return "", fmt.Errorf("%w: ai help is not configured", types.ErrUpstream)
	}
	key := cacheKeyPrefix + strings.ToLower(question)
	if c.rdb != nil {
		answer, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			globals.AppLogger.Debug("ai answer cache hit", "question", question)
			return answer, nil
		}
		if err != redis.Nil {
			globals.AppLogger.Warn("ai answer cache read failed", "error", err)
		}
	}
	answer, err, _ := c.group.Do(key, func() (interface{}, error) {
		answer, err := c.complete(ctx, question)
		if err != nil {
			return "", err
		}
		if c.rdb != nil {
			if err := c.rdb.Set(ctx, key, answer, c.cacheTTL).Err(); err != nil {
				globals.AppLogger.Warn("ai answer cache write failed", "error", err)
			}
		}
		return answer, nil
	})
	if err != nil {
		return "", err
	}
	return answer.(string), nil
}

func (c *Client) complete(ctx context.Context, question string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: question},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: could not marshal completion request: %s", types.ErrUpstream, err)
	}
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: completion call failed: %s", types.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: completion call returned status %d", types.ErrUpstream, resp.StatusCode)
	}
	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("%w: could not decode completion response: %s", types.ErrUpstream, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: completion response is empty", types.ErrUpstream)
	}
	return completion.Choices[0].Message.Content, nil
}
