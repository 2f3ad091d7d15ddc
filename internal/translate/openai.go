package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAIConfig holds settings for the chat-model provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRequests caps requests per session; 0 means unlimited. At the cap
	// the provider reports quota exhaustion without touching the network.
	MaxRequests int
	// ContextLines is how many recent translated exchanges are replayed as
	// chat history so consecutive subtitle lines stay coherent.
	ContextLines int
}

// OpenAI translates through an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	cfg      OpenAIConfig
	counters *SessionCounters
	history  ContextSource
	client   *http.Client
}

// NewOpenAI creates the chat-model provider. history may be nil to disable
// conversational context.
func NewOpenAI(cfg OpenAIConfig, counters *SessionCounters, history ContextSource) *OpenAI {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAI{
		cfg:      cfg,
		counters: counters,
		history:  history,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
}

func (o *OpenAI) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate sends the text to the chat model with recent exchanges replayed
// as conversation history.
func (o *OpenAI) Translate(ctx context.Context, req Request) (string, error) {
	if o.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrPermanent)
	}
	if o.cfg.MaxRequests > 0 && o.counters.Get(o.Name()) >= o.cfg.MaxRequests {
		return "", ErrQuotaExceeded
	}
	o.counters.Inc(o.Name())

	system := fmt.Sprintf(
		"You are a subtitle translator. Translate each message from %s to %s. "+
			"Reply with the translation only, no commentary.",
		req.SourceLang, req.TargetLang)
	if req.Hint != "" {
		system += " Context: " + req.Hint
	}

	messages := []chatMessage{{Role: "system", Content: system}}
	if o.history != nil && o.cfg.ContextLines > 0 {
		for _, ex := range o.history.Recent(o.cfg.ContextLines) {
			messages = append(messages,
				chatMessage{Role: "user", Content: ex.Source},
				chatMessage{Role: "assistant", Content: ex.Translated},
			)
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Text})

	payload, err := json.Marshal(chatRequest{Model: o.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Provider: o.Name(), Code: resp.StatusCode}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response choices", ErrPermanent)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
