package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Google translates through the public web endpoint (client=gtx). No API key
// is required, which makes it the usual fallback target.
type Google struct {
	baseURL  string
	counters *SessionCounters
	client   *http.Client
}

// NewGoogle creates the web-endpoint provider.
func NewGoogle(baseURL string, counters *SessionCounters) *Google {
	return &Google{
		baseURL:  strings.TrimRight(baseURL, "/"),
		counters: counters,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Google) Name() string { return "google" }

// Translate calls the single-phrase endpoint and joins the returned segments.
func (g *Google) Translate(ctx context.Context, req Request) (string, error) {
	g.counters.Inc(g.Name())

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", req.SourceLang)
	params.Set("tl", req.TargetLang)
	params.Set("dt", "t")
	params.Set("q", req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/translate_a/single?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Provider: g.Name(), Code: resp.StatusCode}
	}

	// Response shape: [[["Olá","Hello",...],["mundo","world",...]],...]
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: no segments in response", ErrPermanent)
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("%w: malformed segments: %v", ErrPermanent, err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty translation", ErrPermanent)
	}
	return out, nil
}
