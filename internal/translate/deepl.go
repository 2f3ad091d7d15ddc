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

// DeepL translates through the DeepL REST API.
type DeepL struct {
	apiKey   string
	baseURL  string
	counters *SessionCounters
	client   *http.Client
}

// NewDeepL creates the DeepL provider.
func NewDeepL(apiKey, baseURL string, counters *SessionCounters) *DeepL {
	return &DeepL{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		counters: counters,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DeepL) Name() string { return "deepl" }

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate posts the text to /v2/translate.
func (d *DeepL) Translate(ctx context.Context, req Request) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrPermanent)
	}
	d.counters.Inc(d.Name())

	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("source_lang", strings.ToUpper(req.SourceLang))
	form.Set("target_lang", strings.ToUpper(req.TargetLang))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Provider: d.Name(), Code: resp.StatusCode}
	}

	var parsed deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations in response", ErrPermanent)
	}

	return strings.TrimSpace(parsed.Translations[0].Text), nil
}
