// Package googletts synthesizes speech through the Google Cloud
// Text-to-Speech REST API. It covers the languages where Google's
// voices are preferred over the default speech provider.
package googletts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://texttospeech.googleapis.com"
	defaultTimeout = 60 * time.Second

	indonesianVoice = "id-ID-Standard-A"
)

// Client talks to the Text-to-Speech REST API with an API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New constructs a Client. An empty baseURL selects the public API.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Supports reports whether the client has a voice for the language.
func (c *Client) Supports(lang string) bool {
	return lang == "id"
}

// SynthesizeSpeech renders Indonesian text as MP3 audio.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, lang string) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if !c.Supports(lang) {
		return nil, fmt.Errorf("unsupported speech language %q", lang)
	}
	if c.apiKey == "" {
		return nil, errors.New("google tts api key is required")
	}

	var payload synthesizeRequest
	payload.Input.Text = text
	payload.Voice.LanguageCode = "id-ID"
	payload.Voice.Name = indonesianVoice
	payload.AudioConfig.AudioEncoding = "MP3"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode synthesize request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text:synthesize?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesize response: %w", err)
	}

	var out synthesizeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode synthesize response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil {
			return nil, fmt.Errorf("google tts http %d: %s", resp.StatusCode, out.Error.Message)
		}
		return nil, fmt.Errorf("google tts http %d: %s", resp.StatusCode, raw)
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio content")
	}

	return audio, nil
}
