// Package openai implements the speech-to-text, translation,
// summarization, and speech-synthesis collaborators on top of the
// OpenAI HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voice_translator_bot/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultTimeout = 90 * time.Second

	transcriptionModel = "whisper-1"
	chatModel          = "gpt-4o-mini"
	speechModel        = "tts-1"
)

// speechVoices maps language codes to the OpenAI voice used for them.
var speechVoices = map[string]string{
	"ru": "shimmer",
	"en": "echo",
	"id": "nova",
}

// Client talks to the OpenAI API over plain HTTP.
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
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type errorEnvelope struct {
	Error *apiError `json:"error,omitempty"`
}

// classifyStatus maps transport-level failures onto the collaborator
// error taxonomy so callers can distinguish the user-actionable cases.
func classifyStatus(status int, apiErr *apiError, raw []byte) error {
	var detail string
	if apiErr != nil && apiErr.Message != "" {
		detail = apiErr.Message
	} else {
		detail = string(raw)
	}

	if status == http.StatusTooManyRequests {
		if apiErr != nil {
			if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
				return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, detail)
			}
			if apiErr.Type == "insufficient_quota" {
				return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, detail)
			}
		}
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	}

	return fmt.Errorf("openai http %d: %s", status, detail)
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	errorEnvelope
}

// Transcribe converts audio bytes to text via Whisper and returns the
// transcript together with the detected language code.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, string, error) {
	if ctx == nil {
		return "", "", errors.New("context is required")
	}
	if len(audio) == 0 {
		return "", "", errors.New("audio payload is empty")
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", "", fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", "", fmt.Errorf("write transcription form: %w", err)
	}
	_ = writer.WriteField("model", transcriptionModel)
	_ = writer.WriteField("response_format", "verbose_json")
	if err := writer.Close(); err != nil {
		return "", "", fmt.Errorf("close transcription form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	var out transcriptionResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", "", fmt.Errorf("transcribe: %w", err)
	}

	return out.Text, languageCode(out.Language), nil
}

// languageCode maps Whisper's language names onto the codes the
// pipeline understands; anything unrecognized defaults to English.
func languageCode(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "russian", "ru":
		return "ru"
	case "indonesian", "id":
		return "id"
	default:
		return "en"
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	errorEnvelope
}

// langNames maps codes to the names used in prompts and in the JSON
// keys the model is asked to emit.
var langNames = map[string]string{
	"ru": "Russian",
	"en": "English",
	"id": "Indonesian",
}

var langKeys = map[string]string{
	"russian":    "ru",
	"english":    "en",
	"indonesian": "id",
}

// Translate asks the chat model for translations of text into every
// target language, returned as a code-keyed map. Targets the model did
// not produce are simply absent from the map.
func (c *Client) Translate(ctx context.Context, text, sourceLang string, targets []string) (map[string]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	names := make([]string, 0, len(targets))
	formatParts := make([]string, 0, len(targets))
	for _, lang := range targets {
		if lang == sourceLang {
			continue
		}
		name, ok := langNames[lang]
		if !ok {
			continue
		}
		names = append(names, name)
		formatParts = append(formatParts, fmt.Sprintf("%q: \"translation\"", strings.ToLower(name)))
	}
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	sourceName := langNames[sourceLang]
	if sourceName == "" {
		sourceName = sourceLang
	}

	systemPrompt := fmt.Sprintf(`You are a professional translator with expertise in %s and %s.
Your task is to translate the given %s text while:
1. Preserving the original meaning and context
2. Using natural, fluent language in the target languages
3. Maintaining the tone and style of the original text
4. Being attentive to cultural nuances
5. Using appropriate idioms when applicable

Return translations in this exact JSON format:
{%s}`, sourceName, strings.Join(names, ", "), sourceName, strings.Join(formatParts, ", "))

	content, err := c.chat(ctx, systemPrompt,
		"Translate this text with attention to context and cultural nuances: "+text, true)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse translation response: %w", err)
	}

	translations := make(map[string]string, len(parsed))
	for key, value := range parsed {
		if code, ok := langKeys[strings.ToLower(key)]; ok && value != "" {
			translations[code] = value
		}
	}

	return translations, nil
}

// Summarize asks the chat model for a structured summary in the given
// language.
func (c *Client) Summarize(ctx context.Context, text, lang string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	langName := langNames[lang]
	if langName == "" {
		langName = lang
	}

	systemPrompt := fmt.Sprintf(`You are an expert at writing short, information-dense summaries.
Write the summary in %s. Structure it with:
1. A one or two sentence introduction
2. Clear subheadings per major topic
3. Bullet lists for the key points
4. A short conclusion

Use short paragraphs and plain wording. Focus on the substance and drop secondary detail.`, langName)

	content, err := c.chat(ctx, systemPrompt,
		"Create a detailed summary of the following text, keeping every key thought and idea: "+text, false)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	return content, nil
}

func (c *Client) chat(ctx context.Context, systemPrompt, userPrompt string, forceJSON bool) (string, error) {
	payload := chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if forceJSON {
		payload.ResponseFormat = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var out chatResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty chat completion choices")
	}

	return out.Choices[0].Message.Content, nil
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// SynthesizeSpeech renders text as spoken audio in the voice configured
// for the language.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, lang string) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	voice, ok := speechVoices[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported speech language %q", lang)
	}

	body, err := json.Marshal(speechRequest{Model: speechModel, Voice: voice, Input: text})
	if err != nil {
		return nil, fmt.Errorf("encode speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		_ = json.Unmarshal(raw, &envelope)
		return nil, fmt.Errorf("synthesize speech: %w", classifyStatus(resp.StatusCode, envelope.Error, raw))
	}

	return raw, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doJSON executes the request and decodes the body into out, which must
// embed errorEnvelope so API errors can be classified.
func (c *Client) doJSON(req *http.Request, out interface{ envelope() *apiError }) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return classifyStatus(resp.StatusCode, nil, raw)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, out.envelope(), raw)
	}

	return nil
}

func (e *errorEnvelope) envelope() *apiError {
	return e.Error
}
