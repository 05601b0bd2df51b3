package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

const translatePrompt = `You are a professional translator. Detect the language of the user text and translate it to English.
Maintain the original meaning and tone. If the text contains numbers, prices, or technical terms, preserve them exactly.
Return a JSON object: {"translated": string, "language": string}.
The language is a lowercase English name ("english", "arabic", "hindi", "urdu", ...); use "unknown" if unsure.
If the text is already English, return it unchanged with language "english".`

const extractPromptFmt = `Extract bid information from the following text.
Look for:
- Price (numbers followed by currency like %s, USD, etc.)
- Delivery time (days, weeks, months)
- Availability (ready, available, stock, etc.)

Return a JSON object:
{"price": number or null, "currency": "%s" or currency found, "delivery_time": string or null, "availability": string or null, "confidence": "high", "medium" or "low"}

If no clear information is found, use null values and set confidence to "low".`

const transcribePrompt = `Transcribe the attached voice message verbatim in its original language. Return only the transcription text.`

// GeminiEngine — тонкая обёртка над официальным клиентом genai.
type GeminiEngine struct {
	cli             *genai.Client
	model           string
	defaultCurrency string
}

// NewGeminiEngine создаёт движок извлечения на основе Gemini API.
func NewGeminiEngine(ctx context.Context, apiKey, defaultCurrency string) (*GeminiEngine, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiEngine{
		cli:             cli,
		model:           defaultGeminiModel,
		defaultCurrency: defaultCurrency,
	}, nil
}

// ProcessText обрабатывает текстовое сообщение: перевод при необходимости,
// затем извлечение полей предложения из переведённого текста.
func (e *GeminiEngine) ProcessText(ctx context.Context, text string) (*ProcessedMessage, error) {
	translated, language := e.translate(ctx, text)
	return &ProcessedMessage{
		Original:   text,
		Translated: translated,
		Language:   language,
		Bid:        e.extract(ctx, translated),
	}, nil
}

// ProcessVoice обрабатывает голосовое сообщение: транскрипция, перевод, извлечение.
// Ошибкой завершается только транскрипция: без текста конвейеру не с чем работать.
func (e *GeminiEngine) ProcessVoice(ctx context.Context, audio []byte) (*ProcessedMessage, error) {
	transcribed, err := e.transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}

	translated, language := e.translate(ctx, transcribed)
	return &ProcessedMessage{
		Original:   transcribed,
		Translated: translated,
		Language:   language,
		Bid:        e.extract(ctx, translated),
	}, nil
}

func (e *GeminiEngine) transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := e.cli.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: transcribePrompt},
			{InlineData: &genai.Blob{MIMEType: "audio/ogg", Data: audio}},
		}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("transcribe voice: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("transcribe voice: empty model response")
	}

	return strings.TrimSpace(text), nil
}

type translateResult struct {
	Translated string `json:"translated"`
	Language   string `json:"language"`
}

// translate не возвращает ошибку: при сбое перевода конвейер продолжает
// работать с исходным текстом и языком "unknown".
func (e *GeminiEngine) translate(ctx context.Context, text string) (string, string) {
	raw, err := e.generateJSON(ctx, translatePrompt, text)
	if err != nil {
		return text, "unknown"
	}

	var res translateResult
	if err := json.Unmarshal(raw, &res); err != nil || res.Translated == "" {
		return text, "unknown"
	}

	return res.Translated, strings.ToLower(res.Language)
}

// extract не возвращает ошибку: при сбое извлечения возвращается пустой
// результат с низкой уверенностью, и входящее сообщение уходит в help-ветку.
func (e *GeminiEngine) extract(ctx context.Context, text string) BidInfo {
	empty := BidInfo{
		Currency:   e.defaultCurrency,
		Confidence: ConfidenceLow,
	}

	raw, err := e.generateJSON(ctx, fmt.Sprintf(extractPromptFmt, e.defaultCurrency, e.defaultCurrency), text)
	if err != nil {
		return empty
	}

	var info BidInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return empty
	}

	if info.Currency == "" {
		info.Currency = e.defaultCurrency
	}
	if info.Confidence == "" {
		info.Confidence = ConfidenceLow
	}

	return info
}

func (e *GeminiEngine) generateJSON(ctx context.Context, prompt, input string) (json.RawMessage, error) {
	resp, err := e.cli.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt + "\n\n[INPUT]\n" + input}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}

	return json.RawMessage(text), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return ""
	}
	return content.Parts[0].Text
}
