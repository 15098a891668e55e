package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
)

// Extraction is the structured reading of a free-text whistle request.
type Extraction struct {
	Description         string
	Tags                []string
	Provider            *bool
	AlertRadius         int
	Expiry              string
	Confidence          float64
	NeedsClarification  bool
	ClarificationReason string
}

// ChatCompleter is the slice of the OpenAI client the extractor uses;
// tests substitute a canned implementation.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Extractor struct {
	client ChatCompleter
	model  string
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Extractor)

// WithChatCompleter overrides the OpenAI client, used by tests.
func WithChatCompleter(client ChatCompleter) Option {
	return func(e *Extractor) { e.client = client }
}

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func NewExtractor(apiKey string, logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		model:  openai.GPT3Dot5Turbo,
		now:    time.Now,
		logger: logger.Named("extract"),
	}
	if apiKey != "" {
		e.client = openai.NewClient(apiKey)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const systemPrompt = `You are an expert at understanding service requests and offers. Analyze the input and extract:
1. SERVICE TAGS: specific services, skills, tasks or help mentioned. Think broadly: professions, skills, tasks, general help, creative services.
2. PROVIDER STATUS: offering services (true) or seeking services (false); null when unclear.
3. LOCATION SCOPE: any distance or area, converted to kilometers.
4. TIME FRAME: any time reference, converted to a future ISO datetime.
5. CLARITY: whether the request is clear enough to act on.
Respond with valid JSON only, in this exact format:
{"services":["..."],"provider":true,"alert_radius_km":2,"expiry_iso":"ISO datetime or default","confidence":0.0,"needs_clarification":false,"clarification_reason":""}`

type llmResult struct {
	Services            []string `json:"services"`
	Provider            *bool    `json:"provider"`
	AlertRadiusKm       float64  `json:"alert_radius_km"`
	ExpiryISO           string   `json:"expiry_iso"`
	Confidence          float64  `json:"confidence"`
	NeedsClarification  bool     `json:"needs_clarification"`
	ClarificationReason string   `json:"clarification_reason"`
}

// Extract reads whistle attributes from free text. A missing API key or a
// failed model call produces a clarification outcome, never an error: the
// caller reports "needs clarification" rather than crashing the tool.
func (e *Extractor) Extract(ctx context.Context, userInput string) Extraction {
	if e.client == nil {
		return Extraction{
			Description:         userInput,
			AlertRadius:         domain.DefaultAlertRadiusKm,
			NeedsClarification:  true,
			ClarificationReason: "OpenAI API key not configured. Set WHISTLE_OPENAIAPIKEY to enable whistle creation.",
		}
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Current date and time: %s\nAnalyze this text and extract service information: %q", e.now().Format(time.RFC3339), userInput)},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		e.logger.Error("extraction call failed", zap.Error(err))
		return Extraction{
			Description:         userInput,
			AlertRadius:         domain.DefaultAlertRadiusKm,
			NeedsClarification:  true,
			ClarificationReason: fmt.Sprintf("Unable to process request: %s", err),
		}
	}
	if len(resp.Choices) == 0 {
		return Extraction{
			Description:         userInput,
			AlertRadius:         domain.DefaultAlertRadiusKm,
			NeedsClarification:  true,
			ClarificationReason: "Unable to process request: model returned no choices",
		}
	}

	var result llmResult
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		e.logger.Error("extraction response not valid JSON", zap.Error(err))
		return Extraction{
			Description:         userInput,
			AlertRadius:         domain.DefaultAlertRadiusKm,
			NeedsClarification:  true,
			ClarificationReason: "Unable to process request: invalid model response",
		}
	}

	return e.fromLLMResult(userInput, result)
}

func (e *Extractor) fromLLMResult(userInput string, result llmResult) Extraction {
	radius := int(result.AlertRadiusKm)
	if radius <= 0 {
		radius = domain.DefaultAlertRadiusKm
	}
	expiry := result.ExpiryISO
	if expiry == "" || expiry == "default" {
		expiry = e.now().Add(domain.DefaultWhistleExpiry).UTC().Format(time.RFC3339)
	}
	reason := result.ClarificationReason
	if result.NeedsClarification && reason == "" {
		reason = "Could not clearly understand the service request"
	}
	return Extraction{
		Description:         userInput,
		Tags:                result.Services,
		Provider:            result.Provider,
		AlertRadius:         radius,
		Expiry:              expiry,
		Confidence:          result.Confidence,
		NeedsClarification:  result.NeedsClarification,
		ClarificationReason: reason,
	}
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if after, found := strings.CutPrefix(content, "```json"); found {
		content = after
	} else if after, found := strings.CutPrefix(content, "```"); found {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
