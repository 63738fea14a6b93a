package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/ai"
	"github.com/spigell/lovemeet/internal/logger"
	"github.com/spigell/lovemeet/internal/profile"
	"github.com/spigell/lovemeet/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// PromptOverrides customizes the system prompt.
type PromptOverrides struct {
	Tone             string
	UserInstructions string
}

type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	defaultTone             = "Friendly"
	maxUserInstructionRunes = 500
)

func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, log *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    logger.WithAIFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) SetPromptOverrides(overrides PromptOverrides) {
	m.overrides = overrides
}

func (m *Matcher) Evaluate(ctx context.Context, viewer, candidate *profile.Candidate) (*ai.FitAssessment, error) {
	if viewer == nil {
		return nil, fmt.Errorf("viewer profile is required")
	}
	if candidate == nil {
		return nil, fmt.Errorf("candidate is required")
	}

	payload := map[string]any{
		"viewer":    viewer,
		"candidate": candidate,
	}

	message, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profiles payload: %w", err)
	}

	system := buildPrompt(m.overrides)
	log := logger.WithFields(m.logger, logger.CandidateFields(candidate)...)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(system)+utf8.RuneCount(message)),
		zap.String("message_preview", utils.TruncateForLog(string(message), m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, system, string(message))
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore {
		log.Debug("set fit to false by score threshold",
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(overrides PromptOverrides) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Compare the viewer and candidate profiles.\nTone: {{TONE}}\nInstructions:\n{{USER_INSTRUCTIONS}}\n\nJSON Response:"
	}

	tone := strings.TrimSpace(overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}

	prompt := strings.ReplaceAll(template, "{{TONE}}", tone)
	prompt = strings.ReplaceAll(prompt, "{{USER_INSTRUCTIONS}}", sanitizeInstructions(overrides.UserInstructions))
	return strings.TrimSpace(prompt)
}

// sanitizeInstructions renders free-form user text as an indented list. Square
// brackets are neutralized so the text cannot pose as a role marker.
func sanitizeInstructions(input string) string {
	input = strings.NewReplacer("[", "(", "]", ")").Replace(input)

	var lines []string
	budget := maxUserInstructionRunes
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || budget <= 0 {
			continue
		}

		runes := []rune(line)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		budget -= len(runes)

		lines = append(lines, "  - "+string(runes))
	}

	if len(lines) == 0 {
		return "  - none"
	}

	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.FitAssessment{
		Fit:    coerceBool(data["fit"]),
		Score:  score,
		Reason: coerceString(data["reason"]),
		Opener: coerceString(data["opener"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
