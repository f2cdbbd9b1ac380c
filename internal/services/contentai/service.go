package contentai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/llm"
)

// Service implements Cleaner, Extractor, and Generator over one shared LLM
// client.
type Service struct {
	client *llm.Client
}

// NewService wraps the provided LLM client.
func NewService(client *llm.Client) *Service {
	return &Service{client: client}
}

// Clean removes filler and artifacts from a raw transcript.
func (s *Service) Clean(ctx context.Context, rawTranscript string) (CleanResult, error) {
	var empty CleanResult
	if strings.TrimSpace(rawTranscript) == "" {
		return empty, services.Wrap(services.ErrValidation, "cleaning", "clean", "raw transcript is empty", nil)
	}

	content, err := s.client.CompleteJSON(ctx, cleanSystemPrompt, rawTranscript)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "cleaning", "clean", "cleaner call failed", err)
	}

	var parsed struct {
		CleanedContent string `json:"cleaned_content"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return empty, services.Wrap(services.ErrTransient, "cleaning", "clean", "parse cleaner payload", err)
	}
	cleaned := strings.TrimSpace(parsed.CleanedContent)
	if cleaned == "" {
		return empty, services.Wrap(services.ErrTransient, "cleaning", "clean", "cleaner returned empty content", nil)
	}
	return CleanResult{
		CleanedContent: cleaned,
		WordCount:      len(strings.Fields(cleaned)),
	}, nil
}

// Extract pulls insights from a cleaned transcript.
func (s *Service) Extract(ctx context.Context, cleanedTranscript string) ([]Insight, error) {
	if strings.TrimSpace(cleanedTranscript) == "" {
		return nil, services.Wrap(services.ErrValidation, "insights", "extract", "cleaned transcript is empty", nil)
	}

	content, err := s.client.CompleteJSON(ctx, extractSystemPrompt, cleanedTranscript)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "insights", "extract", "extractor call failed", err)
	}

	var parsed struct {
		Insights []struct {
			Title    string `json:"title"`
			Body     string `json:"body"`
			Category string `json:"category"`
		} `json:"insights"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "insights", "extract", "parse extractor payload", err)
	}

	insights := make([]Insight, 0, len(parsed.Insights))
	for _, raw := range parsed.Insights {
		body := strings.TrimSpace(raw.Body)
		if body == "" {
			continue
		}
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			title = summarizeTitle(body)
		}
		insights = append(insights, Insight{
			Title:    title,
			Body:     body,
			Category: strings.ToLower(strings.TrimSpace(raw.Category)),
		})
	}
	return insights, nil
}

// Generate drafts one post per requested platform for an insight.
func (s *Service) Generate(ctx context.Context, insight Insight, platforms []PlatformSpec) ([]PostDraft, error) {
	if strings.TrimSpace(insight.Body) == "" {
		return nil, services.Wrap(services.ErrValidation, "postgen", "generate", "insight body is empty", nil)
	}
	if len(platforms) == 0 {
		return nil, services.Wrap(services.ErrValidation, "postgen", "generate", "no target platforms", nil)
	}

	userPrompt, err := buildGeneratePrompt(insight, platforms)
	if err != nil {
		return nil, err
	}
	content, err := s.client.CompleteJSON(ctx, generateSystemPrompt, userPrompt)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "postgen", "generate", "generator call failed", err)
	}

	var parsed struct {
		Posts []struct {
			Platform string `json:"platform"`
			Body     string `json:"body"`
		} `json:"posts"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "postgen", "generate", "parse generator payload", err)
	}

	limits := make(map[string]int, len(platforms))
	for _, platform := range platforms {
		limits[strings.ToLower(platform.Name)] = platform.MaxLength
	}

	drafts := make([]PostDraft, 0, len(parsed.Posts))
	for _, raw := range parsed.Posts {
		platform := strings.ToLower(strings.TrimSpace(raw.Platform))
		body := strings.TrimSpace(raw.Body)
		if platform == "" || body == "" {
			continue
		}
		limit, known := limits[platform]
		if !known {
			continue
		}
		if limit > 0 && len([]rune(body)) > limit {
			return nil, services.Wrap(services.ErrTransient, "postgen", "generate",
				fmt.Sprintf("generated %s post exceeds %d characters", platform, limit), nil)
		}
		drafts = append(drafts, PostDraft{Platform: platform, Body: body})
	}
	if len(drafts) == 0 {
		return nil, services.Wrap(services.ErrTransient, "postgen", "generate", "generator produced no usable posts", nil)
	}
	return drafts, nil
}

func buildGeneratePrompt(insight Insight, platforms []PlatformSpec) (string, error) {
	payload := struct {
		Insight struct {
			Title    string `json:"title"`
			Body     string `json:"body"`
			Category string `json:"category,omitempty"`
		} `json:"insight"`
		Platforms []struct {
			Name      string `json:"name"`
			MaxLength int    `json:"max_length"`
		} `json:"platforms"`
	}{}
	payload.Insight.Title = insight.Title
	payload.Insight.Body = insight.Body
	payload.Insight.Category = insight.Category
	for _, platform := range platforms {
		payload.Platforms = append(payload.Platforms, struct {
			Name      string `json:"name"`
			MaxLength int    `json:"max_length"`
		}{Name: strings.ToLower(platform.Name), MaxLength: platform.MaxLength})
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode generate prompt: %w", err)
	}
	return string(encoded), nil
}

func summarizeTitle(body string) string {
	const limit = 60
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 20 {
		cut = cut[:idx]
	}
	return cut
}
