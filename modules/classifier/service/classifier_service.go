package service

import (
	"context"
	"encoding/json"

	"github.com/andreypavlenko/jobber/internal/platform/llm"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/modules/classifier/model"
	"go.uber.org/zap"
)

// ClassifierService maps inbound email responses to a category, confidence,
// suggested application-status transition, and extracted slots (spec §4.5).
type ClassifierService struct {
	llm llm.Gateway
	log *logger.Logger
}

func NewClassifierService(gateway llm.Gateway, log *logger.Logger) *ClassifierService {
	return &ClassifierService{llm: gateway, log: log}
}

// Analyze runs the deterministic pass, escalating to the LLM only when
// useLLM is set and the deterministic confidence falls below
// MinConfidenceForDeterministic.
func (s *ClassifierService) Analyze(ctx context.Context, subject, body, sender, appID string, useLLM bool) *model.AnalysisResult {
	category, confidence, matched := classifyDeterministic(subject, body)
	result := &model.AnalysisResult{
		Category:        category,
		Confidence:      confidence,
		KeywordsMatched: matched,
		ExtractedInfo:   extractInfo(body),
	}

	if useLLM && confidence < model.MinConfidenceForDeterministic {
		if llmResult, err := s.classifyLLM(ctx, subject, body, sender); err == nil && llmResult != nil {
			result.Category = llmResult.Category
			result.Confidence = llmResult.Confidence
			result.ExtractedInfo = llmResult.ExtractedInfo
			result.LLMUsed = true
		} else if err != nil {
			s.log.Warn("classifier: llm pass failed, keeping deterministic result", zap.Error(err), zap.String("application_id", appID))
		}
	}

	result.SuggestedStatus = statusForCategory(result.Category)
	result.RequiresAction, result.ActionType, result.ActionDetails = actionForCategory(result.Category)

	return result
}

var classifierSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"category": map[string]any{
			"type": "string",
			"enum": []string{
				string(model.CategoryInterviewInvitation),
				string(model.CategoryRejection),
				string(model.CategoryOffer),
				string(model.CategoryInformationRequest),
				string(model.CategoryFollowUpRequired),
				string(model.CategoryAcknowledgment),
				string(model.CategorySchedulingRequest),
				string(model.CategoryUnknown),
			},
		},
		"confidence": map[string]any{"type": "number"},
		"dates":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"times":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"location":   map[string]any{"type": "string"},
	},
	"required": []string{"category", "confidence"},
}

type llmClassification struct {
	Category      model.Category
	Confidence    float64
	ExtractedInfo model.ExtractedInfo
}

func (s *ClassifierService) classifyLLM(ctx context.Context, subject, body, sender string) (*llmClassification, error) {
	req := llm.ChatRequest{
		System: "You classify recruiting email replies into a fixed category set. Respond only via the provided schema.",
		Messages: []llm.Message{
			{Role: "user", Content: "Sender: " + sender + "\nSubject: " + subject + "\n\n" + body},
		},
		Temperature: 0,
		MaxTokens:   512,
		Schema:      classifierSchema,
		Tag:         "classifier.email",
	}

	raw, err := s.llm.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Category   string   `json:"category"`
		Confidence float64  `json:"confidence"`
		Dates      []string `json:"dates"`
		Times      []string `json:"times"`
		Location   string   `json:"location"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	return &llmClassification{
		Category:   model.Category(parsed.Category),
		Confidence: parsed.Confidence,
		ExtractedInfo: model.ExtractedInfo{
			Dates:    parsed.Dates,
			Times:    parsed.Times,
			Location: parsed.Location,
		},
	}, nil
}

// statusForCategory maps a classifier category to a suggested application
// status per spec §4.8's classifier transition table. C8 only applies it
// when confidence clears MinConfidenceForTransition and the application
// isn't already in a terminal state.
func statusForCategory(category model.Category) string {
	switch category {
	case model.CategoryInterviewInvitation:
		return "interview_scheduled"
	case model.CategoryRejection:
		return "rejected"
	case model.CategoryOffer:
		return "offer_received"
	case model.CategoryAcknowledgment:
		return "under_review"
	default:
		return ""
	}
}

func actionForCategory(category model.Category) (requiresAction bool, actionType model.ActionType, details string) {
	switch category {
	case model.CategoryInterviewInvitation, model.CategorySchedulingRequest:
		return true, model.ActionScheduleInterview, "Reply with availability and schedule the interview"
	case model.CategoryInformationRequest:
		return true, model.ActionRespondToRequest, "Reply with the requested information"
	default:
		return false, model.ActionNone, ""
	}
}
