package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andreypavlenko/jobber/internal/platform/llm"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	jobsModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	resumesModel "github.com/andreypavlenko/jobber/modules/resumes/model"
	"github.com/andreypavlenko/jobber/modules/tailoring/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TailoringService implements the Tailoring Pipeline (spec §4.4): customize
// the CV and generate a cover letter concurrently, then score fit against
// the customized output.
type TailoringService struct {
	llm llm.Gateway
	log *logger.Logger
}

func NewTailoringService(gateway llm.Gateway, log *logger.Logger) *TailoringService {
	return &TailoringService{llm: gateway, log: log}
}

// Run executes steps 1 and 2 concurrently and step 3 on step 1's output, as
// spec §4.4 requires.
func (s *TailoringService) Run(ctx context.Context, cv *resumesModel.ParsedCV, job *jobsModel.Job, tone model.Tone) (*model.PipelineResult, error) {
	var customized *model.CustomizedCV
	var coverLetter *model.CoverLetter

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		customized, err = s.customizeCV(gctx, cv, job)
		return err
	})
	group.Go(func() error {
		var err error
		coverLetter, err = s.generateCoverLetter(gctx, cv, job, tone)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	score := fitScore(customized.Skills, job.SkillsRequired)

	return &model.PipelineResult{CV: customized, CoverLetter: coverLetter, FitScore: score}, nil
}

var customizeCVSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"full_name": map[string]any{"type": "string"},
		"email":     map[string]any{"type": "string"},
		"phone":     map[string]any{"type": "string"},
		"summary":   map[string]any{"type": "string"},
		"skills":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"ats_keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"experience": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":           map[string]any{"type": "string"},
					"company":         map[string]any{"type": "string"},
					"start_date":      map[string]any{"type": "string"},
					"end_date":        map[string]any{"type": "string"},
					"description":     map[string]any{"type": "string"},
					"relevance_score": map[string]any{"type": "number"},
				},
				"required": []string{"title", "company", "description", "relevance_score"},
			},
		},
		"education": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"institution": map[string]any{"type": "string"},
					"degree":      map[string]any{"type": "string"},
					"field":       map[string]any{"type": "string"},
					"end_date":    map[string]any{"type": "string"},
				},
				"required": []string{"institution"},
			},
		},
	},
	"required": []string{"summary", "skills", "experience", "ats_keywords"},
}

// customizeCV asks the model to reorder experience, emphasize matching
// skills, and inject ATS keywords without fabricating anything; a
// malformed response falls back to the original CV untouched (spec §4.4
// step 1).
func (s *TailoringService) customizeCV(ctx context.Context, cv *resumesModel.ParsedCV, job *jobsModel.Job) (*model.CustomizedCV, error) {
	req := llm.ChatRequest{
		System: "You tailor a candidate's CV to a specific job posting. Reorder and emphasize existing experience, " +
			"inject relevant ATS keywords the candidate's background supports, and never invent experience, " +
			"skills, or credentials the CV does not contain. Respond only via the provided schema.",
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("CV:\n%s\n\nJob title: %s\nDescription: %s\nRequired skills: %v",
				cv.RawText, job.Title, job.Description, job.SkillsRequired)},
		},
		Temperature: 0.3,
		MaxTokens:   2048,
		Schema:      customizeCVSchema,
		Tag:         "tailoring.cv",
	}

	raw, err := s.llm.Chat(ctx, req)
	if err != nil {
		return fallbackCV(cv), nil
	}

	var customized model.CustomizedCV
	if err := json.Unmarshal([]byte(raw), &customized); err != nil {
		s.log.Warn("tailoring: malformed customize-cv output, falling back to original", zap.Error(err))
		return fallbackCV(cv), nil
	}

	return &customized, nil
}

func fallbackCV(cv *resumesModel.ParsedCV) *model.CustomizedCV {
	experience := make([]model.CustomizedExperience, len(cv.Experience))
	for i, e := range cv.Experience {
		experience[i] = model.CustomizedExperience{
			Title:       e.Title,
			Company:     e.Company,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
			Description: e.Description,
		}
	}
	education := make([]model.CustomizedEducation, len(cv.Education))
	for i, e := range cv.Education {
		education[i] = model.CustomizedEducation{
			Institution: e.Institution,
			Degree:      e.Degree,
			Field:       e.Field,
			EndDate:     e.EndDate,
		}
	}
	return &model.CustomizedCV{
		FullName:   cv.FullName,
		Email:      cv.Email,
		Phone:      cv.Phone,
		Summary:    cv.Summary,
		Skills:     cv.Skills,
		Experience: experience,
		Education:  education,
	}
}

var coverLetterSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"header":     map[string]any{"type": "string"},
		"paragraphs": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"full_text":  map[string]any{"type": "string"},
	},
	"required": []string{"paragraphs", "full_text"},
}

// generateCoverLetter asks for a 250-350 word, tone-parameterized letter
// with a non-templated opening hook and a confident closing call-to-action
// (spec §4.4 step 2).
func (s *TailoringService) generateCoverLetter(ctx context.Context, cv *resumesModel.ParsedCV, job *jobsModel.Job, tone model.Tone) (*model.CoverLetter, error) {
	if tone == "" {
		tone = model.ToneProfessional
	}

	req := llm.ChatRequest{
		System: fmt.Sprintf("You write a %s-toned cover letter, 250-350 words, opening with a specific, "+
			"non-templated hook (not \"I am writing to apply for\") and closing with a confident call-to-action. "+
			"Respond only via the provided schema.", tone),
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("CV:\n%s\n\nJob title: %s at %s\nDescription: %s",
				cv.RawText, job.Title, companyOrBlank(job), job.Description)},
		},
		Temperature: 0.7,
		MaxTokens:   1024,
		Schema:      coverLetterSchema,
		Tag:         "tailoring.cover_letter",
	}

	raw, err := s.llm.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	var letter model.CoverLetter
	if err := json.Unmarshal([]byte(raw), &letter); err != nil {
		return nil, fmt.Errorf("tailoring: malformed cover letter output: %w", err)
	}

	return &letter, nil
}

func companyOrBlank(job *jobsModel.Job) string {
	if job.CompanyID != nil {
		return "the hiring company"
	}
	return ""
}
