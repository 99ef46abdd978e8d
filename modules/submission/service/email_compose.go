package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/andreypavlenko/jobber/internal/platform/llm"
	jobsModel "github.com/andreypavlenko/jobber/modules/jobs/model"
	"github.com/andreypavlenko/jobber/modules/submission/model"
)

// substantialCoverLetterLen is the threshold above which a provided cover
// letter is used verbatim instead of composing a fresh mini-cover-letter.
const substantialCoverLetterLen = 150

func composeSubject(job *jobsModel.Job, companyName string) string {
	if companyName == "" {
		companyName = "your company"
	}
	return fmt.Sprintf("Application for %s at %s", job.Title, companyName)
}

// composeBody uses the provided cover letter text if substantial, otherwise
// asks the LLM for a short application email; if that fails too it falls
// back to a fixed template so the email path never blocks on the model.
func (s *SubmissionService) composeBody(ctx context.Context, job *jobsModel.Job, companyName string, form model.FormData, coverLetter string) string {
	if len(strings.TrimSpace(coverLetter)) > substantialCoverLetterLen {
		return coverLetter
	}

	if body, err := s.composeBodyWithLLM(ctx, job, companyName, form); err == nil && body != "" {
		return body
	}

	return composeBodyFromTemplate(job, companyName, form)
}

func (s *SubmissionService) composeBodyWithLLM(ctx context.Context, job *jobsModel.Job, companyName string, form model.FormData) (string, error) {
	req := llm.ChatRequest{
		System: "You write a brief, professional job application email body (not a subject line), " +
			"3-4 short paragraphs, no markdown formatting, signed with the candidate's name.",
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(
				"Candidate name: %s\nJob title: %s\nCompany: %s\nJob description: %s",
				form.FullName(), job.Title, companyName, job.Description)},
		},
		Temperature: 0.5,
		MaxTokens:   512,
		Tag:         "submission.email_body",
	}
	return s.llm.Chat(ctx, req)
}

func composeBodyFromTemplate(job *jobsModel.Job, companyName string, form model.FormData) string {
	if companyName == "" {
		companyName = "your company"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear Hiring Manager,\n\n")
	fmt.Fprintf(&b, "I am writing to express my interest in the %s position at %s. ", job.Title, companyName)
	b.WriteString("I believe my background and experience make me a strong fit for this role, and I would welcome ")
	b.WriteString("the opportunity to discuss how I can contribute to your team.\n\n")
	b.WriteString("Thank you for your time and consideration. I have attached my CV for your review.\n\n")
	fmt.Fprintf(&b, "Best regards,\n%s", form.FullName())
	return b.String()
}
