package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andreypavlenko/jobber/modules/tailoring/model"
	"github.com/gomutex/godocx"
)

// ExportCVDocx renders a customized CV into a downloadable .docx, section
// by section in resume order: summary, skills, experience, education.
func ExportCVDocx(cv *model.CustomizedCV) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("tailoring: failed to create document: %w", err)
	}

	if cv.FullName != "" {
		doc.AddHeading(cv.FullName, 1)
	}
	contact := cv.Email
	if cv.Phone != "" {
		if contact != "" {
			contact += " | "
		}
		contact += cv.Phone
	}
	if contact != "" {
		doc.AddParagraph(contact)
	}

	if cv.Summary != "" {
		doc.AddHeading("Summary", 2)
		doc.AddParagraph(cv.Summary)
	}

	if len(cv.Skills) > 0 {
		doc.AddHeading("Skills", 2)
		doc.AddParagraph(strings.Join(cv.Skills, ", "))
	}

	if len(cv.Experience) > 0 {
		doc.AddHeading("Experience", 2)
		for _, e := range cv.Experience {
			title := e.Title
			if e.Company != "" {
				title += " — " + e.Company
			}
			if e.StartDate != "" || e.EndDate != "" {
				title += fmt.Sprintf(" (%s - %s)", e.StartDate, e.EndDate)
			}
			doc.AddHeading(title, 3)
			if e.Description != "" {
				doc.AddParagraph(e.Description)
			}
		}
	}

	if len(cv.Education) > 0 {
		doc.AddHeading("Education", 2)
		for _, e := range cv.Education {
			line := e.Institution
			if e.Degree != "" {
				line += " — " + e.Degree
			}
			if e.Field != "" {
				line += " in " + e.Field
			}
			doc.AddParagraph(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("tailoring: failed to render document: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportCoverLetterDocx renders a cover letter's paragraphs into a
// downloadable .docx.
func ExportCoverLetterDocx(letter *model.CoverLetter) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("tailoring: failed to create document: %w", err)
	}

	if letter.Header != "" {
		doc.AddParagraph(letter.Header)
	}
	for _, p := range letter.Paragraphs {
		doc.AddParagraph(p)
	}

	var buf bytes.Buffer
	if err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("tailoring: failed to render document: %w", err)
	}
	return buf.Bytes(), nil
}
