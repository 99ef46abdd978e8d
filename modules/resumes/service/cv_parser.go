package service

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/andreypavlenko/jobber/modules/resumes/model"
	"github.com/ledongthuc/pdf"
)

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	locationPattern = regexp.MustCompile(`[A-Z][a-zA-Z.]+(?: [A-Z][a-zA-Z.]+)*,\s*[A-Z]{2}\b`)
)

// parsePDF extracts plain text from a PDF and produces a best-effort
// structured ParsedCV. Section detection is heuristic (looking for common
// header lines) rather than a real layout parser, since the pack carries
// no PDF layout-analysis library beyond ledongthuc/pdf's plain text reader.
func parsePDF(data []byte) (*model.ParsedCV, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	raw := builder.String()
	cv := &model.ParsedCV{RawText: raw}

	if m := emailPattern.FindString(raw); m != "" {
		cv.Email = m
	}
	if m := phonePattern.FindString(raw); m != "" {
		cv.Phone = strings.TrimSpace(m)
	}
	cv.Skills = extractSection(raw, "skills")
	cv.Summary = firstNonEmptyLine(raw)
	if m := locationPattern.FindString(raw); m != "" {
		cv.Location = m
	}

	return cv, nil
}

// extractSection pulls comma/newline-separated items out of a loosely
// delimited "Skills" section, stopping at the next all-caps header line.
func extractSection(raw, header string) []string {
	lines := strings.Split(raw, "\n")
	var collecting bool
	var items []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if lower == header || strings.HasPrefix(lower, header+":") {
			collecting = true
			rest := trimmed
			if idx := strings.Index(rest, ":"); idx >= 0 {
				items = append(items, splitItems(rest[idx+1:])...)
			}
			continue
		}
		if collecting {
			if trimmed == "" || isLikelyHeader(trimmed) {
				break
			}
			items = append(items, splitItems(trimmed)...)
		}
	}
	return items
}

func splitItems(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' || r == '•' }) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isLikelyHeader(line string) bool {
	return line == strings.ToUpper(line) && len(line) > 2 && len(line) < 40
}

func firstNonEmptyLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
