package service

import (
	"regexp"
	"strings"

	"github.com/andreypavlenko/jobber/modules/classifier/model"
)

var wordSplitter = regexp.MustCompile(`\s+`)

// classifyDeterministic normalizes subject+body, scores every category's
// keyword dictionary against it, and returns the top-scoring category with
// its keyword density as confidence (clipped to [0,1] per the glossary's
// "classifier keyword density" definition).
func classifyDeterministic(subject, body string) (model.Category, float64, []string) {
	normalized := strings.ToLower(subject + " " + body)
	tokenCount := len(wordSplitter.Split(strings.TrimSpace(normalized), -1))
	if tokenCount == 0 {
		tokenCount = 1
	}

	bestCategory := model.CategoryUnknown
	bestScore := 0.0
	var bestMatches []string

	for category, patterns := range keywordDictionary {
		score := 0.0
		var matched []string
		for _, p := range patterns {
			if strings.Contains(normalized, p.keyword) {
				score += p.weight
				matched = append(matched, p.keyword)
			}
		}
		if score == 0 {
			continue
		}
		density := score / float64(tokenCount)
		if density > 1 {
			density = 1
		}
		if density > bestScore {
			bestScore = density
			bestCategory = category
			bestMatches = matched
		}
	}

	return bestCategory, bestScore, bestMatches
}

var (
	datePattern = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s*\d{0,2}(?:st|nd|rd|th)?\b`)
	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s?(am|pm)\b`)
)

// extractInfo pulls candidate date/time mentions out of the body using the
// same un-fancy regex-scrape style as the mail gateway's HTML stripper;
// there is no NLP/date-parsing library in the pack, so this is a best-effort
// slot extractor, not a guarantee.
func extractInfo(body string) model.ExtractedInfo {
	info := model.ExtractedInfo{}
	for _, m := range datePattern.FindAllString(body, 5) {
		info.Dates = append(info.Dates, strings.TrimSpace(m))
	}
	for _, m := range timePattern.FindAllString(body, 5) {
		info.Times = append(info.Times, strings.TrimSpace(m))
	}
	return info
}
