package service

import "strings"

// fitScore computes the Jaccard-similarity fit score described in spec
// §4.4 step 3: similarity of normalized skill sets, bucketed so an empty
// requirement list or a total mismatch still return a sane default rather
// than 0 or an undefined division.
func fitScore(cvSkills, requiredSkills []string) float64 {
	required := normalizeSet(requiredSkills)
	if len(required) == 0 {
		return 0.75
	}

	cv := normalizeSet(cvSkills)

	intersection := 0
	union := map[string]struct{}{}
	for s := range cv {
		union[s] = struct{}{}
	}
	for s := range required {
		union[s] = struct{}{}
		if _, ok := cv[s]; ok {
			intersection++
		}
	}

	if intersection == 0 {
		return 0.5
	}

	score := float64(intersection) / float64(len(union))
	score += 0.2
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func normalizeSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}
