package model

// Tone is the closed set of cover-letter tones a caller may request.
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneEnthusiastic  Tone = "enthusiastic"
	ToneConversational Tone = "conversational"
	ToneFormal        Tone = "formal"
)

// CustomizedExperience mirrors a CV's experience entry plus the LLM's
// relevance judgement for the target job.
type CustomizedExperience struct {
	Title           string  `json:"title"`
	Company         string  `json:"company"`
	StartDate       string  `json:"start_date,omitempty"`
	EndDate         string  `json:"end_date,omitempty"`
	Description     string  `json:"description"`
	RelevanceScore  float64 `json:"relevance_score"`
}

// CustomizedCV is step 1's output: the CV schema, reordered/emphasized for
// one job, plus the ATS keywords the model worked in.
type CustomizedCV struct {
	FullName    string                  `json:"full_name,omitempty"`
	Email       string                  `json:"email,omitempty"`
	Phone       string                  `json:"phone,omitempty"`
	Summary     string                  `json:"summary"`
	Skills      []string                `json:"skills"`
	Experience  []CustomizedExperience  `json:"experience"`
	Education   []CustomizedEducation   `json:"education,omitempty"`
	ATSKeywords []string                `json:"ats_keywords"`
}

// CustomizedEducation is one education entry of the customized CV. On the
// model path it is what the model returned; on the fallback path it is
// copied unchanged from the parsed CV.
type CustomizedEducation struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// CoverLetter is step 2's output.
type CoverLetter struct {
	Header     string   `json:"header"`
	Paragraphs []string `json:"paragraphs"`
	FullText   string   `json:"full_text"`
}

// PipelineResult bundles the three Tailoring Pipeline outputs (spec §4.4).
type PipelineResult struct {
	CV          *CustomizedCV
	CoverLetter *CoverLetter
	FitScore    float64
}
