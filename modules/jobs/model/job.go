package model

import "time"

// EmploymentType is the closed set of contract shapes a posting can be.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// ArrangementType is where the work happens.
type ArrangementType string

const (
	ArrangementOnsite ArrangementType = "onsite"
	ArrangementHybrid ArrangementType = "hybrid"
	ArrangementRemote ArrangementType = "remote"
)

// SeniorityLevel is the closed set of seniority bands.
type SeniorityLevel string

const (
	LevelIntern    SeniorityLevel = "intern"
	LevelJunior    SeniorityLevel = "junior"
	LevelMid       SeniorityLevel = "mid"
	LevelSenior    SeniorityLevel = "senior"
	LevelStaff     SeniorityLevel = "staff"
	LevelPrincipal SeniorityLevel = "principal"
)

// SalaryRange is an optional posted compensation band.
type SalaryRange struct {
	Min      int
	Max      int
	Currency string
}

// Requirement is one ordered, prioritized posting requirement, used by the
// tailoring pipeline to decide what to foreground in a customized CV.
type Requirement struct {
	Text     string
	Priority int // lower is more important
}

// Job represents a job posting
type Job struct {
	ID         string
	UserID     string
	CompanyID  *string
	Title      string
	Source     *string
	URL        *string
	Notes      *string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Description       string
	Salary            *SalaryRange
	SkillsRequired    []string
	SkillsPreferred   []string
	Requirements      []Requirement
	ApplicationEmail  *string
	ApplicationURL    *string
	Employment        EmploymentType
	Arrangement       ArrangementType
	Level             SeniorityLevel
	PostedAt          *time.Time
}

// Submittable reports whether there's enough on the posting for the
// submission router to act on it: a destination (email or URL) and a
// title are the minimum, everything else is enrichment.
func (j *Job) Submittable() bool {
	if j.Title == "" {
		return false
	}
	return (j.ApplicationURL != nil && *j.ApplicationURL != "") ||
		(j.ApplicationEmail != nil && *j.ApplicationEmail != "")
}

// JobDTO represents job data transfer object
type JobDTO struct {
	ID                string          `json:"id"`
	CompanyID         *string         `json:"company_id,omitempty"`
	CompanyName       *string         `json:"company_name,omitempty"`
	Title             string          `json:"title"`
	Source            *string         `json:"source,omitempty"`
	URL               *string         `json:"url,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	Status            string          `json:"status"`
	Description       string          `json:"description,omitempty"`
	Salary            *SalaryRange    `json:"salary,omitempty"`
	SkillsRequired    []string        `json:"skills_required,omitempty"`
	SkillsPreferred   []string        `json:"skills_preferred,omitempty"`
	Requirements      []Requirement   `json:"requirements,omitempty"`
	ApplicationEmail  *string         `json:"application_email,omitempty"`
	ApplicationURL    *string         `json:"application_url,omitempty"`
	Employment        EmploymentType  `json:"employment,omitempty"`
	Arrangement       ArrangementType `json:"arrangement,omitempty"`
	Level             SeniorityLevel  `json:"level,omitempty"`
	PostedAt          *time.Time      `json:"posted_at,omitempty"`
	ApplicationsCount int             `json:"applications_count"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToDTO converts Job to JobDTO
// Note: CompanyName and ApplicationsCount must be set separately by the repository
func (j *Job) ToDTO() *JobDTO {
	return &JobDTO{
		ID:                j.ID,
		CompanyID:         j.CompanyID,
		CompanyName:       nil, // Set by repository
		Title:             j.Title,
		Source:            j.Source,
		URL:               j.URL,
		Notes:             j.Notes,
		Status:            j.Status,
		Description:       j.Description,
		Salary:            j.Salary,
		SkillsRequired:    j.SkillsRequired,
		SkillsPreferred:   j.SkillsPreferred,
		Requirements:      j.Requirements,
		ApplicationEmail:  j.ApplicationEmail,
		ApplicationURL:    j.ApplicationURL,
		Employment:        j.Employment,
		Arrangement:       j.Arrangement,
		Level:             j.Level,
		PostedAt:          j.PostedAt,
		ApplicationsCount: 0, // Set by repository
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
}
