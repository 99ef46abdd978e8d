package model

import "time"

// StorageType represents the type of storage for a resume
type StorageType string

const (
	StorageTypeExternal StorageType = "external"
	StorageTypeS3       StorageType = "s3"
)

// ParsedCV is the structured extraction of an uploaded CV, produced once at
// upload time by parsing the PDF and never re-derived on every tailoring
// request — C4 reads this instead of re-parsing the source file.
type ParsedCV struct {
	FullName    string            `json:"full_name,omitempty"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Location    string            `json:"location,omitempty"`
	Skills      []string          `json:"skills,omitempty"`
	Experience  []ExperienceEntry `json:"experience,omitempty"`
	Education   []EducationEntry  `json:"education,omitempty"`
	RawText     string            `json:"raw_text,omitempty"`
}

// ExperienceEntry is one job history entry extracted from the CV.
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// EducationEntry is one degree/program entry extracted from the CV.
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// Resume represents a user's resume
type Resume struct {
	ID          string
	UserID      string
	Title       string
	FileURL     *string
	StorageType StorageType
	StorageKey  *string
	IsActive    bool
	Parsed      *ParsedCV
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResumeDTO represents resume data transfer object
type ResumeDTO struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	FileURL           *string     `json:"file_url"`
	StorageType       StorageType `json:"storage_type"`
	StorageKey        *string     `json:"storage_key,omitempty"`
	IsActive          bool        `json:"is_active"`
	ApplicationsCount int         `json:"applications_count"`
	CanDelete         bool        `json:"can_delete"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ToDTOWithCounts converts Resume to ResumeDTO with application counts
func (r *Resume) ToDTOWithCounts(applicationsCount int) *ResumeDTO {
	return &ResumeDTO{
		ID:                r.ID,
		Title:             r.Title,
		FileURL:           r.FileURL,
		StorageType:       r.StorageType,
		StorageKey:        r.StorageKey,
		IsActive:          r.IsActive,
		ApplicationsCount: applicationsCount,
		CanDelete:         applicationsCount == 0,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToDTO converts Resume to ResumeDTO (without counts)
func (r *Resume) ToDTO() *ResumeDTO {
	return &ResumeDTO{
		ID:                r.ID,
		Title:             r.Title,
		FileURL:           r.FileURL,
		StorageType:       r.StorageType,
		StorageKey:        r.StorageKey,
		IsActive:          r.IsActive,
		ApplicationsCount: 0,
		CanDelete:         true,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
