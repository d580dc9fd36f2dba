// Package extract pulls structured curriculum data (basic information,
// lecture themes, lab work, literature) out of parsed document text, using a
// text completion service when one is configured and regular-expression
// heuristics otherwise.
package extract

// Degree is the academic degree a curriculum targets.
type Degree string

const (
	DegreeBachelor Degree = "bachelor"
	DegreeMaster   Degree = "master"
	DegreePhD      Degree = "phd"
)

// Valid reports whether d is one of the known degrees.
func (d Degree) Valid() bool {
	switch d {
	case DegreeBachelor, DegreeMaster, DegreePhD:
		return true
	}
	return false
}

// DefaultThemeHours replaces missing or non-positive lecture hours.
const DefaultThemeHours = 2.0

type LectureTheme struct {
	Title       string  `json:"title"`
	Order       int     `json:"order"`
	Hours       float64 `json:"hours"`
	Description *string `json:"description"`
}

type LabExample struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ThemeRelation  *string  `json:"theme_relation"`
	EstimatedHours *float64 `json:"estimated_hours"`
}

// LiteratureReference is one entry of the reading list. KPFUAvailable and
// KPFUBookID are filled in later by library catalog matching.
type LiteratureReference struct {
	Authors       string  `json:"authors"`
	Title         string  `json:"title"`
	Year          *int    `json:"year"`
	Pages         *string `json:"pages"`
	Publisher     *string `json:"publisher"`
	ISBN          *string `json:"isbn"`
	KPFUAvailable bool    `json:"kpfu_available"`
	KPFUBookID    *string `json:"kpfu_book_id"`
}

// Result is everything extracted from one document.
//
// ExtractionConfidence is nil until Validate has run. ExtractionErrors only
// grows during an extraction.
type Result struct {
	SubjectTitle   string `json:"subject_title"`
	AcademicDegree Degree `json:"academic_degree"`
	Profession     string `json:"profession"`
	TotalHours     int    `json:"total_hours"`

	Department *string `json:"department"`
	Faculty    *string `json:"faculty"`
	Year       *int    `json:"year"`
	Semester   *string `json:"semester"`

	LectureThemes        []LectureTheme        `json:"lecture_themes"`
	LabExamples          []LabExample          `json:"lab_examples"`
	LiteratureReferences []LiteratureReference `json:"literature_references"`

	ExtractionConfidence *float64 `json:"extraction_confidence"`
	ExtractionErrors     []string `json:"extraction_errors"`
}

// NewResult returns a result holding the defaults an extraction starts from.
func NewResult() *Result {
	return &Result{
		AcademicDegree:       DegreeBachelor,
		LectureThemes:        []LectureTheme{},
		LabExamples:          []LabExample{},
		LiteratureReferences: []LiteratureReference{},
		ExtractionErrors:     []string{},
	}
}

// BasicInfo carries the top-level fields found by one extraction path.
// Nil fields were not found and leave the result untouched on merge.
type BasicInfo struct {
	SubjectTitle   *string
	AcademicDegree *string
	Profession     *string
	TotalHours     *int
	Department     *string
	Faculty        *string
	Year           *int
	Semester       *string
}

func (b BasicInfo) apply(r *Result) {
	if b.SubjectTitle != nil {
		r.SubjectTitle = *b.SubjectTitle
	}
	if b.AcademicDegree != nil {
		r.AcademicDegree = Degree(*b.AcademicDegree)
	}
	if b.Profession != nil {
		r.Profession = *b.Profession
	}
	if b.TotalHours != nil {
		r.TotalHours = *b.TotalHours
	}
	if b.Department != nil {
		r.Department = b.Department
	}
	if b.Faculty != nil {
		r.Faculty = b.Faculty
	}
	if b.Year != nil {
		r.Year = b.Year
	}
	if b.Semester != nil {
		r.Semester = b.Semester
	}
}

func ptr[T any](v T) *T { return &v }
