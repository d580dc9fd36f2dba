package extract

import "fmt"

// Rubric weights; the total is 10 points.
const (
	maxCompletenessPoints = 10.0
	themePoints           = 3.0
	themeFullCount        = 5.0
	literaturePoints      = 2.0
	literatureFullCount   = 5.0
	labPoints             = 1.0
	labFullCount          = 3.0

	// expectedMinimum is the collection size below which a warning is raised.
	expectedMinimum = 3

	// LowConfidence is the confidence below which results need review.
	LowConfidence = 0.7
)

// Completeness scores how much of a usable curriculum record was found, in
// [0, 1]. It is independent of ExtractionConfidence, which measures how
// many fields had to be flagged or corrected.
func Completeness(r *Result) float64 {
	score := 0.0
	if r.SubjectTitle != "" {
		score++
	}
	if r.Profession != "" {
		score++
	}
	if r.TotalHours > 0 {
		score++
	}
	if r.AcademicDegree.Valid() {
		score++
	}
	score += min(themePoints, float64(len(r.LectureThemes))/themeFullCount*themePoints)
	score += min(literaturePoints, float64(len(r.LiteratureReferences))/literatureFullCount*literaturePoints)
	score += min(labPoints, float64(len(r.LabExamples))/labFullCount*labPoints)
	return min(1.0, score/maxCompletenessPoints)
}

// CompletenessWarnings lists what is missing or thin in r. These are
// data-quality advisories, separate from the correctness warnings Validate
// records in ExtractionErrors.
func CompletenessWarnings(r *Result) []string {
	var warnings []string
	if r.SubjectTitle == "" {
		warnings = append(warnings, "Subject title not found")
	}
	if r.Profession == "" {
		warnings = append(warnings, "Profession/direction not found")
	}
	if r.TotalHours <= 0 {
		warnings = append(warnings, "Total hours not found or invalid")
	}

	switch n := len(r.LectureThemes); {
	case n == 0:
		warnings = append(warnings, "No lecture themes found")
	case n < expectedMinimum:
		warnings = append(warnings, fmt.Sprintf("Only %d lecture themes found (expected 3+)", n))
	}
	switch n := len(r.LiteratureReferences); {
	case n == 0:
		warnings = append(warnings, "No literature references found")
	case n < expectedMinimum:
		warnings = append(warnings, fmt.Sprintf("Only %d literature references found (expected 3+)", n))
	}

	if c := r.ExtractionConfidence; c != nil && *c < LowConfidence {
		warnings = append(warnings, fmt.Sprintf("Low extraction confidence: %.2f", *c))
	}
	return warnings
}
