package extract

import (
	"fmt"
	"slices"
	"strings"
)

const (
	minConfidence     = 0.1
	confidencePenalty = 0.1
)

// Validate checks required fields, corrects values that have a safe default
// and sets ExtractionConfidence from the number of issues found in this pass.
// Warnings are appended to ExtractionErrors unless an identical one is
// already there, so running Validate again on its own output changes
// neither the corrected fields nor the recorded warnings.
func Validate(r *Result) *Result {
	var warnings []string

	if strings.TrimSpace(r.SubjectTitle) == "" {
		warnings = append(warnings, "Subject title is required")
	}
	if strings.TrimSpace(r.Profession) == "" {
		warnings = append(warnings, "Profession/direction is required")
	}
	if r.TotalHours <= 0 {
		warnings = append(warnings, "Total hours must be positive")
	}
	if !r.AcademicDegree.Valid() {
		r.AcademicDegree = DegreeBachelor
		warnings = append(warnings, "Invalid academic degree, defaulted to 'bachelor'")
	}
	for i := range r.LectureThemes {
		theme := &r.LectureThemes[i]
		if strings.TrimSpace(theme.Title) == "" {
			warnings = append(warnings, fmt.Sprintf("Lecture theme %d has empty title", i+1))
		}
		if theme.Hours <= 0 {
			theme.Hours = DefaultThemeHours
			warnings = append(warnings, fmt.Sprintf("Lecture theme %d hours corrected to 2.0", i+1))
		}
	}

	confidence := max(minConfidence, 1.0-confidencePenalty*float64(len(warnings)))
	r.ExtractionConfidence = &confidence

	for _, w := range warnings {
		if !slices.Contains(r.ExtractionErrors, w) {
			r.ExtractionErrors = append(r.ExtractionErrors, w)
		}
	}
	return r
}
