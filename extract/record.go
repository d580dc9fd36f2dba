package extract

// ToPlainRecord converts r into nested maps and slices with snake_case keys,
// ready for JSON encoding or persistence. Absent optional values are nil.
func ToPlainRecord(r *Result) map[string]any {
	themes := make([]any, 0, len(r.LectureThemes))
	for _, t := range r.LectureThemes {
		themes = append(themes, map[string]any{
			"title":       t.Title,
			"order":       t.Order,
			"hours":       t.Hours,
			"description": optional(t.Description),
		})
	}

	labs := make([]any, 0, len(r.LabExamples))
	for _, l := range r.LabExamples {
		labs = append(labs, map[string]any{
			"title":           l.Title,
			"description":     l.Description,
			"theme_relation":  optional(l.ThemeRelation),
			"estimated_hours": optional(l.EstimatedHours),
		})
	}

	refs := make([]any, 0, len(r.LiteratureReferences))
	for _, ref := range r.LiteratureReferences {
		refs = append(refs, map[string]any{
			"authors":        ref.Authors,
			"title":          ref.Title,
			"year":           optional(ref.Year),
			"pages":          optional(ref.Pages),
			"publisher":      optional(ref.Publisher),
			"isbn":           optional(ref.ISBN),
			"kpfu_available": ref.KPFUAvailable,
			"kpfu_book_id":   optional(ref.KPFUBookID),
		})
	}

	errs := make([]any, 0, len(r.ExtractionErrors))
	for _, e := range r.ExtractionErrors {
		errs = append(errs, e)
	}

	return map[string]any{
		"subject_title":         r.SubjectTitle,
		"academic_degree":       string(r.AcademicDegree),
		"profession":            r.Profession,
		"total_hours":           r.TotalHours,
		"department":            optional(r.Department),
		"faculty":               optional(r.Faculty),
		"year":                  optional(r.Year),
		"semester":              optional(r.Semester),
		"lecture_themes":        themes,
		"lab_examples":          labs,
		"literature_references": refs,
		"extraction_confidence": optional(r.ExtractionConfidence),
		"extraction_errors":     errs,
	}
}

// optional dereferences p, mapping nil to an untyped nil so that JSON
// encoders emit null.
func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
