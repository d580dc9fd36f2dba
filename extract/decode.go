package extract

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decodeBasicInfo maps a decoded basic-info object onto BasicInfo. Unknown
// keys are ignored; null and absent keys are left unset. Values of the wrong
// type are dropped with a problem message.
func decodeBasicInfo(obj map[string]any) (BasicInfo, []string) {
	var (
		info     BasicInfo
		problems []string
	)
	str := func(key string) *string {
		v, ok := obj[key]
		if !ok || v == nil {
			return nil
		}
		if s, ok := asString(v); ok {
			return &s
		}
		problems = append(problems, fmt.Sprintf("Basic info field %s has unexpected type %T", key, v))
		return nil
	}
	num := func(key string) *int {
		v, ok := obj[key]
		if !ok {
			return nil
		}
		n, err := asOptInt(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Basic info field %s is invalid: %v", key, err))
			return nil
		}
		return n
	}

	info.SubjectTitle = str("subject_title")
	info.AcademicDegree = str("academic_degree")
	info.Profession = str("profession")
	info.TotalHours = num("total_hours")
	info.Department = str("department")
	info.Faculty = str("faculty")
	info.Year = num("year")
	info.Semester = str("semester")
	return info, problems
}

// decodeList validates each element of a decoded list against schema and
// converts it with build. Elements that fail are skipped and reported.
func decodeList[T any](label string, raw any, schema *jsonschema.Schema, build func(map[string]any) (T, error)) ([]T, []string) {
	out := []T{}
	if raw == nil {
		return out, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return out, []string{fmt.Sprintf("Expected a list of %ss, got %T", label, raw)}
	}

	var problems []string
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("Skipped %s %d: expected an object, got %T", label, i+1, item))
			continue
		}
		if err := schema.Validate(obj); err != nil {
			problems = append(problems, fmt.Sprintf("Skipped %s %d: %s", label, i+1, describeValidation(err)))
			continue
		}
		v, err := build(obj)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Skipped %s %d: %v", label, i+1, err))
			continue
		}
		out = append(out, v)
	}
	return out, problems
}

func buildLectureTheme(obj map[string]any) (LectureTheme, error) {
	order, err := asInt(obj["order"])
	if err != nil {
		return LectureTheme{}, fmt.Errorf("order: %w", err)
	}
	hours, err := asFloat(obj["hours"])
	if err != nil {
		return LectureTheme{}, fmt.Errorf("hours: %w", err)
	}
	return LectureTheme{
		Title:       obj["title"].(string),
		Order:       order,
		Hours:       hours,
		Description: asOptString(obj["description"]),
	}, nil
}

func buildLabExample(obj map[string]any) (LabExample, error) {
	hours, err := asOptFloat(obj["estimated_hours"])
	if err != nil {
		return LabExample{}, fmt.Errorf("estimated_hours: %w", err)
	}
	return LabExample{
		Title:          obj["title"].(string),
		Description:    obj["description"].(string),
		ThemeRelation:  asOptString(obj["theme_relation"]),
		EstimatedHours: hours,
	}, nil
}

func buildLiteratureReference(obj map[string]any) (LiteratureReference, error) {
	year, err := asOptInt(obj["year"])
	if err != nil {
		return LiteratureReference{}, fmt.Errorf("year: %w", err)
	}
	ref := LiteratureReference{
		Authors:    obj["authors"].(string),
		Title:      obj["title"].(string),
		Year:       year,
		Pages:      asOptString(obj["pages"]),
		Publisher:  asOptString(obj["publisher"]),
		ISBN:       asOptString(obj["isbn"]),
		KPFUBookID: asOptString(obj["kpfu_book_id"]),
	}
	if v, ok := obj["kpfu_available"].(bool); ok {
		ref.KPFUAvailable = v
	}
	return ref, nil
}
