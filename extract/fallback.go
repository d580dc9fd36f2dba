package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Pattern extraction for Russian curriculum documents. It favours recall
// over precision: results are noisy and left for validation and
// completeness scoring to penalise.

var (
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)дисциплин[аы]?\s*[:\-]?\s*[«"]?([^«»"\n]+)[«"]?`),
		regexp.MustCompile(`(?i)предмет\s*[:\-]?\s*[«"]?([^«»"\n]+)[«"]?`),
		regexp.MustCompile(`(?i)курс\s*[:\-]?\s*[«"]?([^«»"\n]+)[«"]?`),
	}

	professionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)направлени[ею]\s+подготовки\s*[:\-]?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)специальность\s*[:\-]?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)профиль\s*[:\-]?\s*([^\n]+)`),
	}

	totalHoursPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)общ[ая]я\s+трудоемкость\s*[:\-]?\s*(\d+)\s*час`),
		regexp.MustCompile(`(?i)всего\s+часов\s*[:\-]?\s*(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*час[ао]в?\s+всего`),
	}

	masterMarkers = []string{"магистр", "master"}
	phdMarkers    = []string{"аспирант", "phd", "докторант"}

	// Only the last pattern captures an hour count.
	lecturePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)тема\s+(\d+)\.?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)лекция\s+(\d+)\.?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)(\d+)\.?\s*([^\n]+?)\s*\((\d+)\s*час`),
	}

	labPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)лабораторн[ая]я\s+работа\s+(\d+)\.?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)лр\s+(\d+)\.?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)практическ[ая]я\s+работа\s+(\d+)\.?\s*([^\n]+)`),
	}

	literatureHeading = regexp.MustCompile(`(?i)(список\s+литературы|библиография|литература)\s*:?\s*`)
	blankLine         = regexp.MustCompile(`\n\s*\n`)
	referenceLine     = regexp.MustCompile(`^(\d+\.?\s*)?([^.]+)\.?\s*([^/]+)`)
	yearPattern       = regexp.MustCompile(`(\d{4})`)
)

// spaceFolder maps the no-break spaces common in DOCX and PDF text to a plain
// space; RE2's \s matches ASCII whitespace only.
var spaceFolder = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\u2007", " ")

// minReferenceLength is the shortest line considered a literature entry.
const minReferenceLength = 20

// FallbackBasicInfo finds subject title, degree, profession and total hours.
// The four fields are always set; defaults are empty strings, bachelor and 0.
func FallbackBasicInfo(text string) BasicInfo {
	text = spaceFolder.Replace(text)
	info := BasicInfo{
		SubjectTitle:   ptr(firstSubmatch(titlePatterns, text)),
		AcademicDegree: ptr(string(detectDegree(text))),
		Profession:     ptr(firstSubmatch(professionPatterns, text)),
		TotalHours:     ptr(0),
	}
	for _, re := range totalHoursPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				info.TotalHours = ptr(n)
			}
			break
		}
	}
	return info
}

func firstSubmatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func detectDegree(text string) Degree {
	lower := strings.ToLower(text)
	for _, w := range masterMarkers {
		if strings.Contains(lower, w) {
			return DegreeMaster
		}
	}
	for _, w := range phdMarkers {
		if strings.Contains(lower, w) {
			return DegreePhD
		}
	}
	return DegreeBachelor
}

// FallbackLectureThemes collects every match of every lecture pattern in
// pattern order. Matches from different patterns are not deduplicated.
func FallbackLectureThemes(text string) []LectureTheme {
	text = spaceFolder.Replace(text)
	themes := []LectureTheme{}
	for _, re := range lecturePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			order, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			hours := DefaultThemeHours
			if len(m) > 3 {
				if h, err := strconv.ParseFloat(m[3], 64); err == nil {
					hours = h
				}
			}
			themes = append(themes, LectureTheme{
				Title: strings.TrimSpace(m[2]),
				Order: order,
				Hours: hours,
			})
		}
	}
	return themes
}

// FallbackLabExamples finds numbered laboratory and practical works. The
// description repeats the title and hours default to 2.
func FallbackLabExamples(text string) []LabExample {
	text = spaceFolder.Replace(text)
	labs := []LabExample{}
	for _, re := range labPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			title := strings.TrimSpace(m[2])
			labs = append(labs, LabExample{
				Title:          title,
				Description:    title,
				EstimatedHours: ptr(DefaultThemeHours),
			})
		}
	}
	return labs
}

// FallbackLiterature reads the literature section, which runs from its
// heading to the first blank line. Each entry carries the text before the
// first period as authors and a year when the line holds one.
func FallbackLiterature(text string) []LiteratureReference {
	text = spaceFolder.Replace(text)
	refs := []LiteratureReference{}

	loc := literatureHeading.FindStringIndex(text)
	if loc == nil {
		return refs
	}
	section := text[loc[1]:]
	if end := blankLine.FindStringIndex(section); end != nil {
		section = section[:end[0]]
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= minReferenceLength {
			continue
		}
		m := referenceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		// The author segment stops at the first period, so the title stays
		// empty; the remainder of the line is bibliographic detail.
		ref := LiteratureReference{Authors: strings.TrimSpace(m[2])}
		if y := yearPattern.FindString(line); y != "" {
			if n, err := strconv.Atoi(y); err == nil {
				ref.Year = ptr(n)
			}
		}
		refs = append(refs, ref)
	}
	return refs
}
