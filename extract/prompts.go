package extract

import "strings"

const basicInfoPrompt = `
Извлеки основную информацию из РПД документа. Верни результат в JSON формате:

{
    "subject_title": "название дисциплины",
    "academic_degree": "bachelor/master/phd",
    "profession": "направление подготовки",
    "total_hours": число_часов,
    "department": "кафедра (если указана)",
    "faculty": "факультет (если указан)",
    "year": год_составления,
    "semester": "семестр (если указан)"
}

Текст РПД:
{text}

JSON:`

const lectureThemesPrompt = `
Извлеки темы лекций из РПД документа. Верни результат в JSON формате:

{
    "lecture_themes": [
        {
            "title": "название темы",
            "order": порядковый_номер,
            "hours": количество_часов,
            "description": "описание (если есть)"
        }
    ]
}

Текст РПД:
{text}

JSON:`

const labExamplesPrompt = `
Извлеки примеры лабораторных работ из РПД документа. Верни результат в JSON формате:

{
    "lab_examples": [
        {
            "title": "название лабораторной работы",
            "description": "описание работы",
            "theme_relation": "связанная тема лекции (если указана)",
            "estimated_hours": количество_часов
        }
    ]
}

Текст РПД:
{text}

JSON:`

const literaturePrompt = `
Извлеки список литературы из РПД документа. Верни результат в JSON формате:

{
    "literature_references": [
        {
            "authors": "авторы",
            "title": "название книги/статьи",
            "year": год_издания,
            "pages": "страницы (если указаны)",
            "publisher": "издательство (если указано)",
            "isbn": "ISBN (если указан)"
        }
    ]
}

Текст РПД:
{text}

JSON:`

// renderPrompt fills the template with text cut to budget characters.
func renderPrompt(template, text string, budget int) string {
	return strings.Replace(template, "{text}", truncateRunes(text, budget), 1)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
