package extract

import (
	"testing"
)

func TestFallbackBasicInfo(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		title      string
		degree     Degree
		profession string
		hours      int
	}{
		{
			name:   "total hours from labour intensity",
			text:   "Общая трудоемкость: 144 часа",
			degree: DegreeBachelor,
			hours:  144,
		},
		{
			name:   "total hours from total line",
			text:   "Всего часов: 72",
			degree: DegreeBachelor,
			hours:  72,
		},
		{
			name:   "hours before total",
			text:   "108 часов всего",
			degree: DegreeBachelor,
			hours:  108,
		},
		{
			name:       "quoted title and profession",
			text:       "Дисциплина: «Физика»\nНаправление подготовки: 03.03.02 Физика\nУровень: магистратура",
			title:      "Физика",
			degree:     DegreeMaster,
			profession: "03.03.02 Физика",
		},
		{
			name:       "subject and speciality",
			text:       "Предмет - Базы данных\nСпециальность: Информатика\nдля аспирантов",
			title:      "Базы данных",
			degree:     DegreePhD,
			profession: "Информатика",
		},
		{
			name:   "english master marker",
			text:   "Master programme",
			degree: DegreeMaster,
		},
		{
			name:   "nothing found",
			text:   "Пустой документ",
			degree: DegreeBachelor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := FallbackBasicInfo(tt.text)
			if info.SubjectTitle == nil || info.AcademicDegree == nil || info.Profession == nil || info.TotalHours == nil {
				t.Fatalf("fallback left a field unset: %+v", info)
			}
			if *info.SubjectTitle != tt.title {
				t.Errorf("title = %q, want %q", *info.SubjectTitle, tt.title)
			}
			if Degree(*info.AcademicDegree) != tt.degree {
				t.Errorf("degree = %q, want %q", *info.AcademicDegree, tt.degree)
			}
			if *info.Profession != tt.profession {
				t.Errorf("profession = %q, want %q", *info.Profession, tt.profession)
			}
			if *info.TotalHours != tt.hours {
				t.Errorf("hours = %d, want %d", *info.TotalHours, tt.hours)
			}
			if info.Department != nil || info.Year != nil {
				t.Error("fallback should not set optional fields")
			}
		})
	}
}

func TestFallbackLectureThemes(t *testing.T) {
	text := "Тема 1. Введение в Python (2 часа)\nТема 2. Основы синтаксиса (4 часа)"
	themes := FallbackLectureThemes(text)

	// Two matches from the "тема N" pattern and two from the hours pattern.
	if len(themes) != 4 {
		t.Fatalf("got %d themes, want 4: %+v", len(themes), themes)
	}

	want := []LectureTheme{
		{Title: "Введение в Python (2 часа)", Order: 1, Hours: 2},
		{Title: "Основы синтаксиса (4 часа)", Order: 2, Hours: 2},
		{Title: "Введение в Python", Order: 1, Hours: 2},
		{Title: "Основы синтаксиса", Order: 2, Hours: 4},
	}
	for i, w := range want {
		got := themes[i]
		if got.Title != w.Title || got.Order != w.Order || got.Hours != w.Hours || got.Description != nil {
			t.Errorf("theme %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestFallbackLectureThemesLecturePattern(t *testing.T) {
	themes := FallbackLectureThemes("Лекция 3. Рекурсия\nлекция 4 Сортировки")
	if len(themes) != 2 {
		t.Fatalf("got %d themes: %+v", len(themes), themes)
	}
	if themes[0].Title != "Рекурсия" || themes[0].Order != 3 || themes[0].Hours != DefaultThemeHours {
		t.Errorf("theme 0 = %+v", themes[0])
	}
	if themes[1].Title != "Сортировки" || themes[1].Order != 4 {
		t.Errorf("theme 1 = %+v", themes[1])
	}
}

func TestFallbackLabExamples(t *testing.T) {
	text := "Лабораторная работа 1. Установка окружения\nЛР 2. Работа с файлами\nПрактическая работа 3. Тестирование"
	labs := FallbackLabExamples(text)
	want := []string{"Установка окружения", "Работа с файлами", "Тестирование"}
	if len(labs) != len(want) {
		t.Fatalf("got %d labs: %+v", len(labs), labs)
	}
	for i, w := range want {
		if labs[i].Title != w || labs[i].Description != w {
			t.Errorf("lab %d = %+v", i, labs[i])
		}
		if labs[i].EstimatedHours == nil || *labs[i].EstimatedHours != 2.0 {
			t.Errorf("lab %d estimated hours = %v", i, labs[i].EstimatedHours)
		}
	}
}

func TestFallbackLiterature(t *testing.T) {
	text := "Введение\n" +
		"Список литературы:\n" +
		"1. Иванов И.И. Программирование на Python. – М.: Наука, 2019. – 300 с.\n" +
		"2. Петров П.П. Алгоритмы и структуры данных. – СПб.: Питер, 2020.\n" +
		"коротко\n" +
		"Справочник программиста. Без года издания\n" +
		"\n" +
		"3. Сидоров С.С. Этот источник после пустой строки, 2021."

	refs := FallbackLiterature(text)
	if len(refs) != 3 {
		t.Fatalf("got %d refs: %+v", len(refs), refs)
	}
	if refs[0].Authors != "Иванов И" || refs[0].Title != "" {
		t.Errorf("ref 0 = %+v", refs[0])
	}
	if refs[0].Year == nil || *refs[0].Year != 2019 {
		t.Errorf("ref 0 year = %v", refs[0].Year)
	}
	if refs[1].Year == nil || *refs[1].Year != 2020 {
		t.Errorf("ref 1 year = %v", refs[1].Year)
	}
	if refs[2].Authors != "Справочник программиста" || refs[2].Year != nil {
		t.Errorf("ref 2 = %+v", refs[2])
	}
	for _, r := range refs {
		if r.KPFUAvailable {
			t.Error("fallback must not mark catalog availability")
		}
	}
}

func TestFallbackLiteratureNoSection(t *testing.T) {
	if refs := FallbackLiterature("Нет раздела источников"); len(refs) != 0 {
		t.Errorf("got %+v", refs)
	}
	if refs := FallbackLiterature("Библиография"); len(refs) != 0 {
		t.Errorf("got %+v", refs)
	}
}

func TestFallbackNoBreakSpaces(t *testing.T) {
	text := "Тема\u00a01. Введение в Python (2\u00a0часа)\n" +
		"Общая\u00a0трудоемкость: 144\u202fчаса\n" +
		"Лабораторная\u00a0работа\u00a01. Установка\n" +
		"Список\u00a0литературы:\n" +
		"1.\u2007Лутц М. Изучаем Python. – СПб.: Символ-Плюс, 2019."

	info := FallbackBasicInfo(text)
	if info.TotalHours == nil || *info.TotalHours != 144 {
		t.Errorf("total hours = %v, want 144", info.TotalHours)
	}

	themes := FallbackLectureThemes(text)
	if len(themes) != 2 {
		t.Fatalf("got %d themes, want 2: %+v", len(themes), themes)
	}
	if themes[0].Title != "Введение в Python (2 часа)" || themes[0].Order != 1 {
		t.Errorf("themes[0] = %+v", themes[0])
	}
	if themes[1].Title != "Введение в Python" || themes[1].Hours != 2 {
		t.Errorf("themes[1] = %+v", themes[1])
	}

	labs := FallbackLabExamples(text)
	if len(labs) != 1 || labs[0].Title != "Установка" {
		t.Errorf("labs = %+v", labs)
	}

	refs := FallbackLiterature(text)
	if len(refs) != 1 || refs[0].Authors != "Лутц М" || refs[0].Year == nil || *refs[0].Year != 2019 {
		t.Errorf("refs = %+v", refs)
	}
}
