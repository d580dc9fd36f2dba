//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/brunobiangulo/rpdextract/cache"
	"github.com/brunobiangulo/rpdextract/extract"
)

var _ cache.Cache = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func sampleResult() *extract.Result {
	r := extract.NewResult()
	r.SubjectTitle = "Физика"
	r.AcademicDegree = extract.DegreeMaster
	r.Profession = "03.04.02 Физика"
	r.TotalHours = 144
	r.Department = strPtr("Кафедра общей физики")
	r.Year = intPtr(2023)
	r.LectureThemes = []extract.LectureTheme{
		{Title: "Механика", Order: 1, Hours: 4, Description: strPtr("Законы Ньютона")},
		{Title: "Оптика", Order: 2, Hours: 2},
	}
	hours := 3.0
	r.LabExamples = []extract.LabExample{
		{Title: "Маятник", Description: "Измерение периода", EstimatedHours: &hours},
	}
	r.LiteratureReferences = []extract.LiteratureReference{
		{Authors: "Савельев И.В.", Title: "Курс общей физики", Year: intPtr(2019), Publisher: strPtr("Лань")},
		{Authors: "Сивухин Д.В.", Title: "Общий курс физики"},
	}
	r.ExtractionErrors = []string{"Skipped lecture theme 3: /: missing properties: 'title'"}
	extract.Validate(r)
	return r
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestMigrateRecordsVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}

	// Running again applies nothing.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var n int
	s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&n)
	if n != len(migrations) {
		t.Errorf("schema_version rows = %d, want %d", n, len(migrations))
	}

	for _, idx := range []string{"idx_cache_entries_expires", "idx_literature_unmatched"} {
		var name string
		err := s.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", idx).Scan(&name)
		if err != nil {
			t.Errorf("index %s missing: %v", idx, err)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.SaveExtraction(context.Background(), Record{FileName: "a.pdf", FileType: "pdf", Result: sampleResult()})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	if _, err := s.GetDocument(context.Background(), id); err != nil {
		t.Errorf("document lost after reopen: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Extractions
// ---------------------------------------------------------------------------

func TestSaveAndGetExtraction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleResult()
	id, err := s.SaveExtraction(ctx, Record{
		FileName:       "physics.docx",
		FileType:       "docx",
		Result:         want,
		Completeness:   0.85,
		ProcessingTime: 1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("saving extraction: %v", err)
	}
	if id == "" {
		t.Fatal("expected a document id")
	}

	got, err := s.GetExtraction(ctx, id)
	if err != nil {
		t.Fatalf("getting extraction: %v", err)
	}

	doc := got.Document
	if doc.FileName != "physics.docx" || doc.FileType != "docx" || !doc.Success {
		t.Errorf("document = %+v", doc)
	}
	if doc.Completeness != 0.85 || doc.ProcessingTimeMS != 1500 {
		t.Errorf("completeness %v, time %d", doc.Completeness, doc.ProcessingTimeMS)
	}
	if doc.CreatedAt == "" {
		t.Error("expected created_at")
	}
	if !reflect.DeepEqual(got.Result, want) {
		t.Errorf("result mismatch:\n got %+v\nwant %+v", got.Result, want)
	}
	if len(got.LiteratureIDs) != 2 {
		t.Errorf("literature ids = %v", got.LiteratureIDs)
	}
}

func TestSaveExtractionNilResult(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveExtraction(context.Background(), Record{FileName: "x.pdf"}); err == nil {
		t.Fatal("expected error for nil result")
	}
}

func TestGetExtractionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetExtraction(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.RecordFailure(ctx, "broken.pdf", "pdf", []string{"RPD parsing failed: bad xref"}, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("recording failure: %v", err)
	}
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Success {
		t.Error("failure stored as success")
	}
	if !reflect.DeepEqual(doc.ExtractionErrors, []string{"RPD parsing failed: bad xref"}) {
		t.Errorf("errors = %v", doc.ExtractionErrors)
	}
	if doc.Confidence != nil || doc.Department != nil {
		t.Errorf("unexpected optional values: %+v", doc)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		id, err := s.SaveExtraction(ctx, Record{FileName: name, FileType: "pdf", Result: sampleResult()})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	docs, err := s.ListDocuments(ctx, 0)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents", len(docs))
	}
	// Newest first.
	if docs[0].ID != ids[2] || docs[2].ID != ids[0] {
		t.Errorf("order = %s, %s, %s", docs[0].FileName, docs[1].FileName, docs[2].FileName)
	}

	docs, err = s.ListDocuments(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("limit 2 returned %d", len(docs))
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveExtraction(ctx, Record{FileName: "a.pdf", FileType: "pdf", Result: sampleResult()})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDocument(ctx, id); err != nil {
		t.Fatalf("deleting: %v", err)
	}

	for _, table := range []string{"lecture_themes", "lab_examples", "literature_references"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after delete", table, n)
		}
	}

	if err := s.DeleteDocument(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSetLiteratureAvailability(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveExtraction(ctx, Record{FileName: "a.pdf", FileType: "pdf", Result: sampleResult()})
	if err != nil {
		t.Fatal(err)
	}
	ex, err := s.GetExtraction(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetLiteratureAvailability(ctx, ex.LiteratureIDs[1], true, strPtr("kpfu-42")); err != nil {
		t.Fatalf("setting availability: %v", err)
	}

	ex, err = s.GetExtraction(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	ref := ex.Result.LiteratureReferences[1]
	if !ref.KPFUAvailable || ref.KPFUBookID == nil || *ref.KPFUBookID != "kpfu-42" {
		t.Errorf("reference = %+v", ref)
	}
	if ex.Result.LiteratureReferences[0].KPFUAvailable {
		t.Error("other reference changed")
	}

	if err := s.SetLiteratureAvailability(ctx, 999999, true, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if empty.TotalDocuments != 0 || empty.SuccessRate != 0 || empty.AverageProcessingSeconds != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	for _, d := range []time.Duration{time.Second, 3 * time.Second, 5 * time.Second} {
		if _, err := s.SaveExtraction(ctx, Record{FileName: "a.pdf", FileType: "pdf", Result: sampleResult(), ProcessingTime: d}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.RecordFailure(ctx, "b.pdf", "pdf", []string{"x"}, 3*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{
		TotalDocuments:           4,
		SuccessfulDocuments:      3,
		FailedDocuments:          1,
		SuccessRate:              0.75,
		AverageProcessingSeconds: 3,
		LectureThemes:            6,
		LabExamples:              3,
		LiteratureReferences:     6,
		CacheEntries:             1,
	}
	if *stats != want {
		t.Errorf("stats = %+v\nwant %+v", *stats, want)
	}
}

// ---------------------------------------------------------------------------
// Cache entries
// ---------------------------------------------------------------------------

func TestCacheSetGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("first"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", []byte("second"), time.Hour); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "second" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("entry survived delete")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting missing key: %v", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "short", []byte("a"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "long", []byte("b"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "forever", []byte("c"), 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "short"); ok {
		t.Error("expired entry returned")
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Error("live entry missing")
	}

	now = now.Add(2 * time.Hour)
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl was purged")
	}
}
