// Package store persists extraction results and cache entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/rpdextract/extract"
)

// ErrNotFound is returned when a document or literature reference does not
// exist.
var ErrNotFound = errors.New("store: not found")

// Document is a row of rpd_documents.
type Document struct {
	ID               string   `json:"id"`
	FileName         string   `json:"filename"`
	FileType         string   `json:"file_type"`
	SubjectTitle     string   `json:"subject_title"`
	AcademicDegree   string   `json:"academic_degree"`
	Profession       string   `json:"profession"`
	TotalHours       int      `json:"total_hours"`
	Department       *string  `json:"department"`
	Faculty          *string  `json:"faculty"`
	Year             *int     `json:"year"`
	Semester         *string  `json:"semester"`
	Confidence       *float64 `json:"extraction_confidence"`
	Completeness     float64  `json:"completeness_score"`
	ExtractionErrors []string `json:"extraction_errors"`
	Success          bool     `json:"success"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	CreatedAt        string   `json:"created_at"`
}

// Record is what SaveExtraction persists for one successful run.
type Record struct {
	FileName       string
	FileType       string
	Result         *extract.Result
	Completeness   float64
	ProcessingTime time.Duration
}

// Extraction is a stored document with its result rebuilt from the child
// tables. LiteratureIDs holds the row id of each entry of
// Result.LiteratureReferences, for SetLiteratureAvailability.
type Extraction struct {
	Document      Document        `json:"document"`
	Result        *extract.Result `json:"result"`
	LiteratureIDs []int64         `json:"literature_ids"`
}

// Stats summarises the processing history.
type Stats struct {
	TotalDocuments           int     `json:"total_documents"`
	SuccessfulDocuments      int     `json:"successful_documents"`
	FailedDocuments          int     `json:"failed_documents"`
	SuccessRate              float64 `json:"success_rate"`
	AverageProcessingSeconds float64 `json:"average_processing_time_seconds"`
	LectureThemes            int     `json:"lecture_themes"`
	LabExamples              int     `json:"lab_examples"`
	LiteratureReferences     int     `json:"literature_references"`
	CacheEntries             int     `json:"cache_entries"`
}

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) a SQLite database at dbPath and brings the schema
// up to date.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, now: time.Now}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Document operations ---

// SaveExtraction stores a successful extraction and returns the new
// document id.
func (s *Store) SaveExtraction(ctx context.Context, rec Record) (string, error) {
	r := rec.Result
	if r == nil {
		return "", errors.New("store: nil extraction result")
	}
	errs, err := json.Marshal(nonNil(r.ExtractionErrors))
	if err != nil {
		return "", fmt.Errorf("encoding extraction errors: %w", err)
	}

	id := uuid.NewString()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rpd_documents (id, filename, file_type, subject_title, academic_degree,
				profession, total_hours, department, faculty, year, semester,
				extraction_confidence, completeness_score, extraction_errors, success, processing_time_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		`, id, rec.FileName, rec.FileType, r.SubjectTitle, string(r.AcademicDegree),
			r.Profession, r.TotalHours, r.Department, r.Faculty, r.Year, r.Semester,
			r.ExtractionConfidence, rec.Completeness, string(errs), rec.ProcessingTime.Milliseconds()); err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}

		themeStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO lecture_themes (document_id, position, title, theme_order, hours, description)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer themeStmt.Close()
		for i, t := range r.LectureThemes {
			if _, err := themeStmt.ExecContext(ctx, id, i, t.Title, t.Order, t.Hours, t.Description); err != nil {
				return fmt.Errorf("inserting lecture theme %d: %w", i+1, err)
			}
		}

		labStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO lab_examples (document_id, position, title, description, theme_relation, estimated_hours)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer labStmt.Close()
		for i, l := range r.LabExamples {
			if _, err := labStmt.ExecContext(ctx, id, i, l.Title, l.Description, l.ThemeRelation, l.EstimatedHours); err != nil {
				return fmt.Errorf("inserting lab example %d: %w", i+1, err)
			}
		}

		refStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO literature_references (document_id, position, authors, title, year,
				pages, publisher, isbn, kpfu_available, kpfu_book_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer refStmt.Close()
		for i, ref := range r.LiteratureReferences {
			if _, err := refStmt.ExecContext(ctx, id, i, ref.Authors, ref.Title, ref.Year,
				ref.Pages, ref.Publisher, ref.ISBN, ref.KPFUAvailable, ref.KPFUBookID); err != nil {
				return fmt.Errorf("inserting literature reference %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordFailure stores a failed run so that it counts in Stats.
func (s *Store) RecordFailure(ctx context.Context, fileName, fileType string, failures []string, processingTime time.Duration) (string, error) {
	errs, err := json.Marshal(nonNil(failures))
	if err != nil {
		return "", fmt.Errorf("encoding failures: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rpd_documents (id, filename, file_type, extraction_errors, success, processing_time_ms)
		VALUES (?, ?, ?, ?, 0, ?)
	`, id, fileName, fileType, string(errs), processingTime.Milliseconds()); err != nil {
		return "", fmt.Errorf("recording failure: %w", err)
	}
	return id, nil
}

const documentColumns = `id, filename, file_type, subject_title, academic_degree, profession,
	total_hours, department, faculty, year, semester, extraction_confidence,
	completeness_score, extraction_errors, success, processing_time_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		d          Document
		department sql.NullString
		faculty    sql.NullString
		year       sql.NullInt64
		semester   sql.NullString
		confidence sql.NullFloat64
		errs       string
	)
	if err := row.Scan(&d.ID, &d.FileName, &d.FileType, &d.SubjectTitle, &d.AcademicDegree,
		&d.Profession, &d.TotalHours, &department, &faculty, &year, &semester, &confidence,
		&d.Completeness, &errs, &d.Success, &d.ProcessingTimeMS, &d.CreatedAt); err != nil {
		return Document{}, err
	}
	d.Department = nullString(department)
	d.Faculty = nullString(faculty)
	d.Year = nullInt(year)
	d.Semester = nullString(semester)
	if confidence.Valid {
		d.Confidence = &confidence.Float64
	}
	if err := json.Unmarshal([]byte(errs), &d.ExtractionErrors); err != nil {
		return Document{}, fmt.Errorf("decoding extraction errors: %w", err)
	}
	if d.ExtractionErrors == nil {
		d.ExtractionErrors = []string{}
	}
	return d, nil
}

// GetDocument returns the document row with the given id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM rpd_documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetExtraction returns a stored document together with its rebuilt result.
func (s *Store) GetExtraction(ctx context.Context, id string) (*Extraction, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	r := extract.NewResult()
	r.SubjectTitle = doc.SubjectTitle
	r.AcademicDegree = extract.Degree(doc.AcademicDegree)
	r.Profession = doc.Profession
	r.TotalHours = doc.TotalHours
	r.Department = doc.Department
	r.Faculty = doc.Faculty
	r.Year = doc.Year
	r.Semester = doc.Semester
	r.ExtractionConfidence = doc.Confidence
	r.ExtractionErrors = doc.ExtractionErrors

	if r.LectureThemes, err = s.lectureThemes(ctx, id); err != nil {
		return nil, err
	}
	if r.LabExamples, err = s.labExamples(ctx, id); err != nil {
		return nil, err
	}
	refs, ids, err := s.literature(ctx, id)
	if err != nil {
		return nil, err
	}
	r.LiteratureReferences = refs

	return &Extraction{Document: *doc, Result: r, LiteratureIDs: ids}, nil
}

func (s *Store) lectureThemes(ctx context.Context, docID string) ([]extract.LectureTheme, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, theme_order, hours, description
		FROM lecture_themes WHERE document_id = ? ORDER BY position
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	themes := []extract.LectureTheme{}
	for rows.Next() {
		var t extract.LectureTheme
		var desc sql.NullString
		if err := rows.Scan(&t.Title, &t.Order, &t.Hours, &desc); err != nil {
			return nil, err
		}
		t.Description = nullString(desc)
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

func (s *Store) labExamples(ctx context.Context, docID string) ([]extract.LabExample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, description, theme_relation, estimated_hours
		FROM lab_examples WHERE document_id = ? ORDER BY position
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labs := []extract.LabExample{}
	for rows.Next() {
		var l extract.LabExample
		var relation sql.NullString
		var hours sql.NullFloat64
		if err := rows.Scan(&l.Title, &l.Description, &relation, &hours); err != nil {
			return nil, err
		}
		l.ThemeRelation = nullString(relation)
		if hours.Valid {
			l.EstimatedHours = &hours.Float64
		}
		labs = append(labs, l)
	}
	return labs, rows.Err()
}

func (s *Store) literature(ctx context.Context, docID string) ([]extract.LiteratureReference, []int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, authors, title, year, pages, publisher, isbn, kpfu_available, kpfu_book_id
		FROM literature_references WHERE document_id = ? ORDER BY position
	`, docID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	refs := []extract.LiteratureReference{}
	var ids []int64
	for rows.Next() {
		var (
			id                          int64
			ref                         extract.LiteratureReference
			year                        sql.NullInt64
			pages, publisher, isbn, bid sql.NullString
		)
		if err := rows.Scan(&id, &ref.Authors, &ref.Title, &year, &pages, &publisher, &isbn,
			&ref.KPFUAvailable, &bid); err != nil {
			return nil, nil, err
		}
		ref.Year = nullInt(year)
		ref.Pages = nullString(pages)
		ref.Publisher = nullString(publisher)
		ref.ISBN = nullString(isbn)
		ref.KPFUBookID = nullString(bid)
		refs = append(refs, ref)
		ids = append(ids, id)
	}
	return refs, ids, rows.Err()
}

// ListDocuments returns up to limit documents, newest first. A limit of
// zero or less returns all of them.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM rpd_documents ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its themes, labs and literature go
// with it.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rpd_documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetLiteratureAvailability records the outcome of library catalog matching
// for one literature reference.
func (s *Store) SetLiteratureAvailability(ctx context.Context, refID int64, available bool, bookID *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE literature_references SET kpfu_available = ?, kpfu_book_id = ? WHERE id = ?",
		available, bookID, refID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("literature reference %d: %w", refID, ErrNotFound)
	}
	return nil
}

// Stats returns counts over every stored run.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var avgMS sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0), AVG(processing_time_ms) FROM rpd_documents
	`).Scan(&stats.TotalDocuments, &stats.SuccessfulDocuments, &avgMS); err != nil {
		return nil, fmt.Errorf("summarising documents: %w", err)
	}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM lecture_themes", &stats.LectureThemes},
		{"SELECT COUNT(*) FROM lab_examples", &stats.LabExamples},
		{"SELECT COUNT(*) FROM literature_references", &stats.LiteratureReferences},
		{"SELECT COUNT(*) FROM cache_entries", &stats.CacheEntries},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}

	stats.FailedDocuments = stats.TotalDocuments - stats.SuccessfulDocuments
	if stats.TotalDocuments > 0 {
		stats.SuccessRate = float64(stats.SuccessfulDocuments) / float64(stats.TotalDocuments)
	}
	if avgMS.Valid {
		stats.AverageProcessingSeconds = avgMS.Float64 / 1000
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
