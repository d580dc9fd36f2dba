package store

// schemaSQL is the base DDL. Later changes go through migrations.
const schemaSQL = `
-- One row per processed file, successful or not
CREATE TABLE IF NOT EXISTS rpd_documents (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    file_type TEXT NOT NULL,
    subject_title TEXT NOT NULL DEFAULT '',
    academic_degree TEXT NOT NULL DEFAULT 'bachelor',
    profession TEXT NOT NULL DEFAULT '',
    total_hours INTEGER NOT NULL DEFAULT 0,
    department TEXT,
    faculty TEXT,
    year INTEGER,
    semester TEXT,
    extraction_confidence REAL,
    completeness_score REAL NOT NULL DEFAULT 0,
    extraction_errors JSON NOT NULL DEFAULT '[]',
    success INTEGER NOT NULL DEFAULT 1,
    processing_time_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lecture_themes (
    id INTEGER PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES rpd_documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    theme_order INTEGER NOT NULL,
    hours REAL NOT NULL,
    description TEXT
);

CREATE TABLE IF NOT EXISTS lab_examples (
    id INTEGER PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES rpd_documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    theme_relation TEXT,
    estimated_hours REAL
);

CREATE TABLE IF NOT EXISTS literature_references (
    id INTEGER PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES rpd_documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    authors TEXT NOT NULL,
    title TEXT NOT NULL,
    year INTEGER,
    pages TEXT,
    publisher TEXT,
    isbn TEXT,
    kpfu_available INTEGER NOT NULL DEFAULT 0,
    kpfu_book_id TEXT
);

-- Persistent layer for model output and parse caches
CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    expires_at INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_lecture_themes_document ON lecture_themes(document_id);
CREATE INDEX IF NOT EXISTS idx_lab_examples_document ON lab_examples(document_id);
CREATE INDEX IF NOT EXISTS idx_literature_document ON literature_references(document_id);
CREATE INDEX IF NOT EXISTS idx_rpd_documents_created ON rpd_documents(created_at);
`
