// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// SQLiteStore is the durable JobStore. It also archives documents and
// passages for the document index and offers full-text passage search.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at cfg.Path, creating
// parent directories and the schema as needed.
func NewSQLiteStore(cfg types.StoreConfig) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			request TEXT NOT NULL,
			status TEXT NOT NULL,
			stage TEXT NOT NULL,
			warnings TEXT,
			failure_reason TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
		`CREATE TABLE IF NOT EXISTS results (
			job_id TEXT PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
			result TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT,
			state TEXT NOT NULL,
			pages INTEGER,
			passage_count INTEGER,
			failure_reason TEXT,
			uploaded_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			passage_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			region TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB,
			UNIQUE(document_id, passage_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(document_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='passages_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE passages_fts USING fts5(text, content=passages, content_rowid=rowid)`,
			`CREATE TRIGGER passages_ai AFTER INSERT ON passages BEGIN
				INSERT INTO passages_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
			`CREATE TRIGGER passages_ad AFTER DELETE ON passages BEGIN
				INSERT INTO passages_fts(passages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// CreateJob records a new job.
func (s *SQLiteStore) CreateJob(ctx context.Context, job types.ResearchJob) error {
	request, warnings, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, request, status, stage, warnings, failure_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, request, string(job.Status), string(job.Stage), warnings, job.FailureReason,
		job.CreatedAt.UTC().Format(time.RFC3339Nano), job.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJob overwrites a job's mutable fields.
func (s *SQLiteStore) UpdateJob(ctx context.Context, job types.ResearchJob) error {
	request, warnings, err := encodeJob(job)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET request=?, status=?, stage=?, warnings=?, failure_reason=?, updated_at=?
		 WHERE id=?`,
		request, string(job.Status), string(job.Stage), warnings, job.FailureReason,
		job.UpdatedAt.UTC().Format(time.RFC3339Nano), job.ID)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", job.ID, types.ErrJobNotFound)
	}
	return nil
}

// GetJob returns one job by id.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (types.ResearchJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request, status, stage, warnings, failure_reason, created_at, updated_at
		 FROM jobs WHERE id=?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResearchJob{}, fmt.Errorf("job %s: %w", id, types.ErrJobNotFound)
	}
	return job, err
}

// ListJobs returns jobs newest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]types.ResearchJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request, status, stage, warnings, failure_reason, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.ResearchJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job and, through the cascade, its result.
func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", id, types.ErrJobNotFound)
	}
	return nil
}

// PutResult stores a finished job's result.
func (s *SQLiteStore) PutResult(ctx context.Context, result types.ResearchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (job_id, result) VALUES (?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET result=excluded.result`,
		result.JobID, string(data))
	if err != nil {
		return fmt.Errorf("inserting result for job %s: %w", result.JobID, err)
	}
	return nil
}

// GetResult returns a finished job's result.
func (s *SQLiteStore) GetResult(ctx context.Context, jobID string) (types.ResearchResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM results WHERE job_id=?`, jobID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResearchResult{}, fmt.Errorf("result for job %s: %w", jobID, types.ErrJobNotFound)
	}
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("reading result for job %s: %w", jobID, err)
	}
	var result types.ResearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return types.ResearchResult{}, fmt.Errorf("unmarshaling result for job %s: %w", jobID, err)
	}
	return result, nil
}

func encodeJob(job types.ResearchJob) (request, warnings string, err error) {
	req, err := json.Marshal(job.Request)
	if err != nil {
		return "", "", fmt.Errorf("marshaling request: %w", err)
	}
	w, err := json.Marshal(job.Warnings)
	if err != nil {
		return "", "", fmt.Errorf("marshaling warnings: %w", err)
	}
	return string(req), string(w), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (types.ResearchJob, error) {
	var job types.ResearchJob
	var request, warnings, createdAt, updatedAt string
	if err := row.Scan(&job.ID, &request, &job.Status, &job.Stage, &warnings,
		&job.FailureReason, &createdAt, &updatedAt); err != nil {
		return types.ResearchJob{}, err
	}
	if err := json.Unmarshal([]byte(request), &job.Request); err != nil {
		return types.ResearchJob{}, fmt.Errorf("unmarshaling request for job %s: %w", job.ID, err)
	}
	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &job.Warnings); err != nil {
			return types.ResearchJob{}, fmt.Errorf("unmarshaling warnings for job %s: %w", job.ID, err)
		}
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return job, nil
}

// PutDocument upserts a document record.
func (s *SQLiteStore) PutDocument(ctx context.Context, doc types.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, state, pages, passage_count, failure_reason, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			filename=excluded.filename, state=excluded.state, pages=excluded.pages,
			passage_count=excluded.passage_count, failure_reason=excluded.failure_reason`,
		doc.ID, doc.Filename, string(doc.State), doc.Pages, doc.PassageCount,
		doc.FailureReason, doc.UploadedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

// PutPassages stores a document's passages in one transaction.
func (s *SQLiteStore) PutPassages(ctx context.Context, passages []types.DocumentPassage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (document_id, passage_id, page, region, text, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		region, err := json.Marshal(p.Region)
		if err != nil {
			return fmt.Errorf("marshaling region: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.DocumentID, p.PassageID, p.Page, string(region), p.Text,
			encodeEmbedding(p.Embedding)); err != nil {
			return fmt.Errorf("inserting passage %s: %w", p.PassageID, err)
		}
	}
	return tx.Commit()
}

// Documents returns every archived document, used to rehydrate the
// document index at startup.
func (s *SQLiteStore) Documents(ctx context.Context) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, state, pages, passage_count, failure_reason, uploaded_at FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		var uploadedAt string
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.State, &doc.Pages,
			&doc.PassageCount, &doc.FailureReason, &uploadedAt); err != nil {
			return nil, err
		}
		doc.UploadedAt, _ = time.Parse(time.RFC3339Nano, uploadedAt)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Passages returns one document's passages with embeddings.
func (s *SQLiteStore) Passages(ctx context.Context, documentID string) ([]types.DocumentPassage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, passage_id, page, region, text, embedding
		 FROM passages WHERE document_id=? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("reading passages for %s: %w", documentID, err)
	}
	defer rows.Close()
	return scanPassages(rows)
}

// SearchPassages runs an FTS5 match over one document's passages.
func (s *SQLiteStore) SearchPassages(ctx context.Context, documentID, query string, limit int) ([]types.DocumentPassage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.document_id, p.passage_id, p.page, p.region, p.text, p.embedding
		 FROM passages_fts f
		 JOIN passages p ON p.rowid = f.rowid
		 WHERE passages_fts MATCH ? AND p.document_id = ?
		 ORDER BY f.rank LIMIT ?`, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching passages: %w", err)
	}
	defer rows.Close()
	return scanPassages(rows)
}

func scanPassages(rows *sql.Rows) ([]types.DocumentPassage, error) {
	var passages []types.DocumentPassage
	for rows.Next() {
		var p types.DocumentPassage
		var region string
		var embedding []byte
		if err := rows.Scan(&p.DocumentID, &p.PassageID, &p.Page, &region, &p.Text, &embedding); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(region), &p.Region); err != nil {
			return nil, fmt.Errorf("unmarshaling region for passage %s: %w", p.PassageID, err)
		}
		p.Embedding = decodeEmbedding(embedding)
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// encodeEmbedding packs a vector as little-endian float64 bytes.
func encodeEmbedding(v []float64) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(x))
	}
	return b
}

func decodeEmbedding(b []byte) []float64 {
	if len(b) == 0 || len(b)%8 != 0 {
		return nil
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}
