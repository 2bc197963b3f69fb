package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"legaldoc-backend/internal/extract"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, original_name, file_type, content, uploaded_at, storage_key, analysis`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    original_name,
    file_type,
    content,
    uploaded_at,
    storage_key,
    analysis,
    analyzed_at,
    risk_score
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	analysis, analyzedAt, riskScore, err := analysisColumns(doc.Analysis)
	if err != nil {
		return err
	}

	var storageKey sql.NullString
	if doc.StorageKey != "" {
		storageKey = sql.NullString{String: doc.StorageKey, Valid: true}
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OriginalName,
		string(doc.FileType),
		doc.Content,
		doc.UploadedAt,
		storageKey,
		analysis,
		analyzedAt,
		riskScore,
	)
	return err
}

// FindByID fetches a document by ID.
func (r *PGRepo) FindByID(ctx context.Context, id string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Save replaces the analysis columns in a single statement.
func (r *PGRepo) Save(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents
SET analysis = $1, analyzed_at = $2, risk_score = $3
WHERE id = $4`

	analysis, analyzedAt, riskScore, err := analysisColumns(doc.Analysis)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, analysis, analyzedAt, riskScore, doc.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a document.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListAll returns every document newest first.
func (r *PGRepo) ListAll(ctx context.Context) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
ORDER BY uploaded_at DESC, id`
	return r.queryDocuments(ctx, query)
}

// List returns a page of documents newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + documentColumns + `
FROM documents
ORDER BY uploaded_at DESC, id
LIMIT $1 OFFSET $2`
	return r.queryDocuments(ctx, query, limit, offset)
}

// Count returns how many documents satisfy pred.
func (r *PGRepo) Count(ctx context.Context, pred Predicate) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	switch pred {
	case PredicateAnalyzed:
		query += ` WHERE analysis IS NOT NULL`
	case PredicateUnanalyzed:
		query += ` WHERE analysis IS NULL`
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PGRepo) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var fileType string
	var storageKey sql.NullString
	var analysis []byte
	if err := row.Scan(
		&doc.ID,
		&doc.OriginalName,
		&fileType,
		&doc.Content,
		&doc.UploadedAt,
		&storageKey,
		&analysis,
	); err != nil {
		return Document{}, err
	}
	doc.FileType = extract.FileType(fileType)
	if storageKey.Valid {
		doc.StorageKey = storageKey.String
	}
	if len(analysis) > 0 {
		var result AnalysisResult
		if err := json.Unmarshal(analysis, &result); err != nil {
			return Document{}, fmt.Errorf("decode analysis for document %s: %w", doc.ID, err)
		}
		doc.Analysis = &result
	}
	return doc, nil
}

// analysisColumns derives the JSONB payload plus the denormalized columns used for indexing.
func analysisColumns(result *AnalysisResult) (any, sql.NullTime, sql.NullInt64, error) {
	if result == nil {
		return nil, sql.NullTime{}, sql.NullInt64{}, nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, sql.NullTime{}, sql.NullInt64{}, fmt.Errorf("encode analysis: %w", err)
	}
	return payload,
		sql.NullTime{Time: result.AnalyzedAt, Valid: true},
		sql.NullInt64{Int64: int64(result.RiskScore), Valid: true},
		nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
