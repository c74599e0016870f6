package repository

import (
	"context"

	"opd-claims/models"
)

// DocumentRepository handles database operations for claim documents
type DocumentRepository struct {
	db DBTX
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (
			claim_id, document_type, file_url, filename, extracted_data, ocr_confidence
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at`

	return r.db.QueryRow(
		ctx, query,
		d.ClaimID,
		string(d.DocumentType),
		d.FileURL,
		d.Filename,
		d.ExtractedData,
		d.OCRConfidence,
	).Scan(&d.ID, &d.CreatedAt)
}

// ListByClaim retrieves the documents of a claim in upload order
func (r *DocumentRepository) ListByClaim(ctx context.Context, claimID string) ([]models.Document, error) {
	query := `
		SELECT id::text, claim_id, document_type, file_url, filename, extracted_data, ocr_confidence, created_at
		FROM documents
		WHERE claim_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		var docType string
		err := rows.Scan(
			&d.ID,
			&d.ClaimID,
			&docType,
			&d.FileURL,
			&d.Filename,
			&d.ExtractedData,
			&d.OCRConfidence,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		d.DocumentType = models.DocumentType(docType)
		docs = append(docs, d)
	}

	return docs, rows.Err()
}
