package models

import (
	"database/sql/driver"
	"encoding/json"
)

// DocumentType tags what kind of supporting document was uploaded
type DocumentType string

const (
	DocumentPrescription DocumentType = "prescription"
	DocumentBill         DocumentType = "bill"
	DocumentReport       DocumentType = "report"
)

// ExtractedData is the free-form structured payload produced by OCR and
// extraction for one document
type ExtractedData map[string]interface{}

// Value implements driver.Valuer for JSONB
func (e ExtractedData) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSONB
func (e *ExtractedData) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	case map[string]interface{}:
		*e = ExtractedData(v)
		return nil
	default:
		return nil
	}

	if len(bytes) == 0 {
		*e = nil
		return nil
	}

	return json.Unmarshal(bytes, e)
}

// Document represents a supporting document attached to a claim
type Document struct {
	ID            string        `json:"id"`
	ClaimID       string        `json:"claim_id"`
	DocumentType  DocumentType  `json:"document_type"`
	Filename      string        `json:"filename"`
	FileURL       string        `json:"file_url"`
	ExtractedData ExtractedData `json:"extracted_data"`
	OCRConfidence *float64      `json:"ocr_confidence"`
	CreatedAt     Timestamp     `json:"created_at"`
}
