package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"docuchat/internal/helper"
	"docuchat/internal/models"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID          string    `bun:"id,pk"`
	FileName    string    `bun:"file_name,notnull"`
	MIMEType    string    `bun:"mime_type,notnull"`
	FilePath    string    `bun:"file_path,notnull"`
	Status      string    `bun:"status,notnull"`
	Metadata    string    `bun:"doc_metadata"`
	ErrorDetail string    `bun:"error_detail"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

// Content lives in its own table so listing never loads it.
type documentContentRow struct {
	bun.BaseModel `bun:"table:document_contents,alias:dc"`

	ID            string `bun:"id,pk"`
	ExtractedText string `bun:"extracted_text"`
	Analysis      string `bun:"analysis"`
}

func (r *documentRow) toDocument(content *documentContentRow) models.Document {
	doc := models.Document{
		DocumentID:  r.ID,
		FileName:    r.FileName,
		MIMEType:    r.MIMEType,
		FilePath:    r.FilePath,
		Status:      models.DocumentStatus(r.Status),
		ErrorDetail: r.ErrorDetail,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Metadata != "" {
		// Metadata is advisory; a corrupt blob is not worth failing a read.
		_ = json.Unmarshal([]byte(r.Metadata), &doc.Metadata)
	}
	if content != nil {
		doc.Content = content.ExtractedText
		doc.Analysis = content.Analysis
	}
	return doc
}

// Create allocates identity and persists the initial uploaded record.
// Ingestion is triggered by the caller; readiness is polled via Get.
func (s *Store) Create(ctx context.Context, fileName, mimeType, filePath string) (models.Document, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return models.Document{}, err
	}

	now := time.Now().UTC()
	row := &documentRow{
		ID:        id,
		FileName:  fileName,
		MIMEType:  mimeType,
		FilePath:  filePath,
		Status:    string(models.StatusUploaded),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&documentContentRow{ID: id}).Exec(ctx)
		return err
	})
	if err != nil {
		return models.Document{}, err
	}
	return row.toDocument(nil), nil
}

// Get returns the full record including content.
func (s *Store) Get(ctx context.Context, id string) (models.Document, error) {
	row := new(documentRow)
	err := s.db.NewSelect().Model(row).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, ErrNotFound
	}
	if err != nil {
		return models.Document{}, err
	}

	content := new(documentContentRow)
	if err := s.db.NewSelect().Model(content).Where("dc.id = ?", id).Scan(ctx); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, err
		}
		content = nil
	}
	return row.toDocument(content), nil
}

// List returns metadata only, ordered by creation time.
func (s *Store) List(ctx context.Context) ([]models.DocumentInfo, error) {
	var rows []documentRow
	err := s.db.NewSelect().Model(&rows).
		Column("id", "file_name", "mime_type", "status", "created_at").
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]models.DocumentInfo, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, models.DocumentInfo{
			DocumentID: r.ID,
			FileName:   r.FileName,
			MIMEType:   r.MIMEType,
			Status:     models.DocumentStatus(r.Status),
			CreatedAt:  r.CreatedAt,
		})
	}
	return infos, nil
}

// Delete removes metadata and content and reports the raw-file path for the
// caller to clean up. Deleting an unknown id is ErrNotFound, uniformly.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	row := new(documentRow)
	err := s.db.NewSelect().Model(row).Column("id", "file_path").Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*documentContentRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*documentRow)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return row.FilePath, nil
}

// MarkProcessing moves an uploaded document into processing. The guarded
// update keeps the transition monotonic even with concurrent callers.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusProcessing, models.StatusUploaded)
}

// ResetForReingest puts a terminal document back into processing and clears
// its previous content, analysis, error and metadata. Same document id,
// fresh content.
func (s *Store) ResetForReingest(ctx context.Context, id string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*documentRow)(nil)).
			Set("status = ?", string(models.StatusProcessing)).
			Set("doc_metadata = ''").
			Set("error_detail = ''").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Where("status IN (?)", bun.In([]string{
				string(models.StatusUploaded),
				string(models.StatusReady),
				string(models.StatusFailed),
			})).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, id)
		}
		_, err = tx.NewUpdate().Model((*documentContentRow)(nil)).
			Set("extracted_text = ''").
			Set("analysis = ''").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	return err
}

// SetReady records extracted content and flips the document to ready in one
// transaction. The content write lands before the status flip, so a reader
// that observes ready always observes the full content.
func (s *Store) SetReady(ctx context.Context, id, content string, meta models.ContentMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model((*documentContentRow)(nil)).
			Set("extracted_text = ?", content).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewUpdate().Model((*documentRow)(nil)).
			Set("status = ?", string(models.StatusReady)).
			Set("doc_metadata = ?", string(metaJSON)).
			Set("error_detail = ''").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Where("status = ?", string(models.StatusProcessing)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, id)
		}
		return nil
	})
}

// SetFailed records the failure reason and clears any stale content from a
// prior ingestion, so failed documents never carry authoritative content.
func (s *Store) SetFailed(ctx context.Context, id, errorDetail string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model((*documentContentRow)(nil)).
			Set("extracted_text = ''").
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewUpdate().Model((*documentRow)(nil)).
			Set("status = ?", string(models.StatusFailed)).
			Set("error_detail = ?", errorDetail).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Where("status = ?", string(models.StatusProcessing)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, id)
		}
		return nil
	})
}

// SetDocumentAnalysis stores per-document analysis text alongside content.
func (s *Store) SetDocumentAnalysis(ctx context.Context, id, analysis string) error {
	res, err := s.db.NewUpdate().Model((*documentContentRow)(nil)).
		Set("analysis = ?", analysis).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) transition(ctx context.Context, id string, to models.DocumentStatus, from ...models.DocumentStatus) error {
	allowed := make([]string, 0, len(from))
	for _, f := range from {
		allowed = append(allowed, string(f))
	}
	res, err := s.db.NewUpdate().Model((*documentRow)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(allowed)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return missingOrConflict(ctx, s.db, id)
	}
	return nil
}

// missingOrConflict distinguishes an unknown id from a guarded update that
// matched no rows because the document already moved on. The check runs on
// the caller's db handle: inside a transaction it must use the tx, because
// the sqlite pool has a single connection and the tx holds it.
func missingOrConflict(ctx context.Context, db bun.IDB, id string) error {
	exists, err := db.NewSelect().Model((*documentRow)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}
