package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"docuchat/internal/helper"
)

type analysisRow struct {
	bun.BaseModel `bun:"table:analysis_sessions,alias:a"`

	ID          string    `bun:"id,pk"`
	Summary     string    `bun:"summary"`
	Context     string    `bun:"context"`
	DocumentIDs string    `bun:"document_ids"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

// AnalysisSession is a persisted analysis over a document selection.
type AnalysisSession struct {
	AnalysisID  string
	Summary     string
	Context     string
	DocumentIDs []string
	CreatedAt   time.Time
}

// CreateAnalysis persists a completed analysis session.
func (s *Store) CreateAnalysis(ctx context.Context, summary, analysisContext string, documentIDs []string) (AnalysisSession, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return AnalysisSession{}, err
	}
	idsJSON, err := json.Marshal(documentIDs)
	if err != nil {
		return AnalysisSession{}, err
	}

	now := time.Now().UTC()
	row := &analysisRow{
		ID:          id,
		Summary:     summary,
		Context:     analysisContext,
		DocumentIDs: string(idsJSON),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return AnalysisSession{}, err
	}
	return AnalysisSession{
		AnalysisID:  id,
		Summary:     summary,
		Context:     analysisContext,
		DocumentIDs: documentIDs,
		CreatedAt:   now,
	}, nil
}

// GetAnalysis returns a stored analysis session, ErrNotFound when unknown.
func (s *Store) GetAnalysis(ctx context.Context, id string) (AnalysisSession, error) {
	row := new(analysisRow)
	err := s.db.NewSelect().Model(row).Where("a.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisSession{}, ErrNotFound
	}
	if err != nil {
		return AnalysisSession{}, err
	}

	session := AnalysisSession{
		AnalysisID: row.ID,
		Summary:    row.Summary,
		Context:    row.Context,
		CreatedAt:  row.CreatedAt,
	}
	if row.DocumentIDs != "" {
		if err := json.Unmarshal([]byte(row.DocumentIDs), &session.DocumentIDs); err != nil {
			log.Warn().Err(err).Str("analysis_id", id).
				Msg("corrupt document id list on analysis session")
		}
	}
	return session, nil
}
