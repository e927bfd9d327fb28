package query

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"docuchat/internal/assembler"
	"docuchat/internal/models"
	"docuchat/internal/store"
)

// AnalysisService produces and stores summaries over a document selection.
// It reuses the assembler and LLM boundary; it annotates documents with the
// resulting analysis but never touches their content or status.
type AnalysisService struct {
	assembler *assembler.Assembler
	llm       Completer
	store     *store.Store
}

func NewAnalysisService(asm *assembler.Assembler, llm Completer, st *store.Store) *AnalysisService {
	return &AnalysisService{assembler: asm, llm: llm, store: st}
}

// Analyze summarizes the selected documents and persists the session.
func (s *AnalysisService) Analyze(ctx context.Context, documentIDs []string, analysisContext string) (models.AnalysisResult, error) {
	if len(documentIDs) == 0 {
		return models.AnalysisResult{}, ErrNoDocumentsSelected
	}

	instruction := "Summarize the documents."
	if analysisContext != "" {
		instruction = analysisContext
	}

	bundle, err := s.assembler.Assemble(ctx, instruction, documentIDs)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	if len(bundle.Included) == 0 {
		return models.AnalysisResult{}, ErrAllDocumentsExcluded
	}

	summary, err := s.llm.Complete(ctx, BuildPrompt(models.AnalysisSystemPrompt, bundle))
	if err != nil {
		return models.AnalysisResult{}, &QueryFailedError{Err: err}
	}

	ids := make([]string, 0, len(bundle.Included))
	for _, inc := range bundle.Included {
		ids = append(ids, inc.DocumentID)
	}
	session, err := s.store.CreateAnalysis(ctx, summary, analysisContext, ids)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	// Annotate each analyzed document so Get shows its latest analysis.
	for _, id := range ids {
		if err := s.store.SetDocumentAnalysis(ctx, id, summary); err != nil {
			log.Warn().Err(err).Str("document_id", id).
				Msg("could not record analysis on document")
		}
	}

	log.Info().Str("analysis_id", session.AnalysisID).Int("documents", len(ids)).
		Msg("analysis session created")
	return models.AnalysisResult{
		AnalysisID: session.AnalysisID,
		Summary:    session.Summary,
		Context:    session.Context,
		Documents:  sourcesOf(bundle),
		CreatedAt:  session.CreatedAt.Format(time.RFC3339),
	}, nil
}

// GetAnalysis returns a stored session with the current name of each
// referenced document. Documents deleted since the analysis keep their id.
func (s *AnalysisService) GetAnalysis(ctx context.Context, analysisID string) (models.AnalysisResult, error) {
	session, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	docs := make([]models.DocumentSource, 0, len(session.DocumentIDs))
	for _, id := range session.DocumentIDs {
		source := models.DocumentSource{DocumentID: id}
		doc, err := s.store.Get(ctx, id)
		if err == nil {
			source.FileName = doc.FileName
		} else if !errors.Is(err, store.ErrNotFound) {
			return models.AnalysisResult{}, err
		}
		docs = append(docs, source)
	}

	return models.AnalysisResult{
		AnalysisID: session.AnalysisID,
		Summary:    session.Summary,
		Context:    session.Context,
		Documents:  docs,
		CreatedAt:  session.CreatedAt.Format(time.RFC3339),
	}, nil
}
