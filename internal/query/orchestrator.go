package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"docuchat/internal/assembler"
	"docuchat/internal/models"
)

var (
	// ErrNoDocumentsSelected is raised before any store access when the
	// caller supplies an empty selection.
	ErrNoDocumentsSelected = errors.New("no documents selected")

	// ErrAllDocumentsExcluded is raised when none of the requested
	// documents could contribute context.
	ErrAllDocumentsExcluded = errors.New("all requested documents were excluded")
)

// QueryFailedError wraps a failure of the external LLM capability. The
// orchestrator never retries and never fabricates a partial answer.
type QueryFailedError struct {
	Err error
}

func (e *QueryFailedError) Error() string { return fmt.Sprintf("query failed: %v", e.Err) }
func (e *QueryFailedError) Unwrap() error { return e.Err }

// Completer is the LLM capability boundary.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Orchestrator coordinates context assembly with the LLM capability and maps
// the completion to an answer annotated with its sources.
type Orchestrator struct {
	assembler *assembler.Assembler
	llm       Completer
}

func NewOrchestrator(asm *assembler.Assembler, llm Completer) *Orchestrator {
	return &Orchestrator{assembler: asm, llm: llm}
}

// Answer runs one query against an explicit document selection. Sources list
// exactly the documents whose content was supplied to the LLM, whether or
// not the completion cites them.
func (o *Orchestrator) Answer(ctx context.Context, queryText string, documentIDs []string) (models.QueryResult, error) {
	if len(documentIDs) == 0 {
		return models.QueryResult{}, ErrNoDocumentsSelected
	}

	bundle, err := o.assembler.Assemble(ctx, queryText, documentIDs)
	if err != nil {
		return models.QueryResult{}, err
	}
	if len(bundle.Included) == 0 {
		return models.QueryResult{Excluded: bundle.Excluded}, ErrAllDocumentsExcluded
	}

	log.Info().Int("included", len(bundle.Included)).Int("excluded", len(bundle.Excluded)).
		Int("total_chars", bundle.TotalChars).Msg("context assembled")

	completion, err := o.llm.Complete(ctx, BuildPrompt(models.QuerySystemPrompt, bundle))
	if err != nil {
		return models.QueryResult{}, &QueryFailedError{Err: err}
	}

	return models.QueryResult{
		Response: completion,
		Sources:  sourcesOf(bundle),
		Excluded: bundle.Excluded,
	}, nil
}

// BuildPrompt lays out the system guidance, each excerpt behind its source
// marker and the user query.
func BuildPrompt(systemPrompt string, bundle models.ContextBundle) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\nDOCUMENT CONTENT:\n")
	for i, inc := range bundle.Included {
		fmt.Fprintf(&b, "\n"+models.DocumentMarkerFormat+"\n", i+1, inc.FileName, inc.DocumentID)
		b.WriteString(inc.Excerpt)
		b.WriteString("\n")
	}
	b.WriteString("\nUSER QUERY: ")
	b.WriteString(bundle.QueryText)
	b.WriteString("\n\nPlease provide a comprehensive answer based only on the information in the documents above.")
	return b.String()
}

func sourcesOf(bundle models.ContextBundle) []models.DocumentSource {
	sources := make([]models.DocumentSource, 0, len(bundle.Included))
	for _, inc := range bundle.Included {
		sources = append(sources, models.DocumentSource{
			DocumentID: inc.DocumentID,
			FileName:   inc.FileName,
		})
	}
	return sources
}
