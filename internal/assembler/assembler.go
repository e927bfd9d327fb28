package assembler

import (
	"context"
	"errors"
	"sort"

	"docuchat/internal/config"
	"docuchat/internal/models"
	"docuchat/internal/store"
)

// DocumentGetter is the slice of the store the assembler needs.
type DocumentGetter interface {
	Get(ctx context.Context, id string) (models.Document, error)
}

// Assembler turns a query and a document selection into a ContextBundle
// bounded by the configured character budget. For a fixed store state the
// same input always produces the same bundle.
type Assembler struct {
	docs   DocumentGetter
	budget int
	floor  int
}

func New(docs DocumentGetter, cfg config.ContextConfig) *Assembler {
	return &Assembler{
		docs:   docs,
		budget: cfg.BudgetChars,
		floor:  cfg.MinExcerptChars,
	}
}

type candidate struct {
	doc     models.Document
	content []rune
	take    int
}

// Assemble resolves the requested documents, excludes the ones that cannot
// contribute, and allocates the budget across the rest: equal shares first,
// then one redistribution pass in ascending created_at order.
// Exclusion is data, never an error.
func (a *Assembler) Assemble(ctx context.Context, queryText string, documentIDs []string) (models.ContextBundle, error) {
	bundle := models.ContextBundle{QueryText: queryText}

	var ready []candidate
	seen := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		doc, err := a.docs.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			bundle.Excluded = append(bundle.Excluded, models.ExcludedDocument{
				DocumentID: id, Reason: models.ExcludedNotFound,
			})
			continue
		}
		if err != nil {
			return models.ContextBundle{}, err
		}
		if doc.Status != models.StatusReady {
			bundle.Excluded = append(bundle.Excluded, models.ExcludedDocument{
				DocumentID: id, Reason: models.ExcludedNotReady,
			})
			continue
		}
		ready = append(ready, candidate{doc: doc, content: []rune(doc.Content)})
	}
	if len(ready) == 0 {
		return bundle, nil
	}

	// Stable ordering: ascending created_at, document id as tie-break.
	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].doc.CreatedAt.Equal(ready[j].doc.CreatedAt) {
			return ready[i].doc.CreatedAt.Before(ready[j].doc.CreatedAt)
		}
		return ready[i].doc.DocumentID < ready[j].doc.DocumentID
	})

	// If the floor cannot be honored for everyone, drop the most recently
	// created documents until it can. At least one document always stays.
	maxDocs := a.budget / a.floor
	if maxDocs < 1 {
		maxDocs = 1
	}
	if len(ready) > maxDocs {
		for _, c := range ready[maxDocs:] {
			bundle.Excluded = append(bundle.Excluded, models.ExcludedDocument{
				DocumentID: c.doc.DocumentID, Reason: models.ExcludedOverBudget,
			})
		}
		ready = ready[:maxDocs]
	}

	// Equal shares first.
	share := a.budget / len(ready)
	pool := a.budget - share*len(ready)
	for i := range ready {
		ready[i].take = min(len(ready[i].content), share)
		pool += share - ready[i].take
	}

	// One redistribution pass: leftover budget tops up truncated documents
	// in creation order.
	for i := range ready {
		if pool == 0 {
			break
		}
		if want := len(ready[i].content) - ready[i].take; want > 0 {
			give := min(pool, want)
			ready[i].take += give
			pool -= give
		}
	}

	for _, c := range ready {
		bundle.Included = append(bundle.Included, models.IncludedDocument{
			DocumentID:   c.doc.DocumentID,
			FileName:     c.doc.FileName,
			Excerpt:      string(c.content[:c.take]),
			WasTruncated: c.take < len(c.content),
		})
		bundle.TotalChars += c.take
	}
	return bundle, nil
}
