package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/assembler"
	"docuchat/internal/config"
	"docuchat/internal/models"
	"docuchat/internal/store"
)

type fakeGetter struct {
	docs map[string]models.Document
}

func (f *fakeGetter) Get(_ context.Context, id string) (models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return models.Document{}, store.ErrNotFound
	}
	return doc, nil
}

type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testAssembler(docs ...models.Document) *assembler.Assembler {
	byID := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		byID[d.DocumentID] = d
	}
	return assembler.New(&fakeGetter{docs: byID}, config.ContextConfig{
		BudgetChars:     1000,
		MinExcerptChars: 50,
	})
}

func readyDoc(id, name, content string, createdAt time.Time) models.Document {
	return models.Document{
		DocumentID: id,
		FileName:   name,
		Status:     models.StatusReady,
		Content:    content,
		CreatedAt:  createdAt,
	}
}

func TestAnswer(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	llm := &fakeCompleter{response: "The answer is 42."}
	o := NewOrchestrator(testAssembler(
		readyDoc("doc-1", "report.pdf", "the meaning of life is 42", base),
	), llm)

	result, err := o.Answer(context.Background(), "what is the meaning of life?", []string{"doc-1"})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", result.Response)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "doc-1", result.Sources[0].DocumentID)
	assert.Equal(t, "report.pdf", result.Sources[0].FileName)
	assert.Empty(t, result.Excluded)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, fmt.Sprintf(models.DocumentMarkerFormat, 1, "report.pdf", "doc-1"))
	assert.Contains(t, prompt, "the meaning of life is 42")
	assert.Contains(t, prompt, "USER QUERY: what is the meaning of life?")
}

func TestAnswerEmptySelection(t *testing.T) {
	llm := &fakeCompleter{response: "unused"}
	o := NewOrchestrator(testAssembler(), llm)

	_, err := o.Answer(context.Background(), "anything?", nil)
	assert.ErrorIs(t, err, ErrNoDocumentsSelected)
	assert.Empty(t, llm.prompts)
}

func TestAnswerAllExcluded(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	pending := models.Document{
		DocumentID: "pending",
		FileName:   "pending.docx",
		Status:     models.StatusProcessing,
		CreatedAt:  base,
	}
	llm := &fakeCompleter{response: "unused"}
	o := NewOrchestrator(testAssembler(pending), llm)

	result, err := o.Answer(context.Background(), "q", []string{"pending", "missing"})
	assert.ErrorIs(t, err, ErrAllDocumentsExcluded)
	assert.Empty(t, llm.prompts)

	require.Len(t, result.Excluded, 2)
	reasons := map[string]models.ExclusionReason{}
	for _, ex := range result.Excluded {
		reasons[ex.DocumentID] = ex.Reason
	}
	assert.Equal(t, models.ExcludedNotReady, reasons["pending"])
	assert.Equal(t, models.ExcludedNotFound, reasons["missing"])
}

func TestAnswerLLMFailure(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	backendErr := errors.New("upstream timeout")
	llm := &fakeCompleter{err: backendErr}
	o := NewOrchestrator(testAssembler(
		readyDoc("doc-1", "report.pdf", "content", base),
	), llm)

	_, err := o.Answer(context.Background(), "q", []string{"doc-1"})
	require.Error(t, err)

	var queryErr *QueryFailedError
	require.ErrorAs(t, err, &queryErr)
	assert.ErrorIs(t, err, backendErr)
}

func TestAnswerPartialExclusionStillAnswers(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	llm := &fakeCompleter{response: "answer"}
	o := NewOrchestrator(testAssembler(
		readyDoc("ok", "ok.txt", "content", base),
	), llm)

	result, err := o.Answer(context.Background(), "q", []string{"ok", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, "answer", result.Response)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, "ok", result.Sources[0].DocumentID)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "ghost", result.Excluded[0].DocumentID)
}

func TestBuildPromptMarkerNumbering(t *testing.T) {
	bundle := models.ContextBundle{
		QueryText: "compare them",
		Included: []models.IncludedDocument{
			{DocumentID: "id-a", FileName: "a.pdf", Excerpt: "alpha"},
			{DocumentID: "id-b", FileName: "b.pdf", Excerpt: "beta"},
		},
	}

	prompt := BuildPrompt(models.QuerySystemPrompt, bundle)
	markerA := fmt.Sprintf(models.DocumentMarkerFormat, 1, "a.pdf", "id-a")
	markerB := fmt.Sprintf(models.DocumentMarkerFormat, 2, "b.pdf", "id-b")
	assert.Contains(t, prompt, markerA)
	assert.Contains(t, prompt, markerB)
	assert.Less(t, strings.Index(prompt, markerA), strings.Index(prompt, markerB))
}
