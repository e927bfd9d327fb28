package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/config"
	"docuchat/internal/extract"
	"docuchat/internal/models"
	"docuchat/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	db, err := store.ConnectDB(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:ingest_" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)

	st := store.New(db)
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, extract.NewDispatcher(nil), config.IngestConfig{
		UploadFolder:  t.TempDir(),
		MaxConcurrent: 2,
		MaxFileSizeMB: 1,
	})
	return svc, st
}

// waitTerminal polls until the document reaches ready or failed.
func waitTerminal(t *testing.T, st *store.Store, id string) models.Document {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := st.Get(context.Background(), id)
		require.NoError(t, err)
		if doc.Status.Terminal() {
			return doc
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never reached a terminal status", id)
	return models.Document{}
}

func TestUploadToReady(t *testing.T) {
	svc, st := newTestService(t)

	doc, err := svc.Upload(context.Background(), "notes.txt", "text/plain", []byte("hello ingestion"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, doc.Status)
	assert.NotEmpty(t, doc.DocumentID)

	got := waitTerminal(t, st, doc.DocumentID)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Equal(t, "hello ingestion", got.Content)
	assert.Empty(t, got.ErrorDetail)
}

func TestUploadCorruptFileFails(t *testing.T) {
	svc, st := newTestService(t)

	doc, err := svc.Upload(context.Background(), "broken.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		[]byte("not a zip archive"))
	require.NoError(t, err)

	got := waitTerminal(t, st, doc.DocumentID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorDetail)
	assert.Empty(t, got.Content)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	svc, st := newTestService(t)

	_, err := svc.Upload(context.Background(), "firmware.bin", "application/octet-stream", []byte{0x00})
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)

	// Rejected uploads leave no record behind.
	infos, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestUploadRejectsEmptyFileName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), "   ", "text/plain", []byte("x"))
	assert.ErrorIs(t, err, ErrEmptyFileName)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, _ := newTestService(t)

	big := []byte(strings.Repeat("x", 2<<20))
	_, err := svc.Upload(context.Background(), "big.txt", "text/plain", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadGuessesMIMEFromExtension(t *testing.T) {
	svc, st := newTestService(t)

	doc, err := svc.Upload(context.Background(), "readme.md", "application/octet-stream", []byte("# hi"))
	require.NoError(t, err)

	got := waitTerminal(t, st, doc.DocumentID)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Contains(t, got.Content, "hi")
}

func TestReingest(t *testing.T) {
	svc, st := newTestService(t)

	doc, err := svc.Upload(context.Background(), "notes.txt", "text/plain", []byte("original content"))
	require.NoError(t, err)
	waitTerminal(t, st, doc.DocumentID)

	re, err := svc.Reingest(context.Background(), doc.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, re.Status)
	assert.Equal(t, doc.DocumentID, re.DocumentID)

	got := waitTerminal(t, st, doc.DocumentID)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Equal(t, "original content", got.Content)
}

func TestReingestUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reingest(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteRemovesRecord(t *testing.T) {
	svc, st := newTestService(t)

	doc, err := svc.Upload(context.Background(), "notes.txt", "text/plain", []byte("bye"))
	require.NoError(t, err)
	waitTerminal(t, st, doc.DocumentID)

	require.NoError(t, svc.Delete(context.Background(), doc.DocumentID))

	_, err = st.Get(context.Background(), doc.DocumentID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), doc.DocumentID), store.ErrNotFound)
}

func TestConcurrentUploadsAllLand(t *testing.T) {
	svc, st := newTestService(t)

	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		doc, err := svc.Upload(context.Background(), "doc.txt", "text/plain", []byte("content"))
		require.NoError(t, err)
		ids = append(ids, doc.DocumentID)
	}
	svc.Wait()

	for _, id := range ids {
		got, err := st.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReady, got.Status)
	}
}
