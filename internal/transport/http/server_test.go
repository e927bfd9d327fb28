package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/assembler"
	"docuchat/internal/config"
	"docuchat/internal/extract"
	"docuchat/internal/ingest"
	"docuchat/internal/query"
	"docuchat/internal/store"
)

type fakeCompleter struct {
	response string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	return f.response, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.GinMode = gin.TestMode
	cfg.Ingest.UploadFolder = t.TempDir()

	db, err := store.ConnectDB(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:http_" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	dispatcher := extract.NewDispatcher(nil)
	ingestSvc := ingest.NewService(st, dispatcher, cfg.Ingest)
	asm := assembler.New(st, cfg.Context)
	llm := &fakeCompleter{response: "the model answer"}

	router := NewRouter(cfg, Services{
		Store:        st,
		Ingest:       ingestSvc,
		Orchestrator: query.NewOrchestrator(asm, llm),
		Analysis:     query.NewAnalysisService(asm, llm, st),
	})
	return router, st
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uploadFile(t *testing.T, router *gin.Engine, fileName, content string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			DocumentID string `json:"document_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.DocumentID)
	return resp.Data.DocumentID
}

func waitReady(t *testing.T, st *store.Store, id string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := st.Get(context.Background(), id)
		require.NoError(t, err)
		if doc.Status.Terminal() {
			require.Equal(t, "ready", string(doc.Status))
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never became ready", id)
}

func TestUploadListQueryFlow(t *testing.T) {
	router, st := newTestRouter(t)

	id := uploadFile(t, router, "notes.txt", "the project ships in march")
	waitReady(t, st, id)

	w := doJSON(router, http.MethodGet, "/api/documents", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)
	assert.Contains(t, w.Body.String(), "notes.txt")

	w = doJSON(router, http.MethodPost, "/api/query", map[string]any{
		"query":        "when does the project ship?",
		"document_ids": []string{id},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "the model answer")
	assert.Contains(t, w.Body.String(), id)
}

func TestGetUnknownDocument(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/documents/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUnknownDocument(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodDelete, "/api/documents/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryWithoutSelection(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/query", map[string]any{
		"query":        "anything?",
		"document_ids": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryAllExcluded(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/query", map[string]any{
		"query":        "anything?",
		"document_ids": []string{"ghost"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "excluded")
}

func TestUploadUnsupportedFormat(t *testing.T) {
	router, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "firmware.bin")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0x00, 0x01})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadURLRejectsInvalidURL(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/documents/url", map[string]any{
		"url": "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisFlow(t *testing.T) {
	router, st := newTestRouter(t)

	id := uploadFile(t, router, "findings.txt", "three critical findings were raised")
	waitReady(t, st, id)

	w := doJSON(router, http.MethodPost, "/api/analysis", map[string]any{
		"document_ids": []string{id},
		"context":      "summarize the findings",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			AnalysisID string `json:"analysis_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AnalysisID)

	w = doJSON(router, http.MethodGet, "/api/analysis/"+resp.Data.AnalysisID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "findings.txt")

	w = doJSON(router, http.MethodGet, "/api/analysis/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "ok"))
}
