package ingest

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"docuchat/internal/config"
	"docuchat/internal/extract"
	"docuchat/internal/helper"
	"docuchat/internal/models"
	"docuchat/internal/store"
)

var (
	ErrEmptyFileName = errors.New("file name cannot be empty")
	ErrFileTooLarge  = errors.New("file exceeds the configured size limit")
)

// Service owns the ingestion pipeline: it persists raw uploads, creates the
// store record and runs extraction asynchronously. Callers poll the document
// status until it reaches ready or failed.
type Service struct {
	store      *store.Store
	dispatcher *extract.Dispatcher
	cfg        config.IngestConfig
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
}

func NewService(st *store.Store, dispatcher *extract.Dispatcher, cfg config.IngestConfig) *Service {
	return &Service{
		store:      st,
		dispatcher: dispatcher,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Upload persists the raw bytes, creates the uploaded record and schedules
// extraction. The record is either fully created or not created at all: an
// unsupported format is rejected before anything is written.
func (s *Service) Upload(ctx context.Context, fileName, mimeType string, data []byte) (models.Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return models.Document{}, ErrEmptyFileName
	}
	if len(data) > s.cfg.MaxFileSizeMB<<20 {
		return models.Document{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}

	if mimeType == "" || extract.NormalizeMIME(mimeType) == "application/octet-stream" {
		mimeType = guessMIMEType(fileName)
	}
	if _, err := extract.DetectFormat(mimeType, fileName); err != nil {
		return models.Document{}, err
	}

	if err := helper.CreateFolder(s.cfg.UploadFolder); err != nil {
		return models.Document{}, err
	}
	filePath := filepath.Join(s.cfg.UploadFolder, helper.UniqueFileName(fileName))
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return models.Document{}, err
	}

	doc, err := s.store.Create(ctx, fileName, mimeType, filePath)
	if err != nil {
		// Leave no orphaned upload behind the failed record.
		os.Remove(filePath)
		return models.Document{}, err
	}

	log.Info().Str("document_id", doc.DocumentID).Str("file_name", fileName).
		Str("mime_type", mimeType).Int("size", len(data)).Msg("document uploaded")

	s.schedule(doc, false)
	return doc, nil
}

// Reingest re-runs extraction for an existing document. The document keeps
// its id; content is reset and status goes back through processing.
func (s *Service) Reingest(ctx context.Context, documentID string) (models.Document, error) {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return models.Document{}, err
	}
	if err := s.store.ResetForReingest(ctx, documentID); err != nil {
		return models.Document{}, err
	}
	doc.Status = models.StatusProcessing

	log.Info().Str("document_id", documentID).Msg("document re-ingestion requested")
	s.schedule(doc, true)
	return doc, nil
}

// Delete removes the record and the raw file. Unknown ids surface the
// store's ErrNotFound.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	filePath, err := s.store.Delete(ctx, documentID)
	if err != nil {
		return err
	}
	if filePath != "" {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			// The record is gone; a stray file is only worth a warning.
			log.Warn().Err(err).Str("file_path", filePath).Msg("failed to remove raw file")
		}
	}
	return nil
}

// Wait blocks until all scheduled extractions have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// schedule runs extraction in its own goroutine, detached from the request
// context. Content is computed off to the side and committed in a single
// atomic update, so no lock is held across the long-running extraction.
func (s *Service) schedule(doc models.Document, reingest bool) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		if !reingest {
			if err := s.store.MarkProcessing(ctx, doc.DocumentID); err != nil {
				log.Error().Err(err).Str("document_id", doc.DocumentID).
					Msg("could not mark document processing")
				return
			}
		}
		s.runExtraction(ctx, doc)
	}()
}

func (s *Service) runExtraction(ctx context.Context, doc models.Document) {
	data, err := os.ReadFile(doc.FilePath)
	if err != nil {
		s.recordFailure(ctx, doc.DocumentID, fmt.Sprintf("raw file unreadable: %v", err))
		return
	}

	res, err := s.dispatcher.Extract(ctx, doc.FileName, doc.MIMEType, data)
	if err != nil {
		s.recordFailure(ctx, doc.DocumentID, err.Error())
		return
	}

	if err := s.store.SetReady(ctx, doc.DocumentID, res.Text, res.Metadata); err != nil {
		log.Error().Err(err).Str("document_id", doc.DocumentID).Msg("could not mark document ready")
		return
	}
	log.Info().Str("document_id", doc.DocumentID).Int("content_length", len(res.Text)).
		Msg("document ready")
}

// recordFailure lands the extraction error on the document record; async
// ingestion never raises to the uploader.
func (s *Service) recordFailure(ctx context.Context, documentID, detail string) {
	if err := s.store.SetFailed(ctx, documentID, detail); err != nil {
		log.Error().Err(err).Str("document_id", documentID).Msg("could not mark document failed")
		return
	}
	log.Warn().Str("document_id", documentID).Str("error_detail", detail).Msg("document failed")
}

func guessMIMEType(fileName string) string {
	if mt := mime.TypeByExtension(filepath.Ext(fileName)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
