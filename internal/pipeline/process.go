package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gromail/internal"
	"gromail/internal/categories"
	"gromail/internal/config"
	"gromail/internal/storage"
)

// ProcessingService drives the batch loop: one email is fully parsed and
// stored before the next begins. A fatal error in one email marks that email
// failed and the loop continues; it never aborts the batch.
type ProcessingService struct {
	db   *storage.DB
	cfg  config.Config
	cats *categories.List
}

func NewProcessingService(db *storage.DB, cfg config.Config) (*ProcessingService, error) {
	cats, err := categories.Load(cfg.CategoriesPath)
	if err != nil {
		return nil, err
	}
	return &ProcessingService{db: db, cfg: cfg, cats: cats}, nil
}

type BatchResult struct {
	Processed int
	Failed    int
}

// ProcessPending works through fetched emails in receipt order. Per-email
// failures are recorded on the email row and counted, not propagated.
func (s *ProcessingService) ProcessPending(limit int, provider string) (BatchResult, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		if _, err := s.ProcessEmail(email); err != nil {
			fmt.Printf("skipping %s: %v\n", email.RawRef, err)
			if dbErr := s.db.MarkEmailFailed(email.ID, err.Error()); dbErr != nil {
				return result, dbErr
			}
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// ProcessDirectory registers every .eml file under dir and processes it,
// mirroring the offline batch flow over a local mail archive.
func (s *ProcessingService) ProcessDirectory(dir string) (BatchResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	if err != nil {
		return BatchResult{}, err
	}
	sort.Strings(paths)

	var result BatchResult
	for _, path := range paths {
		email, err := s.registerFile(path)
		if err != nil {
			return result, err
		}
		if _, err := s.ProcessEmail(email); err != nil {
			fmt.Printf("skipping %s: %v\n", path, err)
			if dbErr := s.db.MarkEmailFailed(email.ID, err.Error()); dbErr != nil {
				return result, dbErr
			}
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// ProcessEmail parses one stored email and replaces its order rows in the
// database. The parse itself is pure; all side effects happen here.
func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (internal.OrderRecords, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return internal.OrderRecords{}, err
	}

	records, err := ParseOrderEmail(raw, s.cats)
	if err != nil {
		return internal.OrderRecords{}, err
	}

	if err := s.db.ReplaceOrder(records); err != nil {
		return internal.OrderRecords{}, err
	}
	if err := s.db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		return internal.OrderRecords{}, err
	}
	return records, nil
}

func (s *ProcessingService) registerFile(path string) (internal.EmailRow, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return internal.EmailRow{}, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return internal.EmailRow{}, err
	}
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])
	return s.db.UpsertEmail("file", filepath.Base(abs), "", "", "", hash, abs, "fetched")
}
