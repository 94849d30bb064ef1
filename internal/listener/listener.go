package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gromail/internal/config"
	"gromail/internal/connectors"
	gmailconnector "gromail/internal/connectors/gmail"
	imapconnector "gromail/internal/connectors/imap"
	"gromail/internal/pipeline"
	"gromail/internal/storage"
)

// Service polls the mailbox on a fixed interval. Each cycle is an ordinary
// batch: fetch new order emails, process them, optionally export CSVs.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor, err := pipeline.NewProcessingService(s.db, s.cfg)
	if err != nil {
		return err
	}
	batch, err := processor.ProcessPending(s.cfg.MailListenerBatch, provider)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport {
		if err := s.exportProcessed(provider, processor); err != nil {
			return err
		}
	}

	fmt.Printf("listener cycle done provider=%s fetched=%d stored=%d processed=%d failed=%d\n",
		provider, fetchResult.Fetched, fetchResult.Stored, batch.Processed, batch.Failed)
	return nil
}

func (s *Service) exportProcessed(provider string, processor *pipeline.ProcessingService) error {
	emails, err := s.db.ListEmailsByStatus("processed", 200)
	if err != nil {
		return err
	}

	for _, email := range emails {
		if email.Provider != provider {
			continue
		}
		records, err := processor.ProcessEmail(email)
		if err != nil {
			fmt.Printf("export reprocess %s: %v\n", email.RawRef, err)
			continue
		}
		if _, err := pipeline.ExportOrderCSV(records, s.cfg.OutputDir); err != nil {
			return err
		}
		if err := s.db.UpdateEmailStatus(email.ID, "exported"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
