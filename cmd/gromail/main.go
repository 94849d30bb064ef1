package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gromail/internal/config"
	"gromail/internal/connectors"
	gmailconnector "gromail/internal/connectors/gmail"
	imapconnector "gromail/internal/connectors/imap"
	"gromail/internal/pipeline"
	"gromail/internal/report"
	"gromail/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d skipped=%d\n", *provider, result.Fetched, result.Stored, result.Skipped)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "restrict to gmail|imap|file")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor, err := pipeline.NewProcessingService(db, cfg)
		must(err)
		result, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("batch completed, processed=%d failed=%d\n", result.Processed, result.Failed)
	case "process:dir":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", "", "directory containing .eml files")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*dir) == "" {
			must(fmt.Errorf("--dir is required"))
		}
		processor, err := pipeline.NewProcessingService(db, cfg)
		must(err)
		result, err := processor.ProcessDirectory(*dir)
		must(err)
		fmt.Printf("batch completed, processed=%d failed=%d\n", result.Processed, result.Failed)
	case "export:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		orderNumber := fs.String("order", "", "order number; empty exports every order")
		_ = fs.Parse(os.Args[2:])
		numbers := []string{*orderNumber}
		if strings.TrimSpace(*orderNumber) == "" {
			numbers, err = db.ListOrderNumbers()
			must(err)
		}
		for _, number := range numbers {
			records, err := db.GetOrderRecords(number)
			must(err)
			if records == nil {
				must(fmt.Errorf("order not found: %s", number))
			}
			dir, err := pipeline.ExportOrderCSV(*records, cfg.OutputDir)
			must(err)
			fmt.Printf("order %s exported to %s\n", number, dir)
		}
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		orderNumber := fs.String("order", "", "order number")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*orderNumber) == "" {
			must(fmt.Errorf("--order is required"))
		}
		records, err := db.GetOrderRecords(*orderNumber)
		must(err)
		if records == nil {
			must(fmt.Errorf("order not found: %s", *orderNumber))
		}
		path := *out
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(cfg.OutputDir, "order_"+*orderNumber+".xlsx")
		}
		must(pipeline.ExportOrderXLSX(*records, path))
		fmt.Printf("order %s exported to %s\n", *orderNumber, path)
	case "report:spend":
		paths, err := report.WriteSpendReport(db, cfg.OutputDir)
		must(err)
		for _, path := range paths {
			fmt.Printf("report written: %s\n", path)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: gromail <command>")
	fmt.Println("commands:")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap|file] [--batch=20]")
	fmt.Println("  process:dir --dir=./emails")
	fmt.Println("  export:csv [--order=123456789]")
	fmt.Println("  export:xlsx --order=123456789 [--out=./out/order.xlsx]")
	fmt.Println("  report:spend")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
