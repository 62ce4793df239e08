package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/internal/utils"
	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
)

var ingestInvoicesCmd = &cobra.Command{
	Use:   "ingest-invoices",
	Short: "Ingest vendor invoice emails and their line-table attachments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-invoices", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestInvoices(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestInvoicesCmd)
	ingestInvoicesCmd.Flags().String("attachments", "", "Directory of att__<id>__*.csv attachments")
	ingestInvoicesCmd.Flags().String("email-html", "", "Directory of email__<id>_.html bodies")
	ingestInvoicesCmd.MarkFlagRequired("attachments")
	ingestInvoicesCmd.MarkFlagRequired("email-html")
}

func ingestInvoices(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	attDir, _ := cmd.Flags().GetString("attachments")
	htmlDir, _ := cmd.Flags().GetString("email-html")

	entries, err := os.ReadDir(attDir)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := intake.MatchInvoiceAttachment(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	headers := table.New(intake.InvoiceHeaderColumns...)
	lines := table.New(intake.InvoiceLineSilverColumns...)
	processed, orphans, bad := 0, 0, 0

	for _, name := range names {
		messageID, _ := intake.MatchInvoiceAttachment(name)
		log := utils.Log.WithField("attachment", name).WithField("message_id", messageID)

		emailFile := intake.InvoiceEmailFileName(messageID)
		htmlPath := filepath.Join(htmlDir, emailFile)
		body, err := os.ReadFile(htmlPath)
		if err != nil {
			orphans++
			log.Warn("no matching email body, skipping")
			continue
		}

		email, err := intake.ParseInvoiceEmail(bytes.NewReader(body))
		if err != nil {
			bad++
			log.WithError(err).Warn("unparseable email body, skipping")
			continue
		}
		att, err := os.Open(filepath.Join(attDir, name))
		if err != nil {
			return fmt.Errorf("open attachment %s: %w", name, err)
		}
		kv, attLines, perr := intake.ParseInvoiceAttachment(att)
		att.Close()
		if perr != nil {
			bad++
			log.WithError(perr).Warn("unparseable attachment, skipping")
			continue
		}

		lin := intake.InvoiceLineage{
			MessageID:      messageID,
			AttachmentFile: name,
			EmailHTMLFile:  emailFile,
			RunDate:        run.RunDate,
			RunID:          run.RunID,
			SourceSystem:   sourceSystem,
		}
		head := intake.SilverizeInvoiceHeader(email, kv, lin)
		headers.Append(head)
		for _, r := range intake.SilverizeInvoiceLines(attLines, head, lin).Rows {
			lines.Append(r)
		}
		processed++
		log.WithField("lines", attLines.Len()).Info("invoice parsed")
	}

	run.Metrics["attachments"] = len(names)
	run.Metrics["processed"] = processed
	run.Metrics["skipped_orphan"] = orphans
	run.Metrics["skipped_bad_format"] = bad
	run.Metrics["header_rows"] = headers.Len()
	run.Metrics["line_rows"] = lines.Len()

	if processed == 0 {
		utils.Log.Info("no parseable invoices, nothing written")
		return nil
	}

	// Invoices accumulate: CURRENT is the union of every intake so far,
	// deduplicated so a re-delivered message replaces its earlier rows.
	if err := writeAccumulating(lay, lakehouse.ZoneSilver, dsInvoiceHeader, run, headers, "message_id"); err != nil {
		return err
	}
	return writeAccumulating(lay, lakehouse.ZoneSilver, dsInvoiceLine, run, lines, "message_id", "line_number")
}

// writeAccumulating writes this run's rows to HISTORY and folds them into
// CURRENT, deduplicating on the key columns with the newest row winning.
func writeAccumulating(lay lakehouse.Layout, zone, dataset string, run *lakehouse.Run, t *table.Table, keys ...string) error {
	if _, err := lakehouse.WriteDataset(t, lay.Dir(zone, dataset, lakehouse.History, run.Partitions()...)); err != nil {
		return fmt.Errorf("write %s history: %w", dataset, err)
	}

	current, err := lay.ReadCurrent(zone, dataset, "")
	if err != nil && !errors.Is(err, lakehouse.ErrNotFound) {
		return err
	}

	merged := table.New(t.Cols...)
	if current != nil {
		merged.Rows = append(merged.Rows, current.Rows...)
	}
	merged.Rows = append(merged.Rows, t.Rows...)

	last := make(map[string]int, len(merged.Rows))
	for i, r := range merged.Rows {
		parts := make([]string, len(keys))
		for j, k := range keys {
			parts[j] = r[k]
		}
		last[strings.Join(parts, "|")] = i
	}
	deduped := table.New(t.Cols...)
	for i, r := range merged.Rows {
		parts := make([]string, len(keys))
		for j, k := range keys {
			parts[j] = r[k]
		}
		if last[strings.Join(parts, "|")] == i {
			deduped.Append(r)
		}
	}

	if _, err := lakehouse.WriteDataset(deduped, lay.Dir(zone, dataset, lakehouse.Current)); err != nil {
		return fmt.Errorf("write %s current: %w", dataset, err)
	}
	return nil
}
