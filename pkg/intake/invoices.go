package intake

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/gridscope/gridscope/pkg/table"
)

// Vendor invoices arrive as an email export: one HTML body per message
// plus one line-table attachment. The body carries the procurement
// header (supplier, invoice number, total), the attachment carries the
// per-floc lines.

// invoiceAttachmentRe matches the exporter's attachment naming:
// att__<messageID>__<original name>.csv.
var invoiceAttachmentRe = regexp.MustCompile(`(?i)^att__([^_]+)__.+\.csv$`)

// MatchInvoiceAttachment extracts the message id an attachment belongs to.
func MatchInvoiceAttachment(name string) (messageID string, ok bool) {
	m := invoiceAttachmentRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// InvoiceEmailFileName is the exporter's name for a message's HTML body.
func InvoiceEmailFileName(messageID string) string {
	return "email__" + messageID + "_.html"
}

// InvoiceEmail holds the header fields parsed out of the procurement
// email body. String fields are "" when the body does not carry them.
type InvoiceEmail struct {
	Preparer              string
	InvoiceReconciliation string
	SupplierInvoiceNumber string
	Supplier              string
	InvoiceDate           string
	CompanyCode           string
	TotalAmountText       string
	TotalAmount           decimal.Decimal
	HasTotalAmount        bool
	Currency              string
}

var (
	invoiceAmountRe   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	invoiceCurrencyRe = regexp.MustCompile(`([A-Z]{3})\s*$`)
	digitsRe          = regexp.MustCompile(`\d+`)
	wsRe              = regexp.MustCompile(`\s+`)
)

func collapseWS(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(strings.ReplaceAll(s, " ", " "), " "))
}

func normLabel(s string) string {
	return strings.ToLower(collapseWS(s))
}

// emailLabelValue finds the info-box cell whose text is exactly the
// label and returns the text of the next table row. The body renders
// each field as a label row followed by a value row.
func emailLabelValue(doc *goquery.Document, label string) string {
	target := normLabel(label)
	value := ""
	doc.Find("span, p, td").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if normLabel(s.Text()) != target {
			return true
		}
		tr := s.Closest("tr")
		if tr.Length() == 0 {
			return true
		}
		next := tr.Next()
		if next.Length() == 0 {
			return true
		}
		if v := table.CleanString(collapseWS(next.Text())); v != "" {
			value = v
			return false
		}
		return true
	})
	return value
}

// ParseInvoiceEmail parses one procurement email body.
func ParseInvoiceEmail(r io.Reader) (*InvoiceEmail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse invoice email: %w", err)
	}

	e := &InvoiceEmail{
		Preparer:              emailLabelValue(doc, "On behalf of / Preparer"),
		InvoiceReconciliation: emailLabelValue(doc, "Invoice Reconciliation"),
		SupplierInvoiceNumber: emailLabelValue(doc, "Supplier Invoice #"),
		Supplier:              emailLabelValue(doc, "Supplier"),
		CompanyCode:           emailLabelValue(doc, "Company Code"),
		TotalAmountText:       emailLabelValue(doc, "Total Amount"),
	}
	if d, ok := table.ParseDate(emailLabelValue(doc, "Invoice Date")); ok {
		e.InvoiceDate = table.FormatDate(d)
	}
	if e.TotalAmountText != "" {
		if m := invoiceCurrencyRe.FindStringSubmatch(e.TotalAmountText); m != nil {
			e.Currency = m[1]
		}
		raw := strings.ReplaceAll(e.TotalAmountText, ",", "")
		if num := invoiceAmountRe.FindString(raw); num != "" {
			if amt, err := decimal.NewFromString(num); err == nil {
				e.TotalAmount = amt
				e.HasTotalAmount = true
			}
		}
	}
	return e, nil
}

// invoiceLineCols are the attachment's line-table headers. The header
// row sits below a free-form key/value preamble, so the attachment is
// scanned rather than read as a plain table.
var invoiceLineCols = []string{
	"FLOC_ID",
	"SCE_STRUCT",
	"PHOTO_LOC",
	"FLIGHT_DATE",
	"UPLOAD_DATE",
	"VENDOR_STATUS",
	"BLOCK_ID",
	"UNIT_RATE",
}

const invoiceHeaderScanRows = 80

// invoiceHeaderLabels maps preamble keys to the label spellings the
// vendors use. The value is the first non-empty cell to the right of
// the label.
var invoiceHeaderLabels = map[string][]string{
	"cwa_number":            {"CWA #", "CWA#", "CWA"},
	"total_qty_structures":  {"TOTAL QTY OF STRUCTURES", "TOTAL QTY", "TOTAL QTY OF STRUCTURE"},
	"invoice_date":          {"INVOICE DATE"},
	"invoice_number":        {"INVOICE NUMBER", "INVOICE #"},
	"purchase_order_number": {"PURCHASE ORDER NO.", "PURCHASE ORDER NO", "PO", "PO NUMBER"},
	"change_order_number":   {"CHANGE ORDER NO.", "CHANGE ORDER NO", "CHANGE ORDER"},
	"payment_terms":         {"PAYMENT TERMS"},
	"due_date":              {"DUE DATE"},
	"invoice_total":         {"INVOICE TOTAL", "TOTAL"},
}

// InvoiceLineColumns is the parsed attachment shape before silverizing.
var InvoiceLineColumns = []string{
	"floc_id",
	"sce_struct",
	"photo_loc",
	"flight_date",
	"upload_date",
	"vendor_status",
	"block_id",
	"unit_rate",
	"line_number",
}

// ParseInvoiceAttachment reads an invoice attachment: the preamble
// key/value block on top, then the line table starting at the header
// row. Lines without a floc are dropped; a missing header row is a
// hard error.
func ParseInvoiceAttachment(r io.Reader) (header map[string]string, lines *table.Table, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read invoice attachment: %w", err)
	}

	headerRow := findInvoiceHeaderRow(records)
	if headerRow < 0 {
		return nil, nil, fmt.Errorf("invoice attachment: no line-table header row with columns %v", invoiceLineCols)
	}
	header = extractInvoiceHeaderKV(records[:headerRow])

	colIdx := make(map[string]int, len(records[headerRow]))
	for i, c := range records[headerRow] {
		colIdx[normLabel(c)] = i
	}
	cell := func(rec []string, name string) string {
		i, ok := colIdx[normLabel(name)]
		if !ok || i >= len(rec) {
			return ""
		}
		return table.CleanString(rec[i])
	}

	lines = table.New(InvoiceLineColumns...)
	n := 0
	for _, rec := range records[headerRow+1:] {
		empty := true
		for _, c := range invoiceLineCols {
			if cell(rec, c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		floc := cell(rec, "FLOC_ID")
		if floc == "" {
			continue
		}
		n++
		row := table.Row{
			"floc_id":       floc,
			"sce_struct":    cell(rec, "SCE_STRUCT"),
			"photo_loc":     cell(rec, "PHOTO_LOC"),
			"vendor_status": cell(rec, "VENDOR_STATUS"),
			"block_id":      cell(rec, "BLOCK_ID"),
			"unit_rate":     parseInvoiceAmount(cell(rec, "UNIT_RATE")),
			"line_number":   strconv.Itoa(n),
		}
		if d, ok := table.ParseDate(cell(rec, "FLIGHT_DATE")); ok {
			row["flight_date"] = table.FormatDate(d)
		}
		if d, ok := table.ParseDate(cell(rec, "UPLOAD_DATE")); ok {
			row["upload_date"] = table.FormatDate(d)
		}
		lines.Append(row)
	}
	return header, lines, nil
}

func findInvoiceHeaderRow(records [][]string) int {
	scan := len(records)
	if scan > invoiceHeaderScanRows {
		scan = invoiceHeaderScanRows
	}
	for i := 0; i < scan; i++ {
		have := make(map[string]bool, len(records[i]))
		for _, c := range records[i] {
			if v := normLabel(c); v != "" {
				have[v] = true
			}
		}
		all := true
		for _, c := range invoiceLineCols {
			if !have[normLabel(c)] {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

func extractInvoiceHeaderKV(records [][]string) map[string]string {
	want := make(map[string]string)
	for key, variants := range invoiceHeaderLabels {
		for _, v := range variants {
			want[normLabel(v)] = key
		}
	}

	out := make(map[string]string)
	for _, rec := range records {
		for c, cellVal := range rec {
			key, ok := want[normLabel(cellVal)]
			if !ok {
				continue
			}
			if _, done := out[key]; done {
				continue
			}
			for cc := c + 1; cc < len(rec); cc++ {
				if v := table.CleanString(rec[cc]); v != "" {
					out[key] = v
					break
				}
			}
		}
	}

	if d, ok := table.ParseDate(out["invoice_date"]); ok {
		out["invoice_date"] = table.FormatDate(d)
	}
	if d, ok := table.ParseDate(out["due_date"]); ok {
		out["due_date"] = table.FormatDate(d)
	}
	if v, ok := out["invoice_total"]; ok {
		out["invoice_total"] = parseInvoiceAmount(v)
	}
	if v, ok := out["total_qty_structures"]; ok {
		if m := digitsRe.FindString(v); m != "" {
			out["total_qty_structures"] = m
		}
	}
	return out
}

func parseInvoiceAmount(s string) string {
	raw := strings.ReplaceAll(s, ",", "")
	num := invoiceAmountRe.FindString(raw)
	if num == "" {
		return ""
	}
	amt, err := decimal.NewFromString(num)
	if err != nil {
		return ""
	}
	return amt.String()
}

// InvoiceHeaderColumns is the silver header grain: one row per invoice
// attachment, keyed by message_id.
var InvoiceHeaderColumns = []string{
	"message_id",
	"supplier",
	"supplier_invoice_number",
	"invoice_reconciliation",
	"preparer",
	"company_code",
	"currency",
	"email_total_amount",
	"email_invoice_date",
	"cwa_number",
	"purchase_order_number",
	"change_order_number",
	"payment_terms",
	"total_qty_structures",
	"invoice_total",
	"invoice_number",
	"invoice_date",
	"due_date",
	"attachment_file",
	"email_html_file",
	"run_date",
	"run_id",
	"source_system",
}

// InvoiceLineSilverColumns is the silver line grain: one row per floc
// line, keyed by (message_id, line_number).
var InvoiceLineSilverColumns = []string{
	"message_id",
	"invoice_number",
	"supplier",
	"floc_id",
	"sce_struct",
	"photo_loc",
	"flight_date",
	"upload_date",
	"vendor_status",
	"block_id",
	"unit_rate",
	"line_number",
	"attachment_file",
	"email_html_file",
	"run_date",
	"run_id",
	"source_system",
}

// InvoiceLineage names the files one parsed invoice came from.
type InvoiceLineage struct {
	MessageID      string
	AttachmentFile string
	EmailHTMLFile  string
	RunDate        string
	RunID          string
	SourceSystem   string
}

// SilverizeInvoiceHeader merges the email fields and the attachment
// preamble into the canonical header row. The attachment's invoice
// number and date win over the email's when both are present.
func SilverizeInvoiceHeader(email *InvoiceEmail, kv map[string]string, lin InvoiceLineage) table.Row {
	invoiceNumber := kv["invoice_number"]
	if invoiceNumber == "" {
		invoiceNumber = email.SupplierInvoiceNumber
	}
	invoiceDate := kv["invoice_date"]
	if invoiceDate == "" {
		invoiceDate = email.InvoiceDate
	}
	emailTotal := ""
	if email.HasTotalAmount {
		emailTotal = email.TotalAmount.String()
	}
	return table.Row{
		"message_id":              lin.MessageID,
		"supplier":                email.Supplier,
		"supplier_invoice_number": email.SupplierInvoiceNumber,
		"invoice_reconciliation":  email.InvoiceReconciliation,
		"preparer":                email.Preparer,
		"company_code":            email.CompanyCode,
		"currency":                email.Currency,
		"email_total_amount":      emailTotal,
		"email_invoice_date":      email.InvoiceDate,
		"cwa_number":              kv["cwa_number"],
		"purchase_order_number":   kv["purchase_order_number"],
		"change_order_number":     kv["change_order_number"],
		"payment_terms":           kv["payment_terms"],
		"total_qty_structures":    kv["total_qty_structures"],
		"invoice_total":           kv["invoice_total"],
		"invoice_number":          invoiceNumber,
		"invoice_date":            invoiceDate,
		"attachment_file":         lin.AttachmentFile,
		"email_html_file":         lin.EmailHTMLFile,
		"run_date":                lin.RunDate,
		"run_id":                  lin.RunID,
		"source_system":           lin.SourceSystem,
	}
}

// SilverizeInvoiceLines stamps the canonical lines with the resolved
// header identity and lineage.
func SilverizeInvoiceLines(lines *table.Table, header table.Row, lin InvoiceLineage) *table.Table {
	out := table.New(InvoiceLineSilverColumns...)
	for _, r := range lines.Rows {
		out.Append(table.Row{
			"message_id":      lin.MessageID,
			"invoice_number":  header["invoice_number"],
			"supplier":        header["supplier"],
			"floc_id":         r["floc_id"],
			"sce_struct":      r["sce_struct"],
			"photo_loc":       r["photo_loc"],
			"flight_date":     r["flight_date"],
			"upload_date":     r["upload_date"],
			"vendor_status":   r["vendor_status"],
			"block_id":        r["block_id"],
			"unit_rate":       r["unit_rate"],
			"line_number":     r["line_number"],
			"attachment_file": lin.AttachmentFile,
			"email_html_file": lin.EmailHTMLFile,
			"run_date":        lin.RunDate,
			"run_id":          lin.RunID,
			"source_system":   lin.SourceSystem,
		})
	}
	return out
}
