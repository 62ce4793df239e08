package intake

import (
	"strings"
	"testing"

	"github.com/gridscope/gridscope/pkg/table"
)

func TestMatchInvoiceAttachment(t *testing.T) {
	id, ok := MatchInvoiceAttachment("att__MSG1__june invoice.csv")
	if !ok || id != "MSG1" {
		t.Fatalf("got id=%q ok=%v", id, ok)
	}
	for _, bad := range []string{"invoice.csv", "att__MSG1.csv", "att__MSG1__x.pdf", "email__MSG1_.html"} {
		if _, ok := MatchInvoiceAttachment(bad); ok {
			t.Fatalf("MatchInvoiceAttachment(%q) unexpectedly matched", bad)
		}
	}
	if got := InvoiceEmailFileName("MSG1"); got != "email__MSG1_.html" {
		t.Fatalf("email file name: %q", got)
	}
}

const invoiceEmailHTML = `<html><body><table>
<tr><td><span>Supplier</span></td></tr>
<tr><td>ACME Aerial LLC</td></tr>
<tr><td><span>Supplier Invoice #</span></td></tr>
<tr><td>INV-0042</td></tr>
<tr><td><span>Invoice Date</span></td></tr>
<tr><td>2024-06-01</td></tr>
<tr><td><span>Total Amount</span></td></tr>
<tr><td>$18,281.04 USD</td></tr>
<tr><td><span>Company Code</span></td></tr>
<tr><td>1000</td></tr>
</table></body></html>`

func TestParseInvoiceEmail(t *testing.T) {
	e, err := ParseInvoiceEmail(strings.NewReader(invoiceEmailHTML))
	if err != nil {
		t.Fatal(err)
	}
	if e.Supplier != "ACME Aerial LLC" {
		t.Fatalf("supplier: %q", e.Supplier)
	}
	if e.SupplierInvoiceNumber != "INV-0042" {
		t.Fatalf("invoice number: %q", e.SupplierInvoiceNumber)
	}
	if e.InvoiceDate != "2024-06-01" {
		t.Fatalf("invoice date: %q", e.InvoiceDate)
	}
	if e.CompanyCode != "1000" {
		t.Fatalf("company code: %q", e.CompanyCode)
	}
	if !e.HasTotalAmount || e.TotalAmount.String() != "18281.04" || e.Currency != "USD" {
		t.Fatalf("total: %v %q has=%v", e.TotalAmount, e.Currency, e.HasTotalAmount)
	}
}

func TestParseInvoiceEmailMissingFields(t *testing.T) {
	e, err := ParseInvoiceEmail(strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if e.Supplier != "" || e.HasTotalAmount {
		t.Fatalf("expected empty fields, got %+v", e)
	}
}

const invoiceAttachmentCSV = `INVOICE NUMBER,INV-0042
CWA #,CWA-77
PAYMENT TERMS,NET 45
TOTAL QTY OF STRUCTURES,250 structures
INVOICE DATE,2024-06-01
INVOICE TOTAL,"$18,281.04"
,
FLOC_ID,SCE_STRUCT,PHOTO_LOC,FLIGHT_DATE,UPLOAD_DATE,VENDOR_STATUS,BLOCK_ID,UNIT_RATE
F1,STR-1,gs://x/F1,2024-05-20,2024-05-22,COMPLETE,B1,185.50
,,,,,,,
F2,STR-2,gs://x/F2,2024-05-21,2024-05-23,COMPLETE,B1,"1,185.50"
,STR-3,gs://x/F3,2024-05-21,2024-05-23,COMPLETE,B1,185.50
`

func TestParseInvoiceAttachment(t *testing.T) {
	kv, lines, err := ParseInvoiceAttachment(strings.NewReader(invoiceAttachmentCSV))
	if err != nil {
		t.Fatal(err)
	}
	if kv["invoice_number"] != "INV-0042" || kv["cwa_number"] != "CWA-77" {
		t.Fatalf("header kv: %v", kv)
	}
	if kv["invoice_total"] != "18281.04" {
		t.Fatalf("invoice total: %q", kv["invoice_total"])
	}
	if kv["total_qty_structures"] != "250" {
		t.Fatalf("structure count: %q", kv["total_qty_structures"])
	}
	if kv["invoice_date"] != "2024-06-01" {
		t.Fatalf("invoice date: %q", kv["invoice_date"])
	}

	// Blank row skipped, blank floc dropped, two real lines remain.
	if lines.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", lines.Len(), lines.Rows)
	}
	if lines.Rows[0]["floc_id"] != "F1" || lines.Rows[0]["line_number"] != "1" {
		t.Fatalf("line 1: %v", lines.Rows[0])
	}
	if lines.Rows[0]["unit_rate"] != "185.5" || lines.Rows[0]["flight_date"] != "2024-05-20" {
		t.Fatalf("line 1 values: %v", lines.Rows[0])
	}
	if lines.Rows[1]["floc_id"] != "F2" || lines.Rows[1]["unit_rate"] != "1185.5" {
		t.Fatalf("line 2: %v", lines.Rows[1])
	}
}

func TestParseInvoiceAttachmentNoHeaderRow(t *testing.T) {
	_, _, err := ParseInvoiceAttachment(strings.NewReader("a,b\n1,2\n"))
	if err == nil {
		t.Fatal("expected an error for a missing line-table header row")
	}
}

func TestSilverizeInvoice(t *testing.T) {
	email := &InvoiceEmail{
		Supplier:              "ACME Aerial LLC",
		SupplierInvoiceNumber: "ARIBA-99",
		InvoiceDate:           "2024-06-02",
	}
	kv := map[string]string{"invoice_number": "INV-0042", "invoice_date": "2024-06-01"}
	lin := InvoiceLineage{
		MessageID:      "MSG1",
		AttachmentFile: "att__MSG1__x.csv",
		EmailHTMLFile:  "email__MSG1_.html",
		RunDate:        "2024-06-17",
		RunID:          "r1",
		SourceSystem:   "gridscope",
	}

	head := SilverizeInvoiceHeader(email, kv, lin)
	// The attachment preamble wins over the email body.
	if head["invoice_number"] != "INV-0042" || head["invoice_date"] != "2024-06-01" {
		t.Fatalf("header identity: %v", head)
	}
	if head["supplier_invoice_number"] != "ARIBA-99" || head["supplier"] != "ACME Aerial LLC" {
		t.Fatalf("email fields lost: %v", head)
	}

	lines := table.New(InvoiceLineColumns...)
	lines.Append(table.Row{"floc_id": "F1", "unit_rate": "185.5", "line_number": "1"})
	out := SilverizeInvoiceLines(lines, head, lin)
	if out.Len() != 1 {
		t.Fatalf("expected 1 line, got %d", out.Len())
	}
	if out.Rows[0]["invoice_number"] != "INV-0042" || out.Rows[0]["message_id"] != "MSG1" {
		t.Fatalf("line identity: %v", out.Rows[0])
	}
	if out.Rows[0]["run_id"] != "r1" || out.Rows[0]["attachment_file"] != "att__MSG1__x.csv" {
		t.Fatalf("line lineage: %v", out.Rows[0])
	}
}

func TestSilverizeInvoiceHeaderFallsBackToEmail(t *testing.T) {
	email := &InvoiceEmail{SupplierInvoiceNumber: "ARIBA-99", InvoiceDate: "2024-06-02"}
	head := SilverizeInvoiceHeader(email, map[string]string{}, InvoiceLineage{MessageID: "M"})
	if head["invoice_number"] != "ARIBA-99" || head["invoice_date"] != "2024-06-02" {
		t.Fatalf("fallback identity: %v", head)
	}
}
