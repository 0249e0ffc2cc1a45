package billing

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tilekart/tilekart/internal/platform/httpx"
	"github.com/tilekart/tilekart/internal/shared"
)

// amountPrinter renders money with Indian-English digit grouping for the
// exported sheets.
var amountPrinter = message.NewPrinter(language.MustParse("en-IN"))

// WriteCSV streams invoice summaries as CSV.
func WriteCSV(w io.Writer, invoices []InvoiceSummary) error {
	cw := csv.NewWriter(w)
	header := []string{"Invoice No", "Customer", "Invoice Date", "Due Date", "Status", "Subtotal", "GST", "Total", "Paid", "Balance"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("billing: write csv header: %w", err)
	}
	for _, inv := range invoices {
		gst := inv.CGSTAmount + inv.SGSTAmount + inv.IGSTAmount
		record := []string{
			inv.InvoiceNumber,
			inv.CustomerName,
			inv.InvoiceDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			string(inv.Status),
			formatAmount(inv.Subtotal),
			formatAmount(gst),
			formatAmount(inv.TotalAmount),
			formatAmount(inv.PaidAmount),
			formatAmount(inv.BalanceAmount),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("billing: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

// ExportCSV downloads the user's invoices as a CSV sheet.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	invoices, _, err := h.service.List(r.Context(), p.UserID, ListInvoicesRequest{Limit: 1000})
	if err != nil {
		h.logger.Error("export invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("invoices-%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := WriteCSV(w, invoices); err != nil {
		h.logger.Error("write invoice csv", slog.Any("error", err))
	}
}
