package expenses

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

var amountPrinter = message.NewPrinter(language.MustParse("en-IN"))

// WriteCSV streams expenses as CSV.
func WriteCSV(w io.Writer, expenses []Expense) error {
	cw := csv.NewWriter(w)
	header := []string{"Date", "Category", "Description", "Amount", "Payment Method", "Reference", "Notes"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("expenses: write csv header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			e.ExpenseDate.Format("2006-01-02"),
			e.Category,
			derefString(e.Description),
			amountPrinter.Sprintf("%.2f", e.Amount),
			e.PaymentMethod,
			derefString(e.ReferenceNumber),
			derefString(e.Notes),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("expenses: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExportCSV downloads the user's expenses as a CSV sheet.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	expenses, _, err := h.service.List(r.Context(), p.UserID, ListExpensesRequest{Limit: 1000})
	if err != nil {
		h.logger.Error("export expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("expenses-%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := WriteCSV(w, expenses); err != nil {
		h.logger.Error("write expense csv", slog.Any("error", err))
	}
}
