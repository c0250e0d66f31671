package google

import (
	"fmt"
	"strings"
	"time"

	gsheet "google.golang.org/api/sheets/v4"

	"dompet/internal/core"
)

// Header is the expected first row of the export sheet.
var Header = []any{"ID", "User", "Date", "Title", "Type", "Category", "Amount"}

// transactionRow renders tx as [id, user_id, date, title, type, category, amount].
// The amount is written as a plain decimal string so the sheet keeps full precision.
func transactionRow(tx core.Transaction, loc *time.Location) []any {
	return []any{
		tx.ID,
		tx.UserID,
		tx.Time(loc).Format("2006-01-02"),
		tx.Title,
		string(tx.Type),
		tx.Category,
		tx.Amount.String(),
	}
}

// findRow returns the 1-based row whose first cell equals id, or -1.
func findRow(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return -1
}

func rowRef(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:G%d", sheet, row, row)
}

func sheetIDByTitle(sheets []*gsheet.Sheet, title string) (int64, bool) {
	for _, s := range sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(s.Properties.Title), strings.TrimSpace(title)) {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}
