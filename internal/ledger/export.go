package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteTransactionsCSV emits transactions in the column order of the reports page.
func WriteTransactionsCSV(w io.Writer, list []Transaction) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Date", "Type", "Category", "Description", "Amount", "Product", "Quantity", "Worker", "Payment Method", "Payment Status"}); err != nil {
		return err
	}
	for _, t := range list {
		quantity := ""
		if t.Quantity != nil {
			quantity = strconv.Itoa(*t.Quantity)
		}
		if err := writer.Write([]string{
			t.Date,
			string(t.Type),
			t.Category,
			t.Description,
			t.Amount.StringFixed(2),
			t.ProductName,
			quantity,
			t.WorkerName,
			t.PaymentMethod,
			t.PaymentStatus,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
