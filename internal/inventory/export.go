package inventory

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteProductsCSV emits the product list with derived status.
func WriteProductsCSV(w io.Writer, products []Product) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Name", "SKU", "Stock", "Min Stock Level", "Initial Stock", "Status"}); err != nil {
		return err
	}
	for _, p := range products {
		if err := writer.Write([]string{
			p.Name,
			p.SKU,
			strconv.Itoa(p.Stock),
			strconv.Itoa(p.MinStockLevel),
			strconv.Itoa(p.InitialStock),
			string(StatusFor(p.Stock, p.MinStockLevel)),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
