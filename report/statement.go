package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/lekka-app/lekka/internal/dashboard"
	"github.com/lekka-app/lekka/internal/ledger"
)

// Statement is the data printed on an owner's statement.
type Statement struct {
	ShopName     string
	GeneratedAt  time.Time
	Summary      dashboard.Summary
	Transactions []ledger.Transaction
}

var statementTemplate = template.Must(template.New("statement").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.ShopName}} statement</title>
<style>
body{font-family:sans-serif;font-size:12px;color:#222}
table{width:100%;border-collapse:collapse;margin-top:12px}
th,td{border-bottom:1px solid #ddd;padding:4px;text-align:left}
td.num,th.num{text-align:right}
.income{color:#15803d}.expense{color:#b91c1c}
</style></head><body>
<h1>{{.ShopName}}</h1>
<p>Statement for {{.Summary.Range.From}} to {{.Summary.Range.To}}, generated {{.GeneratedAt.Format "02 Jan 2006 15:04"}}</p>
<table>
<tr><th>Total income</th><td class="num income">₹{{.Summary.TotalIncome.StringFixed 2}}</td></tr>
<tr><th>Total expenses</th><td class="num expense">₹{{.Summary.TotalExpenses.StringFixed 2}}</td></tr>
<tr><th>Net profit</th><td class="num">₹{{.Summary.NetProfit.StringFixed 2}}</td></tr>
</table>
{{if .Summary.ExpenseBreakdown}}<h2>Expenses by category</h2>
<table>{{range .Summary.ExpenseBreakdown}}<tr><td>{{.Category}}</td><td class="num">₹{{.Total.StringFixed 2}}</td></tr>{{end}}</table>{{end}}
<h2>Transactions</h2>
<table>
<tr><th>Date</th><th>Type</th><th>Category</th><th>Description</th><th>Product</th><th class="num">Qty</th><th>Worker</th><th>Payment</th><th class="num">Amount</th></tr>
{{range .Transactions}}<tr>
<td>{{.Date}}</td><td class="{{.Type}}">{{.Type}}</td><td>{{.Category}}</td><td>{{.Description}}</td>
<td>{{.ProductName}}</td><td class="num">{{if .Quantity}}{{.Quantity}}{{end}}</td><td>{{.WorkerName}}</td>
<td>{{.PaymentMethod}} / {{.PaymentStatus}}</td><td class="num">₹{{.Amount.StringFixed 2}}</td>
</tr>{{else}}<tr><td colspan="9">No transactions in this period.</td></tr>{{end}}
</table>
</body></html>`))

// RenderStatementHTML produces the statement document.
func RenderStatementHTML(s Statement) (string, error) {
	if s.ShopName == "" {
		s.ShopName = "My Shop"
	}
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
