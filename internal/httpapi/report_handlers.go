package httpapi

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"sheetpos/backend/internal/domain"
)

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	summary, err := a.services.Reports.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date := r.URL.Query().Get("date")
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	report, err := a.services.Reports.Daily(r.Context(), date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.csv\"", report.Date))
		_, _ = w.Write([]byte(dailyReportToCSV(report)))
	case "html", "print":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dailyReportToPrintableHTML(report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	from, err := parseDateParam(query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n := parsePositiveLimit(query.Get("n"), 10, 100)
	writeJSON(w, http.StatusOK, map[string]any{"products": a.services.Reports.TopProducts(r.Context(), from, to, n)})
}

func dailyReportToCSV(report domain.DailyReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", report.Date),
		fmt.Sprintf("summary,orders,%d", report.Orders),
		fmt.Sprintf("summary,items_sold,%d", report.ItemsSold),
		fmt.Sprintf("summary,gross_sales,%s", report.GrossSales.StringFixed(2)),
		fmt.Sprintf("summary,discount,%s", report.Discount.StringFixed(2)),
		fmt.Sprintf("summary,net_sales,%s", report.NetSales.StringFixed(2)),
		fmt.Sprintf("summary,collected,%s", report.Collected.StringFixed(2)),
		fmt.Sprintf("summary,credit_issued,%s", report.CreditIssued.StringFixed(2)),
		fmt.Sprintf("summary,profit,%s", report.Profit.StringFixed(2)),
		fmt.Sprintf("summary,payments_taken,%s", report.PaymentsTaken.StringFixed(2)),
	}
	for _, status := range report.ByStatus {
		lines = append(lines, fmt.Sprintf("status,%s_orders,%d", status.Status, status.Orders))
		lines = append(lines, fmt.Sprintf("status,%s_total,%s", status.Status, status.Total.StringFixed(2)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// dailyReportHTMLTmpl renders the printable daily report. html/template escapes
// every interpolated field.
var dailyReportHTMLTmpl = template.Must(template.New("daily-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Daily Report {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Daily Report {{.Date}}</h2>
  <p>Orders: {{.Orders}} | Items sold: {{.ItemsSold}}</p>
  <p>Gross: {{.GrossSales.StringFixed 2}} | Discount: {{.Discount.StringFixed 2}} | Net: {{.NetSales.StringFixed 2}} | Profit: {{.Profit.StringFixed 2}}</p>
  <p>Collected: {{.Collected.StringFixed 2}} | Credit issued: {{.CreditIssued.StringFixed 2}} | Payments taken: {{.PaymentsTaken.StringFixed 2}}</p>

  <h3>By Status</h3>
  <table>
    <thead><tr><th>Status</th><th>Orders</th><th>Total</th></tr></thead>
    <tbody>{{range .ByStatus}}<tr><td>{{.Status}}</td><td style="text-align:right;">{{.Orders}}</td><td style="text-align:right;">{{.Total.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func dailyReportToPrintableHTML(report domain.DailyReport) string {
	var buf bytes.Buffer
	if err := dailyReportHTMLTmpl.Execute(&buf, report); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}
