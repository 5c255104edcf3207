package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/harrylevesque/csms/internal/alerts"
	"github.com/harrylevesque/csms/internal/sensors"
)

// ReportTitle heads the PDF report.
const ReportTitle = "Critical Space Monitoring Report"

// Report is the data rendered into the PDF.
type Report struct {
	Generated  time.Time
	Operator   string
	Reading    sensors.Reading
	Thresholds sensors.Thresholds
	Alerts     []alerts.Alert
	Window     []sensors.Reading
}

// WritePDF renders r as an A4 PDF.
func WritePDF(w io.Writer, r Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(ReportTitle, true)
	pdf.SetAuthor("CSMS", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, ReportTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	generated := "Generated " + r.Generated.Format("2006-01-02 15:04:05")
	if r.Operator != "" {
		generated += " by " + r.Operator
	}
	pdf.CellFormat(0, 6, generated, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, "Current Readings")
	header(pdf, []string{"Parameter", "Value", "Unit", "Status"}, []float64{70, 40, 30, 40})
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range sensors.Parameters {
		v := r.Reading.Value(p)
		st := r.Thresholds.Classify(p, v)
		pdf.CellFormat(70, 7, tr(pdfLabel(p)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%.1f", v), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, tr(pdfUnit(p)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, st.Label, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	section(pdf, "Active Alerts")
	pdf.SetFont("Helvetica", "", 10)
	if len(r.Alerts) == 0 {
		pdf.CellFormat(0, 7, tr("No critical alerts - all parameters within safe range."), "", 1, "L", false, 0, "")
	}
	for _, a := range r.Alerts {
		line := fmt.Sprintf("[%s] %s (%s)", strings.ToUpper(string(a.Severity)), pdfText(a.Message), a.Parameter.Format(a.Value))
		pdf.CellFormat(0, 7, tr(pdfText(line)), "", 1, "L", false, 0, "")
	}

	if len(r.Window) > 0 {
		pdf.Ln(6)
		section(pdf, "Window Statistics")
		header(pdf, []string{"Parameter", "Min", "Max", "Mean"}, []float64{70, 35, 35, 35})
		pdf.SetFont("Helvetica", "", 10)
		for _, s := range sensors.Summarize(r.Window) {
			pdf.CellFormat(70, 7, tr(pdfLabel(s.Parameter)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 7, fmt.Sprintf("%.1f", s.Min), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, fmt.Sprintf("%.1f", s.Max), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, fmt.Sprintf("%.1f", s.Mean), "1", 1, "R", false, 0, "")
		}
	}

	return pdf.Output(w)
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func header(pdf *fpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(220, 230, 240)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, c, "1", ln, "C", true, 0, "")
	}
}

// cp1252 has no subscript two, so the core fonts get plain ASCII.
func pdfText(s string) string {
	return strings.NewReplacer("₂", "2", "–", "-").Replace(s)
}

func pdfLabel(p sensors.Parameter) string { return pdfText(p.Label()) }

func pdfUnit(p sensors.Parameter) string { return pdfText(p.Unit()) }
