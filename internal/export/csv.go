package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/harrylevesque/csms/internal/sensors"
)

// WriteReadingCSV writes one row per parameter of r.
func WriteReadingCSV(w io.Writer, r sensors.Reading, t sensors.Thresholds) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"parameter", "value", "unit", "status"}); err != nil {
		return err
	}
	for _, p := range sensors.Parameters {
		v := r.Value(p)
		rec := []string{p.Key(), formatValue(v), p.Unit(), t.Classify(p, v).Label}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeriesCSV writes readings as time plus one column per parameter.
func WriteSeriesCSV(w io.Writer, readings []sensors.Reading, layout string) error {
	cw := csv.NewWriter(w)
	head := []string{"time"}
	for _, p := range sensors.Parameters {
		head = append(head, p.Key())
	}
	if err := cw.Write(head); err != nil {
		return err
	}
	for _, r := range readings {
		rec := []string{r.Time.Format(layout)}
		for _, p := range sensors.Parameters {
			rec = append(rec, formatValue(r.Value(p)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Layouts for the series exports.
const (
	WindowLayout  = time.RFC3339
	HistoryLayout = time.DateOnly
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Filename builds a download name such as csms-report-20260102-150405.pdf.
func Filename(kind string, at time.Time, ext string) string {
	return "csms-" + kind + "-" + at.Format("20060102-150405") + "." + ext
}
