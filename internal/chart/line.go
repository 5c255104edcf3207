package chart

import (
	"errors"
	"io"
	"time"

	"github.com/harrylevesque/csms/internal/sensors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when there is nothing to plot yet.
var ErrNoData = errors.New("no readings to plot")

var (
	temperatureColor = drawing.ColorFromHex("6fe3ff")
	humidityColor    = drawing.ColorFromHex("ff7d7d")
)

// RenderLine draws temperature and humidity over readings as a PNG.
func RenderLine(w io.Writer, readings []sensors.Reading) error {
	if len(readings) == 0 {
		return ErrNoData
	}
	times := make([]time.Time, 0, len(readings)+1)
	temps := make([]float64, 0, len(readings)+1)
	hums := make([]float64, 0, len(readings)+1)
	for _, r := range readings {
		times = append(times, r.Time)
		temps = append(temps, r.Temperature)
		hums = append(hums, r.Humidity)
	}
	// go-chart needs at least two X values to compute a range
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Second))
		temps = append(temps, temps[0])
		hums = append(hums, hums[0])
	}

	ch := gochart.Chart{
		Width:      720,
		Height:     310,
		Background: gochart.Style{Padding: gochart.Box{Top: 24, Left: 10, Right: 10, Bottom: 10}},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04:05"),
		},
		YAxis: gochart.YAxis{Name: "Value"},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Temperature",
				XValues: times,
				YValues: temps,
				Style:   gochart.Style{StrokeColor: temperatureColor, StrokeWidth: 2},
			},
			gochart.TimeSeries{
				Name:    "Humidity",
				XValues: times,
				YValues: hums,
				Style:   gochart.Style{StrokeColor: humidityColor, StrokeWidth: 2},
			},
		},
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch.Render(gochart.PNG, w)
}
