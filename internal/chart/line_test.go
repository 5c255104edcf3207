package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/stretchr/testify/require"
)

func TestRenderLine(t *testing.T) {
	g := sensors.NewGenerator(9)
	var readings []sensors.Reading
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		r := g.Read()
		r.Time = start.Add(time.Duration(i) * 3 * time.Second)
		readings = append(readings, r)
	}

	var buf bytes.Buffer
	require.NoError(t, RenderLine(&buf, readings))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 720, img.Bounds().Dx())
	require.Equal(t, 310, img.Bounds().Dy())
}

func TestRenderLineSinglePoint(t *testing.T) {
	var buf bytes.Buffer
	r := sensors.Reading{Time: time.Now(), Temperature: 30, Humidity: 50}
	require.NoError(t, RenderLine(&buf, []sensors.Reading{r}))
	require.NotZero(t, buf.Len())
}

func TestRenderLineEmpty(t *testing.T) {
	require.ErrorIs(t, RenderLine(&bytes.Buffer{}, nil), ErrNoData)
}
