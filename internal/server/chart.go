package server

import (
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/countboard/countboard/internal/view"
)

const (
	chartWidth  = 760
	chartHeight = 300

	// yAxisMax keeps the vertical scale steady between refreshes so the
	// line does not jump around as readings arrive.
	yAxisMax = 15
)

// placeholderSVG is served when there are no readings to plot. go-chart
// refuses to render a series with fewer than two X values, so an empty
// document gets a static frame instead.
var placeholderSVG = fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+
	`<rect width="100%%" height="100%%" fill="#ffffff"/>`+
	`<text x="50%%" y="50%%" text-anchor="middle" fill="#8a8f98" font-family="sans-serif" font-size="14">no data</text>`+
	`</svg>`, chartWidth, chartHeight)

// renderChart writes an SVG line chart of the given points to w. A dashed
// horizontal line marks the threshold.
func renderChart(w io.Writer, points []view.DisplayPoint, threshold int) error {
	if len(points) == 0 {
		_, err := io.WriteString(w, placeholderSVG)
		return err
	}

	times := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		times[i] = p.Timestamp
		values[i] = float64(p.Value)
	}

	// go-chart requires at least two X values; duplicate a lone point one
	// second later so a fresh table still renders
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Second))
		values = append(values, values[0])
	}

	yMax := float64(yAxisMax)
	if float64(threshold) >= yMax {
		yMax = float64(threshold) + 2
	}
	for _, v := range values {
		if v >= yMax {
			yMax = v + 2
		}
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "People",
			XValues: times,
			YValues: values,
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: drawing.Color{R: 0x4c, G: 0x8b, B: 0xf5, A: 0xff},
				DotWidth:    3,
				DotColor:    drawing.Color{R: 0x4c, G: 0x8b, B: 0xf5, A: 0xff},
			},
		},
		chart.TimeSeries{
			Name:    "Threshold",
			XValues: []time.Time{times[0], times[len(times)-1]},
			YValues: []float64{float64(threshold), float64(threshold)},
			Style: chart.Style{
				StrokeWidth:     1,
				StrokeColor:     drawing.Color{R: 0xd9, G: 0x4a, B: 0x4a, A: 0xff},
				StrokeDashArray: []float64{5.0, 5.0},
			},
		},
	}

	ch := chart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 20}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04:05"),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: series,
	}

	return ch.Render(chart.SVG, w)
}
