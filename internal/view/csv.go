package view

import (
	"strconv"
	"strings"
	"time"
)

// csvTimestampLayout is ISO-8601 with milliseconds and zone offset, the
// round-trippable form the export contract requires.
const csvTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// csvHeader is the fixed export header row.
const csvHeader = `"People Count","Timestamp (ISO)"`

// CSVDocument renders the chart-ordered points as a CSV export.
//
// The document is a header row followed by one row per point. Every field
// is double-quoted and rows are joined by a bare newline, with no trailing
// newline. The second field is the point's timestamp in ISO-8601 with
// milliseconds and zone, so it parses back to the original instant.
//
// This is a pure formatting operation; values never contain quotes or
// separators, so no escaping is needed.
func CSVDocument(points []DisplayPoint) []byte {
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, p := range points {
		b.WriteByte('\n')
		b.WriteByte('"')
		b.WriteString(strconv.Itoa(p.Value))
		b.WriteString(`","`)
		b.WriteString(p.Timestamp.Format(csvTimestampLayout))
		b.WriteByte('"')
	}
	return []byte(b.String())
}

// CSVFilename returns the export filename for the given date:
// people_counter_export_<YYYY-MM-DD>.csv.
func CSVFilename(date time.Time) string {
	return "people_counter_export_" + date.Format("2006-01-02") + ".csv"
}
