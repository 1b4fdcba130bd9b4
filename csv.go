package countboard

import (
	"time"

	"github.com/countboard/countboard/internal/view"
)

// ExportCSV renders display points as the dashboard's CSV export document.
//
// The document has a "People Count","Timestamp (ISO)" header followed by
// one row per point in the given order. Every field is double-quoted and
// there is no trailing newline.
func ExportCSV(points []DisplayPoint) []byte {
	return view.CSVDocument(toViewPoints(points))
}

// ExportFilename returns the download filename for an export generated on
// the given date, e.g. "people_counter_export_2024-06-01.csv".
func ExportFilename(date time.Time) string {
	return view.CSVFilename(date)
}
