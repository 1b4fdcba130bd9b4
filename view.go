package countboard

import (
	"time"

	"github.com/countboard/countboard/internal/store"
	"github.com/countboard/countboard/internal/view"
)

// NoDataLabel is what [LatestLabel] returns when there are no readings.
const NoDataLabel = view.NoDataLabel

// DisplayPoint is a reading projected for display: the people count paired
// with a wall-clock label in the local time zone.
type DisplayPoint struct {
	// ID is the row identifier of the underlying reading.
	ID int64

	// Time is the reading's clock time formatted as "15:04:05".
	Time string

	// Value is the people count.
	Value int

	// Timestamp is the reading's full timestamp, used for ordering.
	Timestamp time.Time
}

// Points projects readings into display points, preserving input order.
// The chart renders points in this order.
func Points(readings []Reading) []DisplayPoint {
	return fromViewPoints(view.Points(toStoreReadings(readings)))
}

// TableRows returns the display points sorted newest first, as the
// dashboard table shows them. The sort is stable: readings with equal
// timestamps keep their input order.
func TableRows(points []DisplayPoint) []DisplayPoint {
	return fromViewPoints(view.TableRows(toViewPoints(points)))
}

// ThresholdExceeded reports whether any point's value strictly exceeds the
// threshold. Returns false when there are no points.
func ThresholdExceeded(points []DisplayPoint, threshold int) bool {
	return view.ThresholdExceeded(toViewPoints(points), threshold)
}

// Latest returns the most recent display point. The second return value is
// false when there are no points.
func Latest(points []DisplayPoint) (DisplayPoint, bool) {
	p, ok := view.Latest(toViewPoints(points))
	return DisplayPoint(p), ok
}

// LatestLabel returns the most recent people count formatted for display,
// or [NoDataLabel] when there are no points.
func LatestLabel(points []DisplayPoint) string {
	return view.LatestLabel(toViewPoints(points))
}

func toStoreReadings(readings []Reading) []store.Reading {
	out := make([]store.Reading, len(readings))
	for i, r := range readings {
		out[i] = store.Reading{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt,
			PeopleCount: r.PeopleCount,
		}
	}
	return out
}

func toViewPoints(points []DisplayPoint) []view.DisplayPoint {
	out := make([]view.DisplayPoint, len(points))
	for i, p := range points {
		out[i] = view.DisplayPoint(p)
	}
	return out
}

func fromViewPoints(points []view.DisplayPoint) []DisplayPoint {
	out := make([]DisplayPoint, len(points))
	for i, p := range points {
		out[i] = DisplayPoint(p)
	}
	return out
}
