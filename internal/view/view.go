package view

import (
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/countboard/countboard/internal/store"
)

// NoDataLabel is what [LatestLabel] returns for an empty reading set.
const NoDataLabel = "no data"

// timeLayout formats a point's clock-time column.
const timeLayout = "15:04:05"

// DisplayPoint is one reading shaped for display: the formatted clock time,
// the integer value, and the parsed instant used for ordering.
type DisplayPoint struct {
	// ID is the underlying reading's identifier.
	ID int64 `json:"id"`

	// Time is the reading's local clock time, formatted HH:mm:ss.
	Time string `json:"time"`

	// Value is the people count.
	Value int `json:"value"`

	// Timestamp is the reading's parsed creation instant.
	Timestamp time.Time `json:"timestamp"`
}

// Points derives one [DisplayPoint] per reading, preserving input order.
// This is the chart-ordered sequence: the fetcher returns rows ascending by
// creation time and that order is kept as-is.
func Points(readings []store.Reading) []DisplayPoint {
	points := make([]DisplayPoint, len(readings))
	for i, r := range readings {
		points[i] = DisplayPoint{
			ID:        r.ID,
			Time:      r.CreatedAt.Local().Format(timeLayout),
			Value:     r.PeopleCount,
			Timestamp: r.CreatedAt,
		}
	}
	return points
}

// TableRows returns the points sorted by timestamp strictly descending,
// newest first. The sort is stable: points with equal timestamps keep their
// input order. The input slice is not modified.
func TableRows(points []DisplayPoint) []DisplayPoint {
	rows := make([]DisplayPoint, len(points))
	copy(rows, points)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})
	return rows
}

// ThresholdExceeded reports whether any point's value is strictly greater
// than the threshold. False for an empty set regardless of threshold.
func ThresholdExceeded(points []DisplayPoint, threshold int) bool {
	for _, p := range points {
		if p.Value > threshold {
			return true
		}
	}
	return false
}

// Latest returns the chronologically last point, or ok=false when the set
// is empty. Points with equal timestamps resolve to the later one in input
// order.
func Latest(points []DisplayPoint) (DisplayPoint, bool) {
	if len(points) == 0 {
		return DisplayPoint{}, false
	}
	latest := points[0]
	for _, p := range points[1:] {
		if !p.Timestamp.Before(latest.Timestamp) {
			latest = p
		}
	}
	return latest, true
}

// LatestLabel returns the latest value as a string, or [NoDataLabel] when
// the set is empty.
func LatestLabel(points []DisplayPoint) string {
	latest, ok := Latest(points)
	if !ok {
		return NoDataLabel
	}
	return strconv.Itoa(latest.Value)
}

// RelTime describes t relative to now ("3 minutes ago"). Deterministic in
// both arguments so it stays testable.
func RelTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
