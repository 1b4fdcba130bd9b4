// Package view derives everything the dashboard displays from the raw
// reading set.
//
// This package is internal to countboard and holds the pure functions of
// the system: chart-ordered display points, the newest-first table, the
// threshold flag, the latest-value summary, relative-time labels, and the
// CSV export document. Every function is deterministic and side-effect
// free; the same inputs always produce the same output.
//
// The HTTP layer calls these functions on every request, and the root
// countboard package re-exports them for SDK consumers.
package view
