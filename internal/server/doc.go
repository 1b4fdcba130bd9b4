// Package server implements the HTTP layer of the dashboard: the embedded
// page, the JSON state endpoint, the SSE update stream, the SVG chart, the
// CSV export, and the threshold/polling controls.
package server
