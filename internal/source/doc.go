// Package source provides the HTTP client for the remote readings table.
//
// This package is internal to countboard and owns the single read query the
// dashboard issues: the most recent people-count rows, ordered by creation
// time ascending, optionally capped. It speaks the PostgREST-style query
// dialect of managed table services (select / order / limit parameters with
// an API key header).
//
// The main components are:
//
//   - [Client]: pooled HTTP client bound to one table
//   - [Reading]: one validated people-count row
//   - [FetchError]: transport or non-2xx failure
//   - [ParseError]: a row the service returned that fails validation
//
// Users of the countboard library should not need to interact with this
// package directly. Sources are configured through the main countboard
// package.
package source
