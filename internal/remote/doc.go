// Package remote is the HTTP client for the download service. It submits
// jobs, queries job status, and reduces every response to a closed set of
// result types so callers can switch on them exhaustively.
package remote
