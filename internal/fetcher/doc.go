// Package fetcher retrieves feed documents over HTTP and normalizes them into
// store entries.
//
// The main components are:
//
//   - [Client]: pooled HTTP client with per-request timeouts, a body cap and
//     an optional global rate limit
//   - [Fetcher]: fetches one URL, classifies failures and parses the result
//   - [FetchError]: the failure taxonomy (timeout, network, parse_failure,
//     rate_limited)
//
// Entry keys fall back from GUID to link to title plus publish time, and
// finally to the entry's position, so every entry gets a key that is stable
// for as long as the source keeps serving it the same way.
package fetcher
