// Package resolver turns host/port pairs into TCP addresses for the endpoints.
//
// A lookup may produce several candidates. The selection policy is fixed and
// documented rather than "best": IPv4 candidates are ordered before IPv6 ones
// and Resolve always returns the first candidate. An empty host is the passive
// case and yields the unspecified address (0.0.0.0 first, then ::).
package resolver
