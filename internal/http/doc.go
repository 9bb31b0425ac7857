// Package http provides the operations API of the capture scheduler.
//
// The router exposes the following endpoints:
//   - GET /healthz: pings the database. Response: {"status":"ok"}.
//   - POST /jobs/rooms/refresh: creates rooms for new roster locations and
//     maps them to capture resources. Response: RoomRefreshSummary.
//   - POST /jobs/cross-listings/{termID}: recomputes the term's cross-listings.
//     Response: CrossListingSummary.
//   - POST /jobs/recordings/{termID}: books recordings for every approved,
//     unscheduled section. Response: BatchSummary.
//   - GET /terms/{termID}/cross-listings: {"cross_listings":[...]}.
//   - GET /terms/{termID}/scheduled: {"scheduled":[...]}.
//
// Nothing is authenticated; bind the server to a private address. Errors are
// rendered as {"message","error_code","errors"} with Japanese messages.
package http
