// Package http provides HTTP handlers and middleware for the karnameh API.
//
// The router exposes the following endpoints:
//   - GET /meetings, POST /meetings, GET /meetings/{id}, PUT /meetings/{id},
//     DELETE /meetings/{id}: meeting management endpoints exchanging the
//     `meetingDTO` payload defined in meeting_handler.go. Recurrence rules
//     travel inline on the meeting payload.
//   - GET /meetings/{id}/occurrences?from=RFC3339&count=N: expands the next N
//     occurrences of a meeting at or after the reference instant.
//   - GET /periods/resolve?type=&year=&month=&week=&day=: maps a Jalali
//     period descriptor to its Gregorian date range and display label.
//   - POST /reports/snapshots: ensures the frozen snapshot for a closed
//     period exists and returns it. GET /reports/snapshots looks one up by
//     its key; GET /reports/snapshots/users/{id} and
//     GET /reports/snapshots/domains/{id} list stored snapshots.
//   - POST /reports/live: assembles a report over any period without
//     persisting it.
//   - GET /users, POST /users, GET /users/{id}, DELETE /users/{id} (which
//     deactivates), GET /domains, POST /domains: directory endpoints for
//     accounts and organizations.
//
// Identity rides on the X-User-ID header resolved against the user
// directory; request/response DTOs live alongside their handlers.
package http
