// Package plex talks to the Plex Media Server HTTP API.
//
// Library is the narrow surface the sync worker drives: targeted section
// scans, item lookup by path or title, and metadata analysis. Facade wraps a
// Library with lazy connect/reconnect semantics so a flaky server can be
// recovered by invalidating the cached connection.
package plex
