// Package syncer turns media-file-moved notifications into confirmed library
// rescans.
//
// Intake maps and resolves incoming paths, admitting at most one in-flight
// task per resolved library folder. A single Worker drains the queue and
// drives each task through its states: delay gate, cache refresh, age gate,
// scan with bounded reconnect retry, metadata reconciliation, and finalize.
// Task failures are isolated and recorded in history; the worker itself never
// stops because of one.
package syncer
