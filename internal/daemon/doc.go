// Package daemon coordinates the webhook listener and the sync worker,
// enforcing single-instance execution with a file lock.
package daemon
