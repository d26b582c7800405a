// Package scheduler owns a registry of cron schedules and a background poll
// loop that evaluates them once per wall-clock second.
//
// Evaluation and execution are split:
//   - the poll loop only matches schedules and queues the callbacks that hit
//   - Drain runs whatever is queued on the caller's goroutine
//
// The host decides where callbacks run by choosing who calls Drain and how
// often. Nothing in this package ever invokes a callback from the poll loop.
package scheduler
