// Package request owns the lifecycle of a single podcast generation request.
//
// A Controller moves between Idle, Submitting, Succeeded and Failed. Submit
// validates parameters, enters Submitting synchronously and performs the
// service call on its own goroutine. Each submission is identified by a
// Handle; submitting again or resetting makes the previous handle stale, and a
// stale handle's response is dropped instead of being applied. Completed
// requests are reported exactly once through the outcome sink.
package request
