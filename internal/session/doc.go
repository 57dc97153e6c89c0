// Package session composes the request and playback controllers into one
// interactive podcast session.
//
// The Coordinator feeds successful generation outcomes into playback by
// resolving the artifact to its download URL, releases playback before each
// new submission, and implements ResetAll, which returns both controllers
// and the form to their initial state. Every operation that can change the
// request/playback pairing runs under a single coordinator mutex, and
// outcomes are re-checked against the live request handle before they touch
// playback, so the pair never shows a player without a succeeded request.
//
// View derives the presentation state from the two controllers. Side effects
// that leave the process (notifications, history) run in the background and
// never block the session.
package session
