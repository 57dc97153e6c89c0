// Package notifications delivers podcast lifecycle events via ntfy.
//
// NewService publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set. Events are enumerated so the session
// coordinator and the CLI emit consistent messages without duplicating HTTP
// glue. The ready and failures toggles suppress whole event families.
package notifications
