// Package services defines shared utilities consumed by the controllers and
// the generation service client.
//
// Key responsibilities:
//   - Context helpers that stamp request handles and session identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified with errors.Is at controller boundaries and turned into user
//     facing messages.
package services
