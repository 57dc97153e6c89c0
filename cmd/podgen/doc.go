// Package main hosts the podgen CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the generation
// service client, the local player and the session coordinator together.
// `podgen generate` runs a single request from flags; `podgen studio` is the
// interactive session with form editing, playback controls and reset. The
// remaining commands cover catalogs, history, downloads, diagnostics and
// configuration scaffolding.
package main
