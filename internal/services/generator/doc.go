// Package generator is the HTTP client for the podcast generation service.
//
// It submits generation requests, resolves artifact references to download
// URLs, streams artifacts to disk and reads the voice and tone catalogs. Every
// failure is tagged with a services marker so the request controller can turn
// it into a Failed state without inspecting transport details.
package generator
