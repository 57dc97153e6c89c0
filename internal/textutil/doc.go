// Package textutil provides small text helpers for file naming and terminal
// output.
//
// SanitizeFileName strips characters that are unsafe in file names,
// SanitizeToken folds topics into ASCII slugs, and DownloadName combines
// them to choose where a downloaded podcast is written. Truncate and Plural
// keep CLI tables tidy.
package textutil
