// Package export renders conversation transcripts to files. Each format
// implements the Exporter interface over the same Transcript view; the
// factory maps user-facing format names to implementations.
package export
