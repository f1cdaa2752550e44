// Package health provides the health and status log used by built-in test
// components.
//
// Every lifecycle milestone and validation failure produces one Entry
// tagged with the reporting subsystem, the operation that produced it and a
// severity (STATUS or ERROR). Entries are delivered to a Logger; the
// package ships several implementations:
//
//	// Console output through slog
//	logger := health.NewSlogAdapter(slog.Default())
//
//	// Persistent CBOR log readable by bit-log
//	logger, _ := health.NewFileLogger("/var/log/bit/health.hlog")
//
//	// Both
//	logger := health.NewMultiLogger(console, file)
//
// A nil Logger is always tolerated by producers: they simply do not emit.
//
// # File Format
//
// A log file starts with a header, the CBOR array [FileMagic, FileVersion],
// followed by a stream of CBOR-encoded entries with integer keys. Reader
// checks the header, then iterates the entries, optionally applying a
// Filter. Files without a header are read as a bare entry stream.
package health
