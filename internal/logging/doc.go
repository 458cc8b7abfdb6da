// Package logging provides opt-in file-based logging with rotation for the
// vector engine. When debug mode is enabled, comprehensive logs are written
// to disk for troubleshooting segment builds and recovery.
//
// By default logging is minimal and goes to stderr only.
package logging
