// Package logs reads sbsconv run logs: the last N lines of a file and a
// polling follow mode that survives the file being replaced.
package logs
