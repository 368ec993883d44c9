// Package utils holds the concurrency plumbing shared by the traversal and export code:
// panic recovery for worker goroutines, bounded fan-out, and batching.
package utils
