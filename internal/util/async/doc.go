// Package async provides utilities for parallel task execution.
//
// Tasks are named functions; RunBounded caps how many run concurrently. It
// never cancels siblings when one fails: every task runs to completion and
// all errors are reported.
package async
