// Package retry provides exponential backoff for transient failures.
//
// [WithExponentialBackoff] retries an operation until it succeeds, the retry
// budget is spent, the context is done, or the operation returns an error the
// caller has marked as not retryable (see [Fatal] and [WithRetryIf]). It backs
// SSH connection establishment and read-only state probes; mutating remote
// commands are never wrapped in it.
package retry
