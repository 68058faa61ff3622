// Package retry implements exponential backoff with jitter for
// delivery attempts.
//
// Policy is pure arithmetic (Delay, ShouldRetry) plus an execution
// wrapper (Do) that re-runs a fallible operation while the failure is
// classified as transient. Classification is structured: Retryable
// inspects transport error kinds and net.Error timeouts, never error
// message text.
package retry
