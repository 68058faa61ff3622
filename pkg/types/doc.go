// Package types defines the shared Go types of the SDK: log levels,
// the LogEntry wire model accepted by the ingestion endpoint, the
// ingestion acknowledgement, and the pipeline statistics snapshot.
// These are the canonical in-memory representations, separate from any
// transport concern.
package types
