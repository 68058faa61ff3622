// Package transport ships serialized, already-encrypted entries to
// the ingestion endpoint.
//
// Sender is the delivery port the pipeline workers call; HTTPSender is
// the production implementation (POST /v1/ingest with bearer auth,
// optional gzip bodies and client-side rate limiting). Delivery
// failures are surfaced as *Error with a structured Kind so the retry
// layer can classify transient versus permanent faults without
// matching on message text.
package transport
