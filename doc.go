// Package logflux is the client SDK for shipping encrypted logs to a
// LogFlux ingestion endpoint.
//
// A Pipeline encrypts each submitted message (AES-256-GCM under a
// PBKDF2-derived key), buffers it in a bounded in-memory queue, and
// delivers it asynchronously through a fixed pool of workers with
// exponential-backoff retry. Back-pressure is resolved either by
// blocking the submitter or, in failsafe mode, by dropping and
// counting the entry. In failsafe mode a caller can never observe a
// delivery failure except through Stats.
//
//	cfg, err := config.Default("https://ingest.example.com", "web-1", apiKey, secret)
//	p, err := logflux.New(cfg)
//	defer p.Close()
//	p.Info("service started")
//
// The queue is purely in-memory: entries not yet delivered are lost on
// crash, and delivery is at-most-once per entry within the process.
package logflux
