// Package documentengine implements the lifecycle of formal council records
// (meeting minutes and normative resolutions) inside the council-records
// context.
//
// The module owns the per-kind status machine, append-only version snapshots
// with monotonic numbering, reviewer comment threads, and the publication
// ledger that gates the published transition. Every lifecycle transition is
// recorded in an external audit log; the document write commits first and the
// audit append retries independently.
package documentengine
