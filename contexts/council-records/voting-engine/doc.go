// Package votingengine implements ballot casting and vote tallying for
// council resolutions inside the council-records context.
//
// The module owns ballot upserts keyed by (resolution, voter), impediment
// recording, and the quorum/majority computation that decides whether a
// resolution passes. Tally results are always derived from stored ballots
// plus the eligible-voter roster; they are never persisted. Business rules
// live in the domain/application layers and infrastructure stays behind
// ports and adapters.
package votingengine
