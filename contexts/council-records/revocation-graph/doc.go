// Package revocationgraph maintains the directed revocation relationships
// between resolutions. A total revocation is terminal for the original
// resolution and triggers its lifecycle transition; partial revocations
// accumulate as a read-time overlay that flags individual articles inactive
// without touching the original's status.
package revocationgraph
