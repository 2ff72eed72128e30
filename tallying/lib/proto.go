package lib

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
)

// PROTOSTART
// package tallying;
// type :ElectionID:bytes
// type :Rule:uint32
// type :Phase:uint32
// import "onet.proto";
//
// option java_package = "com.splitvote.lib.proto";
// option java_outer_classname = "TallyingLib";

// Election is the definition every tallier of the roster stores verbatim.
// It is created once by the administrator and never mutated afterwards; all
// mutable state (phase, ledger, accumulator) lives next to it, keyed by ID.
type Election struct {
	// ID is the content-derived identifier, see NewID.
	ID ElectionID
	// Name is the display name.
	Name string
	// Candidates lists the M candidate names; their order is the canonical
	// candidate indexing of ballots, accumulators and scores.
	Candidates []string
	// Rule selects the counting rule.
	Rule Rule
	// MaxRating bounds a Range rating, inclusive. Ignored by other rules.
	MaxRating uint32
	// Winners is K, the number of winners to resolve.
	Winners uint32
	// FieldSize is p. All shares and accumulators are taken mod p.
	FieldSize uint64
	// MaxVoters optionally caps the accepted voters per tallier; reaching
	// the cap closes the election. Zero means no cap.
	MaxVoters uint32
	// Roster is the ordered set of the D talliers. A voter sends share i to
	// roster node i.
	Roster *onet.Roster
	// AdminKey authenticates close and accumulator requests.
	AdminKey kyber.Point
}
