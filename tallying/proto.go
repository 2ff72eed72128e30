package tallying

import (
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"github.com/splitvote/splitvote/tallying/lib"
)

func init() {
	network.RegisterMessages(
		Open{}, OpenReply{},
		Submit{}, SubmitReply{},
		Status{}, StatusReply{},
		Close{}, CloseReply{},
		GetPartial{}, GetPartialReply{},
		GetElection{}, GetElectionReply{},
		Ping{},
	)
}

// PROTOSTART
// package tallying_api;
// type :lib.ElectionID:bytes
// type :lib.Phase:uint32
// type :SubmitStatus:uint32
// import "tallying.proto";
//
// option java_package = "com.splitvote.proto";
// option java_outer_classname = "TallyingAPI";

// SubmitStatus is the definitive outcome a tallier reports for one
// submission. Rejections are regular replies, never silent drops, so the
// voter client can tell the classes apart without string matching.
type SubmitStatus uint32

const (
	// Accepted means the share went into the accumulator and the voter is
	// marked in the ledger.
	Accepted SubmitStatus = iota + 1
	// DuplicateVote means the voter was already in the ledger; nothing
	// changed.
	DuplicateVote
	// MalformedShare means the share had the wrong length or a component
	// outside the field, or the voter identifier was out of range.
	MalformedShare
	// VotingClosed means the election no longer accepts shares.
	VotingClosed
)

func (s SubmitStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case DuplicateVote:
		return "duplicate vote"
	case MalformedShare:
		return "malformed share"
	case VotingClosed:
		return "voting closed"
	}
	return "unknown"
}

// Err maps a rejection to its sentinel error, nil for Accepted.
func (s SubmitStatus) Err() error {
	switch s {
	case Accepted:
		return nil
	case DuplicateVote:
		return lib.ErrDuplicateVote
	case MalformedShare:
		return lib.ErrMalformedShare
	case VotingClosed:
		return lib.ErrVotingClosed
	}
	return xerrors.Errorf("unknown submit status %d", uint32(s))
}

// OpenMessage is the byte string the administrator signs to install an
// election.
func OpenMessage(id lib.ElectionID) []byte {
	return append(append([]byte{}, id...), []byte("open")...)
}

// CloseMessage is the byte string the administrator signs to close an
// election.
func CloseMessage(id lib.ElectionID) []byte {
	return append(append([]byte{}, id...), []byte("close")...)
}

// PartialMessage is the byte string the administrator signs to fetch a final
// accumulator.
func PartialMessage(id lib.ElectionID) []byte {
	return append(append([]byte{}, id...), []byte("partial")...)
}

// Open asks a tallier to install an election. Idempotent for an identical
// definition, rejected for a definition that does not match its ID.
type Open struct {
	Election *lib.Election
	// Signature by the admin key over OpenMessage(ID).
	Signature []byte
}

// OpenReply acknowledges the installation.
type OpenReply struct {
	ID lib.ElectionID
}

// Submit carries one voter's share to one tallier.
type Submit struct {
	ID lib.ElectionID
	// Voter is the voter identifier, an integer in [0, p).
	Voter uint32
	// Share is this tallier's additive share of the ballot vector.
	Share []uint32
}

// SubmitReply reports the definitive outcome. It never echoes accumulator
// contents.
type SubmitReply struct {
	Status SubmitStatus
}

// Status asks for the public counters of an election.
type Status struct {
	ID lib.ElectionID
}

// StatusReply holds the phase and the accepted-voter count, nothing else.
type StatusReply struct {
	Phase lib.Phase
	// Accepted is the number of voters in the ledger.
	Accepted uint32
}

// Close asks a tallier to stop accepting shares. Closing a closed election
// succeeds without any effect.
type Close struct {
	ID lib.ElectionID
	// Signature by the admin key over CloseMessage(ID).
	Signature []byte
}

// CloseReply reports the phase after the close took effect.
type CloseReply struct {
	Phase lib.Phase
	// Accepted is the final number of voters in the ledger.
	Accepted uint32
}

// GetPartial asks a closed tallier for its final accumulator.
type GetPartial struct {
	ID lib.ElectionID
	// Signature by the admin key over PartialMessage(ID).
	Signature []byte
}

// GetPartialReply carries one tallier's final accumulator. On its own the
// vector is uniformly random; only all D of them together reveal the result.
type GetPartialReply struct {
	Accumulator []uint32
	// Accepted is the final number of voters in the ledger.
	Accepted uint32
}

// GetElection asks for the public election definition.
type GetElection struct {
	ID lib.ElectionID
}

// GetElectionReply carries the definition as stored at open.
type GetElectionReply struct {
	Election *lib.Election
}

// Ping message, answered with the nonce incremented.
type Ping struct {
	Nonce uint32
}
