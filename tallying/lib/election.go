// Package lib implements the building blocks of the tallying service: the
// prime field ballots are shared over, additive ballot splitting, the
// election model with its seven counting rules, and winner resolution on the
// combined aggregate.
package lib

import (
	"bytes"
	"encoding/hex"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"

	"github.com/splitvote/splitvote"
)

// MinTalliers is the smallest roster an election may run on. With fewer than
// three talliers a single curious node faces at most one honest peer, which
// defeats the point of splitting ballots.
const MinTalliers = 3

var (
	// ErrVotingClosed flags a submission against a closed election.
	ErrVotingClosed = xerrors.New("voting closed")
	// ErrDuplicateVote flags a repeated submission by the same voter.
	ErrDuplicateVote = xerrors.New("duplicate vote")
)

// Rule identifies the counting rule of an election. The numbering is part of
// the wire format.
type Rule uint32

const (
	// Plurality counts one top vote per voter.
	Plurality Rule = iota + 1
	// Range sums per-candidate ratings in [0, MaxRating].
	Range
	// Approval counts any number of approvals per voter.
	Approval
	// Veto counts one veto per voter against a candidate.
	Veto
	// Borda sums rank weights M-1 down to 0.
	Borda
	// Copeland scores pairwise wins on the preference matrix.
	Copeland
	// Maximin scores the worst pairwise margin on the preference matrix.
	Maximin
)

var ruleNames = map[Rule]string{
	Plurality: "plurality",
	Range:     "range",
	Approval:  "approval",
	Veto:      "veto",
	Borda:     "borda",
	Copeland:  "copeland",
	Maximin:   "maximin",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Pairwise returns true for the rules counted on a pairwise-preference
// matrix instead of a per-candidate vector.
func (r Rule) Pairwise() bool {
	return r == Copeland || r == Maximin
}

// ParseRule maps a rule name to its identifier.
func ParseRule(name string) (Rule, error) {
	for r, n := range ruleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, xerrors.Errorf("unknown rule %q", name)
}

// Phase is the lifecycle stage of an election on one tallier. The only
// transition is Accepting to Closed, there is no way back.
type Phase uint32

const (
	// Accepting elections fold incoming shares.
	Accepting Phase = iota + 1
	// Closed elections reject every further submission.
	Closed
)

func (p Phase) String() string {
	switch p {
	case Accepting:
		return "accepting"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// ElectionID identifies an election on every tallier of its roster. It is
// the UUIDv5 of the election definition, so the identifier commits to the
// content and all talliers derive the same one independently.
type ElectionID []byte

// Equal compares two identifiers.
func (id ElectionID) Equal(other ElectionID) bool {
	return bytes.Equal(id, other)
}

func (id ElectionID) String() string {
	u, err := uuid.FromBytes(id)
	if err != nil {
		return hex.EncodeToString(id)
	}
	return u.String()
}

// ParseID reads an identifier in the canonical UUID form.
func ParseID(s string) (ElectionID, error) {
	u, err := uuid.FromString(s)
	if err != nil {
		return nil, xerrors.Errorf("parsing election id: %v", err)
	}
	return u.Bytes(), nil
}

// NewID derives the content identifier of the election definition: the
// UUIDv5, in the URL namespace, of the hex-encoded suite hash of the encoded
// definition with the ID field blanked.
func (e *Election) NewID() (ElectionID, error) {
	c := *e
	c.ID = nil
	buf, err := protobuf.Encode(&c)
	if err != nil {
		return nil, xerrors.Errorf("encoding election: %v", err)
	}
	h := splitvote.Suite.Hash()
	h.Write(buf)
	u := uuid.NewV5(uuid.NamespaceURL, hex.EncodeToString(h.Sum(nil)))
	return u.Bytes(), nil
}

// SetID computes and stores the content identifier.
func (e *Election) SetID() error {
	id, err := e.NewID()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// VerifyID recomputes the content identifier and compares it to the stored
// one.
func (e *Election) VerifyID() bool {
	id, err := e.NewID()
	if err != nil {
		return false
	}
	return e.ID.Equal(id)
}

// Field returns the arithmetic field of the election.
func (e *Election) Field() (Field, error) {
	return NewField(e.FieldSize)
}

// M returns the candidate count.
func (e *Election) M() int {
	return len(e.Candidates)
}

// D returns the tallier count.
func (e *Election) D() int {
	if e.Roster == nil {
		return 0
	}
	return len(e.Roster.List)
}

// VectorLen is the length of ballot, share and accumulator vectors: M for
// the per-candidate rules, M*(M-1) for the pairwise rules, which ship the
// flattened preference matrix through the same pipeline.
func (e *Election) VectorLen() int {
	if e.Rule.Pairwise() {
		return e.M() * (e.M() - 1)
	}
	return e.M()
}

// maxComponent is the largest value a single ballot component can take under
// the election's rule.
func (e *Election) maxComponent() uint64 {
	switch e.Rule {
	case Range:
		return uint64(e.MaxRating)
	case Borda:
		return uint64(e.M() - 1)
	default:
		return 1
	}
}

// Verify checks the definition bounds. It does not touch the network.
func (e *Election) Verify() error {
	if e.M() < 2 {
		return xerrors.Errorf("%d candidates, need at least 2", e.M())
	}
	if e.Winners < 1 || int(e.Winners) > e.M() {
		return xerrors.Errorf("winner count %d outside [1, %d]", e.Winners, e.M())
	}
	if _, ok := ruleNames[e.Rule]; !ok {
		return xerrors.Errorf("unknown rule %d", e.Rule)
	}
	if e.Rule == Range && e.MaxRating < 1 {
		return xerrors.New("range elections need a max rating of at least 1")
	}
	if _, err := NewField(e.FieldSize); err != nil {
		return err
	}
	if e.maxComponent() >= e.FieldSize {
		return xerrors.Errorf("ballot components up to %d do not fit the field of size %d",
			e.maxComponent(), e.FieldSize)
	}
	if e.D() < MinTalliers {
		return xerrors.Errorf("%d talliers, need at least %d", e.D(), MinTalliers)
	}
	if e.AdminKey == nil {
		return xerrors.New("no administrator key")
	}
	if e.MaxVoters > 0 {
		// A full election must not wrap any aggregate component around p.
		if uint64(e.MaxVoters)*e.maxComponent() >= e.FieldSize {
			return xerrors.Errorf("field size %d cannot hold %d voters",
				e.FieldSize, e.MaxVoters)
		}
	}
	return nil
}
