// Package tallying is the client side API for communicating with the
// tallying service. It also hosts the coordination logic run by the
// administrator: closing every tallier of a roster, gathering the final
// accumulators and combining them into the election result.
package tallying

import (
	"sync"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"github.com/splitvote/splitvote"
	"github.com/splitvote/splitvote/tallying/lib"
)

// ServiceName is the identifier of the service (application name).
const ServiceName = "tallying"

// Client is a structure to communicate with the tallying service.
type Client struct {
	*onet.Client
	Roster *onet.Roster
	// RetryWait is the initial pause before resending to an unreachable
	// tallier; it triples on every further attempt.
	RetryWait time.Duration
	// MaxRetry is the attempt budget per tallier before the election is
	// declared unresolved.
	MaxRetry int
}

// NewClient instantiates a new tallying.Client.
func NewClient(roster *onet.Roster) *Client {
	return &Client{
		Client:    onet.NewClient(splitvote.Suite, ServiceName),
		Roster:    roster,
		RetryWait: time.Second,
		MaxRetry:  3,
	}
}

// Ping a random tallier which increments the nonce.
func (c *Client) Ping(nonce uint32) (*Ping, error) {
	reply := &Ping{}
	err := c.SendProtobuf(c.Roster.RandomServerIdentity(), &Ping{Nonce: nonce}, reply)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Open derives the election's content ID and installs the definition on
// every tallier of its roster. admin must be the private counterpart of the
// election's AdminKey. Installation is idempotent, so re-running after a
// partial failure is safe.
func (c *Client) Open(election *lib.Election, admin kyber.Scalar) error {
	if err := election.SetID(); err != nil {
		return err
	}
	if err := election.Verify(); err != nil {
		return err
	}
	sig, err := schnorr.Sign(splitvote.Suite, admin, OpenMessage(election.ID))
	if err != nil {
		return xerrors.Errorf("signing: %v", err)
	}
	for _, si := range election.Roster.List {
		err := c.SendProtobuf(si, &Open{Election: election, Signature: sig}, &OpenReply{})
		if err != nil {
			return xerrors.Errorf("opening on %v: %w", si.Address, err)
		}
	}
	return nil
}

// GetElection fetches the election definition from the first tallier that
// returns it.
func (c *Client) GetElection(id lib.ElectionID) (*lib.Election, error) {
	errs := xerrors.New("no tallier reached")
	for _, si := range c.Roster.List {
		reply := &GetElectionReply{}
		if err := c.SendProtobuf(si, &GetElection{ID: id}, reply); err != nil {
			errs = err
			continue
		}
		if reply.Election == nil || !reply.Election.ID.Equal(id) {
			errs = xerrors.Errorf("tallier %v returned a foreign election", si.Address)
			continue
		}
		return reply.Election, nil
	}
	return nil, xerrors.Errorf("fetching election: %v", errs)
}

// SubmitBallot validates the plaintext ballot, splits it into D shares with
// fresh randomness and submits share i to tallier i, all in parallel. The
// reported outcome is definitive only because every tallier agreed on it; a
// mix means the ballot reached part of the roster only and must be treated
// as lost.
func (c *Client) SubmitBallot(election *lib.Election, voter uint32, ballot []uint32) (SubmitStatus, error) {
	if err := lib.ValidateBallot(election, ballot); err != nil {
		return 0, err
	}
	if uint64(voter) >= election.FieldSize {
		return 0, xerrors.Errorf("voter id %d outside [0, %d)", voter, election.FieldSize)
	}
	f, err := election.Field()
	if err != nil {
		return 0, err
	}
	shares, err := lib.Share(f, ballot, election.D(), random.New())
	if err != nil {
		return 0, err
	}

	statuses := make([]SubmitStatus, election.D())
	errs := make([]error, election.D())
	var wg sync.WaitGroup
	for i, si := range election.Roster.List {
		wg.Add(1)
		go func(i int, si *network.ServerIdentity) {
			defer wg.Done()
			reply := &SubmitReply{}
			msg := &Submit{ID: election.ID, Voter: voter, Share: shares[i]}
			if err := c.SendProtobuf(si, msg, reply); err != nil {
				errs[i] = xerrors.Errorf("tallier %v: %w", si.Address, err)
				return
			}
			statuses[i] = reply.Status
		}(i, si)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return 0, err
		}
	}
	for _, s := range statuses[1:] {
		if s != statuses[0] {
			return 0, xerrors.Errorf("talliers disagree on the outcome (%v vs %v)",
				statuses[0], s)
		}
	}
	return statuses[0], nil
}

// Status returns every tallier's phase and accepted count, in roster order.
func (c *Client) Status(election *lib.Election) ([]*StatusReply, error) {
	replies := make([]*StatusReply, election.D())
	for i, si := range election.Roster.List {
		reply := &StatusReply{}
		if err := c.SendProtobuf(si, &Status{ID: election.ID}, reply); err != nil {
			return nil, xerrors.Errorf("tallier %v: %w", si.Address, err)
		}
		replies[i] = reply
	}
	return replies, nil
}

// CloseAll broadcasts the close to every tallier of the roster, each with
// its own retry budget so that a slow tallier delays nobody else. Closing
// is idempotent server side, so resending after a timeout is safe. A
// tallier that stays unreachable through the whole budget leaves the
// election unresolved.
func (c *Client) CloseAll(election *lib.Election, admin kyber.Scalar) error {
	sig, err := schnorr.Sign(splitvote.Suite, admin, CloseMessage(election.ID))
	if err != nil {
		return xerrors.Errorf("signing: %v", err)
	}
	errs := make([]error, election.D())
	var wg sync.WaitGroup
	for i, si := range election.Roster.List {
		wg.Add(1)
		go func(i int, si *network.ServerIdentity) {
			defer wg.Done()
			errs[i] = c.retry(func() error {
				return c.SendProtobuf(si, &Close{ID: election.ID, Signature: sig}, &CloseReply{})
			})
		}(i, si)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return xerrors.Errorf("close not confirmed by %v: %v: %w",
				election.Roster.List[i].Address, err, lib.ErrElectionUnresolved)
		}
	}
	return nil
}

// Finalize closes the election everywhere, gathers all D final accumulators
// and combines them mod p into the aggregate result. It never combines
// fewer than D accumulators: a missing tallier also withholds its share of
// every single ballot, so any partial combination is uniform noise.
func (c *Client) Finalize(election *lib.Election, admin kyber.Scalar) (*lib.Aggregate, error) {
	if err := c.CloseAll(election, admin); err != nil {
		return nil, err
	}

	sig, err := schnorr.Sign(splitvote.Suite, admin, PartialMessage(election.ID))
	if err != nil {
		return nil, xerrors.Errorf("signing: %v", err)
	}
	accumulators := make([][]uint32, election.D())
	accepted := make([]uint32, election.D())
	errs := make([]error, election.D())
	var wg sync.WaitGroup
	for i, si := range election.Roster.List {
		wg.Add(1)
		go func(i int, si *network.ServerIdentity) {
			defer wg.Done()
			reply := &GetPartialReply{}
			errs[i] = c.retry(func() error {
				return c.SendProtobuf(si, &GetPartial{ID: election.ID, Signature: sig}, reply)
			})
			if errs[i] == nil {
				accumulators[i] = reply.Accumulator
				accepted[i] = reply.Accepted
			}
		}(i, si)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, xerrors.Errorf("accumulator missing from %v: %v: %w",
				election.Roster.List[i].Address, err, lib.ErrElectionUnresolved)
		}
	}
	voters := accepted[0]
	for _, n := range accepted[1:] {
		if n != voters {
			return nil, xerrors.Errorf("talliers disagree on the voter count "+
				"(%d vs %d), some ballots reached only part of the roster: %w",
				voters, n, lib.ErrElectionUnresolved)
		}
	}

	f, err := election.Field()
	if err != nil {
		return nil, err
	}
	counts, err := lib.Combine(f, accumulators...)
	if err != nil {
		return nil, xerrors.Errorf("combining accumulators: %w", err)
	}
	return &lib.Aggregate{Counts: counts, Voters: voters, Complete: true}, nil
}

// Result finalizes the election and resolves its winners.
func (c *Client) Result(election *lib.Election, admin kyber.Scalar) ([]lib.CandidateScore, error) {
	agg, err := c.Finalize(election, admin)
	if err != nil {
		return nil, err
	}
	return lib.Winners(election, agg)
}

// retry runs fn up to MaxRetry times, pausing RetryWait before the second
// attempt and tripling the pause after every further one.
func (c *Client) retry(fn func() error) error {
	attempts := c.MaxRetry
	if attempts < 1 {
		attempts = 1
	}
	wait := c.RetryWait
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(wait)
			wait *= 3
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
