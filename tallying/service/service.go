// Package service implements the tallier side of splitvote. A tallier
// accepts one additive share of every voter's ballot, folds it into a
// per-election accumulator, enforces at-most-once voting through a durable
// ledger and hands its final accumulator to the coordinator once the
// election is closed. On its own the accumulator is uniformly random; only
// all D of them together reveal the result.
package service

import (
	"sync"

	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"github.com/splitvote/splitvote"
	"github.com/splitvote/splitvote/tallying"
	"github.com/splitvote/splitvote/tallying/lib"
)

// serviceID is the onet identifier of the tallying service.
var serviceID onet.ServiceID

func init() {
	var err error
	serviceID, err = onet.RegisterNewService(tallying.ServiceName, newService)
	log.ErrFatal(err)
}

// Service hosts any number of elections, each with its own durable ledger,
// accumulator and phase, all keyed by the content-derived election ID.
type Service struct {
	*onet.ServiceProcessor
	store *electionStore

	mu        sync.Mutex
	elections map[string]*electionState
}

// electionState is the in-memory handle of one hosted election. Durable
// state lives in the store; the handle carries what every request needs
// plus the phase barrier.
type electionState struct {
	election *lib.Election
	field    lib.Field
	// barrier orders submissions against the close: a submission holds the
	// read side from validation to commit, a close takes the write side and
	// so waits out every in-flight fold before flipping the phase. Distinct
	// voters still fold in parallel.
	barrier sync.RWMutex
}

func newService(c *onet.Context) (onet.Service, error) {
	db, bucket := c.GetAdditionalBucket([]byte("tallying"))
	s := &Service{
		ServiceProcessor: onet.NewServiceProcessor(c),
		store:            &electionStore{db: db, bucket: bucket},
		elections:        make(map[string]*electionState),
	}
	if err := s.tryLoad(); err != nil {
		return nil, err
	}
	err := s.RegisterHandlers(s.Open, s.Submit, s.Status, s.Close,
		s.GetPartial, s.GetElection, s.Ping)
	if err != nil {
		return nil, xerrors.Errorf("registering handlers: %v", err)
	}
	return s, nil
}

// tryLoad resumes every election stored in the node database, so a restart
// loses no accepted share and re-accepts no voter.
func (s *Service) tryLoad() error {
	elections, err := s.store.elections()
	if err != nil {
		return xerrors.Errorf("loading elections: %v", err)
	}
	for _, e := range elections {
		f, err := e.Field()
		if err != nil {
			return xerrors.Errorf("election %v: %v", e.ID, err)
		}
		s.elections[string(e.ID)] = &electionState{election: e, field: f}
		phase, count, err := s.store.status(e.ID)
		if err != nil {
			return err
		}
		log.Lvlf2("%v resumed election %v (%s): %v, %d voters",
			s.ServerIdentity(), e.ID, e.Name, phase, count)
	}
	return nil
}

func (s *Service) state(id lib.ElectionID) (*electionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.elections[string(id)]
	if !ok {
		return nil, xerrors.Errorf("unknown election %v", id)
	}
	return state, nil
}

// auth verifies an administrator signature over msg.
func auth(e *lib.Election, msg, sig []byte) error {
	if err := schnorr.Verify(splitvote.Suite, e.AdminKey, msg, sig); err != nil {
		return xerrors.Errorf("unauthorized: %v", err)
	}
	return nil
}

// Open installs an election on this tallier. The definition must carry its
// content ID and an administrator signature. Reinstalling an identical
// definition is a no-op, so the administrator can simply re-run a partially
// failed broadcast.
func (s *Service) Open(req *tallying.Open) (*tallying.OpenReply, error) {
	e := req.Election
	if e == nil {
		return nil, xerrors.New("no election definition")
	}
	if err := e.Verify(); err != nil {
		return nil, xerrors.Errorf("invalid election: %v", err)
	}
	if !e.VerifyID() {
		return nil, xerrors.New("election id does not match the definition")
	}
	if err := auth(e, tallying.OpenMessage(e.ID), req.Signature); err != nil {
		return nil, err
	}
	if i, _ := e.Roster.Search(s.ServerIdentity().ID); i < 0 {
		return nil, xerrors.New("this tallier is not part of the election roster")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[string(e.ID)]; ok {
		return &tallying.OpenReply{ID: e.ID}, nil
	}
	f, err := e.Field()
	if err != nil {
		return nil, err
	}
	if err := s.store.open(e); err != nil {
		return nil, xerrors.Errorf("storing election: %v", err)
	}
	s.elections[string(e.ID)] = &electionState{election: e, field: f}
	log.Lvlf2("%v opened election %v (%s): rule %v, %d candidates, %d talliers",
		s.ServerIdentity(), e.ID, e.Name, e.Rule, e.M(), e.D())
	return &tallying.OpenReply{ID: e.ID}, nil
}

// Submit folds one voter's share into the accumulator. Every rejection is a
// definitive reply, never a silent drop, and no reply ever contains
// accumulator contents.
func (s *Service) Submit(req *tallying.Submit) (*tallying.SubmitReply, error) {
	state, err := s.state(req.ID)
	if err != nil {
		return nil, err
	}
	e := state.election

	state.barrier.RLock()
	defer state.barrier.RUnlock()

	status, count, phase, err := s.store.submit(e, state.field, req.Voter, req.Share)
	if err != nil {
		return nil, xerrors.Errorf("storing submission: %v", err)
	}
	if status == tallying.Accepted {
		log.Lvlf3("%v accepted voter %d in election %v, %d voters now",
			s.ServerIdentity(), req.Voter, e.ID, count)
		if phase == lib.Closed {
			log.Lvlf2("%v auto-closed election %v at %d voters",
				s.ServerIdentity(), e.ID, count)
		}
	}
	return &tallying.SubmitReply{Status: status}, nil
}

// Status reports the phase and the accepted count, never the accumulator.
func (s *Service) Status(req *tallying.Status) (*tallying.StatusReply, error) {
	if _, err := s.state(req.ID); err != nil {
		return nil, err
	}
	phase, count, err := s.store.status(req.ID)
	if err != nil {
		return nil, err
	}
	return &tallying.StatusReply{Phase: phase, Accepted: count}, nil
}

// Close stops the election on this tallier. It waits for every in-flight
// submission to commit, flips the phase durably and is idempotent from then
// on: closing a closed election succeeds without any effect.
func (s *Service) Close(req *tallying.Close) (*tallying.CloseReply, error) {
	state, err := s.state(req.ID)
	if err != nil {
		return nil, err
	}
	if err := auth(state.election, tallying.CloseMessage(req.ID), req.Signature); err != nil {
		return nil, err
	}

	state.barrier.Lock()
	defer state.barrier.Unlock()
	was, count, err := s.store.close(req.ID)
	if err != nil {
		return nil, xerrors.Errorf("closing: %v", err)
	}
	if was != lib.Closed {
		log.Lvlf2("%v closed election %v with %d voters",
			s.ServerIdentity(), req.ID, count)
	}
	return &tallying.CloseReply{Phase: lib.Closed, Accepted: count}, nil
}

// GetPartial hands the final accumulator to the administrator. While the
// election is accepting nothing is revealed, not even to an administrator:
// closing comes first.
func (s *Service) GetPartial(req *tallying.GetPartial) (*tallying.GetPartialReply, error) {
	state, err := s.state(req.ID)
	if err != nil {
		return nil, err
	}
	if err := auth(state.election, tallying.PartialMessage(req.ID), req.Signature); err != nil {
		return nil, err
	}
	counts, count, phase, err := s.store.partial(req.ID)
	if err != nil {
		return nil, err
	}
	if phase != lib.Closed {
		return nil, xerrors.Errorf("election %v still accepting, close it first", req.ID)
	}
	return &tallying.GetPartialReply{Accumulator: counts, Accepted: count}, nil
}

// GetElection returns the public definition as stored at open.
func (s *Service) GetElection(req *tallying.GetElection) (*tallying.GetElectionReply, error) {
	state, err := s.state(req.ID)
	if err != nil {
		return nil, err
	}
	return &tallying.GetElectionReply{Election: state.election}, nil
}

// Ping answers with the nonce incremented.
func (s *Service) Ping(req *tallying.Ping) (*tallying.Ping, error) {
	return &tallying.Ping{Nonce: req.Nonce + 1}, nil
}
