package service

import (
	"bytes"
	"encoding/binary"

	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"

	"github.com/splitvote/splitvote"
	"github.com/splitvote/splitvote/tallying"
	"github.com/splitvote/splitvote/tallying/lib"
)

// electionStore persists every election hosted by one tallier inside a
// single bucket of the node database. Key layout, all keyed by election ID:
//
//	election-<id>          the definition, written once at open
//	phase-<id>             one byte, Accepting or Closed
//	acc-<id>               the accumulator vector
//	count-<id>             big-endian accepted-voter count
//	voter-<id>-<voter>     the ledger, one marker per accepted voter
//
// Everything one submission changes (ledger mark, accumulator fold, count,
// a possible auto-close) commits in a single transaction, so a crash can
// never leave a half-applied submission behind.
type electionStore struct {
	db     *bbolt.DB
	bucket []byte
}

// accumulatorRecord wraps the vector for serialization.
type accumulatorRecord struct {
	Counts []uint32
}

func electionKey(id lib.ElectionID) []byte {
	return append([]byte("election-"), id...)
}

func phaseKey(id lib.ElectionID) []byte {
	return append([]byte("phase-"), id...)
}

func accKey(id lib.ElectionID) []byte {
	return append([]byte("acc-"), id...)
}

func countKey(id lib.ElectionID) []byte {
	return append([]byte("count-"), id...)
}

func voterKey(id lib.ElectionID, voter uint32) []byte {
	key := append([]byte("voter-"), id...)
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], voter)
	return append(key, v[:]...)
}

func readPhase(b *bbolt.Bucket, id lib.ElectionID) lib.Phase {
	buf := b.Get(phaseKey(id))
	if len(buf) != 1 {
		return 0
	}
	return lib.Phase(buf[0])
}

func putPhase(b *bbolt.Bucket, id lib.ElectionID, phase lib.Phase) error {
	return b.Put(phaseKey(id), []byte{byte(phase)})
}

func readCount(b *bbolt.Bucket, id lib.ElectionID) uint32 {
	buf := b.Get(countKey(id))
	if len(buf) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(buf)
}

func putCount(b *bbolt.Bucket, id lib.ElectionID, count uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], count)
	return b.Put(countKey(id), buf[:])
}

// open installs a new election: definition, Accepting phase, zero
// accumulator, zero count. Installing an already present election is a
// no-op, the content-derived ID guarantees the definitions match.
func (st *electionStore) open(e *lib.Election) error {
	return st.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(st.bucket)
		if b.Get(electionKey(e.ID)) != nil {
			return nil
		}
		buf, err := protobuf.Encode(e)
		if err != nil {
			return xerrors.Errorf("encoding election: %v", err)
		}
		if err := b.Put(electionKey(e.ID), buf); err != nil {
			return err
		}
		if err := putPhase(b, e.ID, lib.Accepting); err != nil {
			return err
		}
		acc, err := protobuf.Encode(&accumulatorRecord{
			Counts: make([]uint32, e.VectorLen()),
		})
		if err != nil {
			return xerrors.Errorf("encoding accumulator: %v", err)
		}
		if err := b.Put(accKey(e.ID), acc); err != nil {
			return err
		}
		return putCount(b, e.ID, 0)
	})
}

// election reads one definition back.
func (st *electionStore) election(id lib.ElectionID) (*lib.Election, error) {
	var e lib.Election
	err := st.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(st.bucket).Get(electionKey(id))
		if buf == nil {
			return xerrors.Errorf("unknown election %v", id)
		}
		return protobuf.DecodeWithConstructors(buf, &e,
			network.DefaultConstructors(splitvote.Suite))
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// elections scans every stored definition, used to resume after a restart.
func (st *electionStore) elections() ([]*lib.Election, error) {
	var list []*lib.Election
	prefix := []byte("election-")
	err := st.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(st.bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e lib.Election
			err := protobuf.DecodeWithConstructors(v, &e,
				network.DefaultConstructors(splitvote.Suite))
			if err != nil {
				return xerrors.Errorf("decoding election %x: %v", k, err)
			}
			list = append(list, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// status reads the phase and the accepted count.
func (st *electionStore) status(id lib.ElectionID) (phase lib.Phase, count uint32, err error) {
	err = st.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(st.bucket)
		phase = readPhase(b, id)
		count = readCount(b, id)
		return nil
	})
	return
}

// submit runs the whole voter-facing critical section in one transaction:
// authoritative phase check, share validation, ledger check, accumulator
// fold, count update and the auto-close when maxVoters is reached. The
// storage engine serializes writers, so two submissions of the same voter
// can never both pass the ledger check. A closed election answers
// VotingClosed no matter what the submission looks like.
func (st *electionStore) submit(e *lib.Election, f lib.Field, voter uint32,
	share []uint32) (status tallying.SubmitStatus, count uint32, phase lib.Phase, err error) {
	err = st.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(st.bucket)
		phase = readPhase(b, e.ID)
		count = readCount(b, e.ID)
		if phase != lib.Accepting {
			status = tallying.VotingClosed
			return nil
		}
		if len(share) != e.VectorLen() || f.ValidVec(share) != nil ||
			uint64(voter) >= e.FieldSize {
			status = tallying.MalformedShare
			return nil
		}
		vk := voterKey(e.ID, voter)
		if b.Get(vk) != nil {
			status = tallying.DuplicateVote
			return nil
		}

		var rec accumulatorRecord
		if err := protobuf.Decode(b.Get(accKey(e.ID)), &rec); err != nil {
			return xerrors.Errorf("decoding accumulator: %v", err)
		}
		if err := f.AddVec(rec.Counts, share); err != nil {
			return err
		}
		buf, err := protobuf.Encode(&rec)
		if err != nil {
			return xerrors.Errorf("encoding accumulator: %v", err)
		}
		if err := b.Put(accKey(e.ID), buf); err != nil {
			return err
		}
		if err := b.Put(vk, []byte{1}); err != nil {
			return err
		}
		count++
		if err := putCount(b, e.ID, count); err != nil {
			return err
		}
		if e.MaxVoters > 0 && count >= e.MaxVoters {
			if err := putPhase(b, e.ID, lib.Closed); err != nil {
				return err
			}
			phase = lib.Closed
		}
		status = tallying.Accepted
		return nil
	})
	return
}

// close flips the phase to Closed. Already closed elections stay untouched.
func (st *electionStore) close(id lib.ElectionID) (was lib.Phase, count uint32, err error) {
	err = st.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(st.bucket)
		was = readPhase(b, id)
		count = readCount(b, id)
		if was == lib.Closed {
			return nil
		}
		return putPhase(b, id, lib.Closed)
	})
	return
}

// partial reads the accumulator and the count. The caller gates on the
// phase.
func (st *electionStore) partial(id lib.ElectionID) (counts []uint32, count uint32, phase lib.Phase, err error) {
	err = st.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(st.bucket)
		phase = readPhase(b, id)
		count = readCount(b, id)
		var rec accumulatorRecord
		if err := protobuf.Decode(b.Get(accKey(id)), &rec); err != nil {
			return xerrors.Errorf("decoding accumulator: %v", err)
		}
		counts = rec.Counts
		return nil
	})
	return
}
