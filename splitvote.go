// Package splitvote holds the cryptographic defaults shared by the tallying
// service, its clients and the command line tools.
package splitvote

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is the cryptographic suite used throughout splitvote: Ed25519 points
// for node and administrator keys, Schnorr signatures for authenticated
// requests. Ballot shares themselves are not curve elements, they live in a
// small prime field chosen per election.
var Suite = suites.MustFind("Ed25519")
