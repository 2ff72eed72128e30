// This is a command line interface for casting a ballot in a splitvote
// election. The ballot is split into one share per tallier on this machine;
// no tallier ever sees the plaintext.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/log"

	"github.com/splitvote/splitvote/tallying"
	"github.com/splitvote/splitvote/tallying/lib"
)

var (
	argRoster = flag.String("roster", "", "path to the tallier group toml file")
	argID     = flag.String("id", "", "election ID")
	argVoter  = flag.Int("voter", -1, "voter identifier")
	argShow   = flag.Bool("show", false, "show the election and the expected ballot shape")
	argStatus = flag.Bool("status", false, "show phase and voter count of every tallier")
	argBallot = flag.String("ballot", "", "ballot vector, comma separated")
	argChoose = flag.Int("choose", -1, "candidate index, shorthand for plurality and veto ballots")
	argRank   = flag.String("rank", "", "candidate indices best first, shorthand for borda, copeland and maximin ballots")
)

func main() {
	flag.Parse()

	if *argRoster == "" {
		log.Fatal("roster argument (-roster) is required")
	}
	roster, err := parseRoster(*argRoster)
	if err != nil {
		log.Fatal("cannot parse roster: ", err)
	}
	if *argID == "" {
		log.Fatal("election argument (-id) is required")
	}
	id, err := lib.ParseID(*argID)
	if err != nil {
		log.Fatal("id decode: ", err)
	}

	client := tallying.NewClient(roster)
	election, err := client.GetElection(id)
	if err != nil {
		log.Fatal("fetch election: ", err)
	}

	if *argShow {
		show(election)
	}
	if *argStatus || *argShow {
		status(client, election)
		return
	}

	if *argVoter < 0 {
		log.Fatal("voter argument (-voter) is required")
	}
	ballot := buildBallot(election)
	status, err := client.SubmitBallot(election, uint32(*argVoter), ballot)
	if err != nil {
		log.Fatal("submit: ", err)
	}
	if status != tallying.Accepted {
		log.Fatal("ballot rejected: ", status)
	}
	log.Info("Ballot accepted by all talliers")
}

func show(e *lib.Election) {
	fmt.Printf("    Name: %s\n", e.Name)
	fmt.Printf("    Rule: %v\n", e.Rule)
	fmt.Printf("  Ballot: %d components\n", e.VectorLen())
	if e.Rule == lib.Range {
		fmt.Printf(" Ratings: 0..%d\n", e.MaxRating)
	}
	for i, c := range e.Candidates {
		fmt.Printf("  %3d: %s\n", i, c)
	}
}

func status(client *tallying.Client, e *lib.Election) {
	replies, err := client.Status(e)
	if err != nil {
		log.Fatal("status: ", err)
	}
	for i, reply := range replies {
		fmt.Printf("%v: %v, %d voters\n",
			e.Roster.List[i].Address, reply.Phase, reply.Accepted)
	}
}

// buildBallot turns whichever input form was given into the plaintext
// vector of the election's rule.
func buildBallot(e *lib.Election) []uint32 {
	switch {
	case *argBallot != "":
		return parseVector(*argBallot)
	case *argChoose >= 0:
		b, err := lib.OneHot(e.M(), *argChoose)
		if err != nil {
			log.Fatal(err)
		}
		return b
	case *argRank != "":
		ranking := parseRanking(*argRank)
		var b []uint32
		var err error
		if e.Rule.Pairwise() {
			b, err = lib.PairwiseFromRanking(ranking)
		} else {
			b, err = lib.BordaFromRanking(ranking)
		}
		if err != nil {
			log.Fatal(err)
		}
		return b
	}
	log.Fatal("give one of -ballot, -choose or -rank")
	return nil
}

func parseVector(s string) []uint32 {
	parts := strings.Split(s, ",")
	vector := make([]uint32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			log.Fatal("ballot component: ", err)
		}
		vector[i] = uint32(v)
	}
	return vector
}

func parseRanking(s string) []int {
	parts := strings.Split(s, ",")
	ranking := make([]int, len(parts))
	for i, part := range parts {
		c, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Fatal("ranking entry: ", err)
		}
		ranking[i] = c
	}
	return ranking
}

// parseRoster reads a group toml file and converts it to a tallier roster.
func parseRoster(path string) (*onet.Roster, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	group, err := app.ReadGroupDescToml(file)
	if err != nil {
		return nil, err
	}
	return group.Roster, nil
}
