// This is a command line interface for administering elections on a roster
// of splitvote talliers: opening from a definition file, watching progress,
// closing and resolving the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/log"

	"github.com/splitvote/splitvote"
	"github.com/splitvote/splitvote/tallying"
	"github.com/splitvote/splitvote/tallying/lib"
)

var (
	argRoster = flag.String("roster", "", "path to the tallier group toml file")
	argOpen   = flag.String("open", "", "path to an election definition toml file to open")
	argID     = flag.String("id", "", "election ID")
	argKey    = flag.String("key", "", "admin private key in hex")
	argStatus = flag.Bool("status", false, "show phase and voter count of every tallier")
	argShow   = flag.Bool("show", false, "show the stored election definition")
	argClose  = flag.Bool("close", false, "close the election on every tallier")
	argResult = flag.Bool("result", false, "close the election and resolve the winners")
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
	client := tallying.NewClient(roster)

	switch {
	case *argOpen != "":
		open(client, roster)
	case *argStatus:
		status(client)
	case *argShow:
		show(client)
	case *argClose:
		closeElection(client)
	case *argResult:
		result(client)
	default:
		log.Fatal("nothing to do: give one of -open, -status, -show, -close, -result")
	}
}

// definition is the toml layout of an election definition file:
//
//	Name = "board seat"
//	Candidates = ["ada", "grace", "edsger"]
//	Rule = "plurality"
//	Winners = 1
type definition struct {
	Name       string
	Candidates []string
	Rule       string
	MaxRating  uint32
	Winners    uint32
	FieldSize  uint64
	MaxVoters  uint32
}

func open(client *tallying.Client, roster *onet.Roster) {
	var def definition
	if _, err := toml.DecodeFile(*argOpen, &def); err != nil {
		log.Fatal("cannot parse definition: ", err)
	}
	rule, err := lib.ParseRule(def.Rule)
	if err != nil {
		log.Fatal(err)
	}
	if def.FieldSize == 0 {
		def.FieldSize = lib.DefaultFieldSize
	}
	if def.Winners == 0 {
		def.Winners = 1
	}

	var private kyber.Scalar
	if *argKey != "" {
		private = adminKey()
	} else {
		kp := key.NewKeyPair(splitvote.Suite)
		private = kp.Private
		priv, err := encoding.ScalarToStringHex(splitvote.Suite, private)
		if err != nil {
			log.Fatal(err)
		}
		log.Infof("Admin private key: %v", priv)
	}

	election := &lib.Election{
		Name:       def.Name,
		Candidates: def.Candidates,
		Rule:       rule,
		MaxRating:  def.MaxRating,
		Winners:    def.Winners,
		FieldSize:  def.FieldSize,
		MaxVoters:  def.MaxVoters,
		Roster:     roster,
		AdminKey:   splitvote.Suite.Point().Mul(private, nil),
	}
	if err := client.Open(election, private); err != nil {
		log.Fatal("open: ", err)
	}
	log.Infof("Election ID: %v", election.ID)
	log.Infof("Ballot vector length: %d", election.VectorLen())
}

func status(client *tallying.Client) {
	election := fetch(client)
	replies, err := client.Status(election)
	if err != nil {
		log.Fatal("status: ", err)
	}
	for i, reply := range replies {
		fmt.Printf("%v: %v, %d voters\n",
			election.Roster.List[i].Address, reply.Phase, reply.Accepted)
	}
}

func show(client *tallying.Client) {
	e := fetch(client)
	fmt.Printf("    Name: %s\n", e.Name)
	fmt.Printf("      ID: %v\n", e.ID)
	fmt.Printf("    Rule: %v\n", e.Rule)
	fmt.Printf(" Winners: %d\n", e.Winners)
	fmt.Printf("   Field: %d\n", e.FieldSize)
	fmt.Printf("Talliers: %v\n", e.Roster.List)
	for i, c := range e.Candidates {
		fmt.Printf("  %3d: %s\n", i, c)
	}
}

func closeElection(client *tallying.Client) {
	election := fetch(client)
	if err := client.CloseAll(election, adminKey()); err != nil {
		log.Fatal("close: ", err)
	}
	log.Info("Election closed on all talliers")
}

func result(client *tallying.Client) {
	election := fetch(client)
	private := adminKey()
	agg, err := client.Finalize(election, private)
	if err != nil {
		log.Fatal("finalize: ", err)
	}
	scores, err := lib.Scores(election, agg)
	if err != nil {
		log.Fatal(err)
	}
	winners, err := lib.Winners(election, agg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Voters counted: %d\n", agg.Voters)
	for _, s := range scores {
		fmt.Printf("  %3d %-24s %d\n", s.Index, s.Name, s.Score)
	}
	fmt.Println("Winners:")
	for _, w := range winners {
		fmt.Printf("  %s\n", w.Name)
	}
}

func fetch(client *tallying.Client) *lib.Election {
	election, err := client.GetElection(electionID())
	if err != nil {
		log.Fatal("fetch election: ", err)
	}
	return election
}

func electionID() lib.ElectionID {
	if *argID == "" {
		log.Fatal("election argument (-id) is required")
	}
	id, err := lib.ParseID(*argID)
	if err != nil {
		log.Fatal("id decode: ", err)
	}
	return id
}

func adminKey() kyber.Scalar {
	if *argKey == "" {
		log.Fatal("admin key argument (-key) is required")
	}
	private, err := encoding.StringHexToScalar(splitvote.Suite, *argKey)
	if err != nil {
		log.Fatal("key decode: ", err)
	}
	return private
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
