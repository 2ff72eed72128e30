// Tallier is the server binary of splitvote. It runs the tallying service,
// which stores one additive share of every ballot, folds the shares into an
// accumulator and hands the accumulator out only once the election is
// closed.
//
// You first need to set up a configuration for the server by using:
//
// 	./tallier setup
//
// Then you can launch the daemon with:
//
// 	./tallier
//
package main

import (
	"os"
	"path"

	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/cfgpath"
	"go.dedis.ch/onet/v3/log"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/splitvote/splitvote"
	"github.com/splitvote/splitvote/tallying"

	// Empty import to have the init-function called which registers the
	// tallying service.
	_ "github.com/splitvote/splitvote/tallying/service"
)

const (
	// DefaultName is the name of the binary and of its configuration
	// folder.
	DefaultName = "tallier"

	// Version of this binary.
	Version = "1.0"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = DefaultName
	cliApp.Usage = "run a splitvote tallier"
	cliApp.Version = Version
	serverFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: path.Join(cfgpath.GetConfigPath(DefaultName), app.DefaultServerConfig),
			Usage: "configuration file of the server",
		},
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
	}

	cliApp.Commands = []cli.Command{
		{
			Name:    "setup",
			Aliases: []string{"s"},
			Usage:   "Setup server configuration (interactive)",
			Action: func(c *cli.Context) error {
				if c.String("config") != "" {
					log.Fatal("[-] Configuration file option cannot be used for the 'setup' command")
				}
				if c.String("debug") != "" {
					log.Fatal("[-] Debug option cannot be used for the 'setup' command")
				}
				app.InteractiveConfig(splitvote.Suite, DefaultName)
				return nil
			},
		},
		{
			Name:  "server",
			Usage: "Start tallier server",
			Action: func(c *cli.Context) {
				runServer(c)
			},
			Flags: serverFlags,
		},
		{
			Name:      "check",
			Aliases:   []string{"c"},
			Usage:     "Check if the talliers in the group definition are up and running",
			ArgsUsage: "group definition file",
			Action:    checkGroup,
		},
	}
	cliApp.Flags = serverFlags
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	// default action
	cliApp.Action = func(c *cli.Context) error {
		runServer(c)
		return nil
	}

	err := cliApp.Run(os.Args)
	log.ErrFatal(err)
}

func runServer(ctx *cli.Context) {
	// first check the options
	config := ctx.String("config")

	app.RunServer(config)
}

// checkGroup pings every tallier of the group definition and verifies it
// answers with the incremented nonce.
func checkGroup(c *cli.Context) error {
	if c.NArg() < 1 {
		log.Fatal("please give a group definition file")
	}
	file, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer file.Close()
	group, err := app.ReadGroupDescToml(file)
	if err != nil {
		return err
	}

	for i, si := range group.Roster.List {
		client := tallying.NewClient(onet.NewRoster(group.Roster.List[i : i+1]))
		reply, err := client.Ping(uint32(i))
		if err != nil {
			log.Errorf("tallier %v: %v", si.Address, err)
			continue
		}
		if reply.Nonce != uint32(i)+1 {
			log.Errorf("tallier %v: wrong nonce %d", si.Address, reply.Nonce)
			continue
		}
		log.Infof("tallier %v: OK", si.Address)
	}
	return nil
}
