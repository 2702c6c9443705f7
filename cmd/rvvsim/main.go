// cmd/rvvsim is the command-line interface to the vector hart simulator.
package main

import (
	"context"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rvvsim/rvvsim/internal/cli"
	"github.com/rvvsim/rvvsim/internal/cli/cmd"
	"github.com/rvvsim/rvvsim/internal/log"
)

var commands = []cli.Command{
	cmd.Regions(),
	cmd.Step(),
	cmd.Run(),
}

// Entry point. Global flags are parsed with getopt, matching the pack's
// convention (see rcornwell-S370/main.go) of a short option set ahead of
// sub-command dispatch; everything after them is handed to the Commander
// the same way the teacher's cmd/elsie does it.
func main() {
	optVerbose := getopt.BoolLong("verbose", 'v', "enable debug logging")
	optHelp := getopt.BoolLong("help", 'h', "display help")

	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	if *optVerbose {
		log.LogLevel.Set(log.Debug)
	}

	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(getopt.Args())

	os.Exit(result)
}
