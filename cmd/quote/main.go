// Command quote prices symbols through the same provider chains the server
// uses, without touching the database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&getCmd{}, "prices")
	commander.Register(&batchCmd{}, "prices")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
