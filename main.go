package main

import (
	"os"

	"github.com/stream2cast/stream2cast/cmd"
)

var (
	version = "dev"
	commit  = "master"
	date    = ""
)

func main() {
	os.Exit(main1())
}

func main1() int {
	return cmd.Execute(version, commit, date)
}
