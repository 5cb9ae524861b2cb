package main

import (
	"os"

	pmctlcmd "github.com/playmetrics-tools/pmctl/pkg/pmctl/cmd"
)

func main() {
	root := pmctlcmd.NewRootCommand(pmctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
