package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/supportbot/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
