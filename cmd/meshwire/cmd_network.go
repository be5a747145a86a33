package main

import (
	"flag"
	"fmt"
	"os"
)

func runNetwork(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: meshwire network start|stop")
		osExit(1)
	}

	fs := flag.NewFlagSet("network", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args[1:], nil))

	c := mustClient(*settingsFlag)

	switch args[0] {
	case "start":
		if err := c.NetworkStart(); err != nil {
			fatal("Error: %v", err)
		}
		fmt.Println("Network session online")
	case "stop":
		if err := c.NetworkStop(); err != nil {
			fatal("Error: %v", err)
		}
		fmt.Println("Network session offline")
	default:
		fmt.Fprintf(os.Stderr, "Unknown network subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: meshwire network start|stop")
		osExit(1)
	}
}
