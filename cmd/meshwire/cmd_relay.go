package main

import (
	"flag"
	"fmt"
	"os"
)

func runRelay(args []string) {
	if len(args) == 0 {
		printRelayUsage()
		osExit(1)
	}

	fs := flag.NewFlagSet("relay", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args[1:], nil))

	switch args[0] {
	case "connect":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Usage: meshwire relay connect <multiaddr>")
			osExit(1)
		}
		c := mustClient(*settingsFlag)
		if err := c.RelayConnect(fs.Arg(0)); err != nil {
			fatal("Error: %v", err)
		}
		fmt.Println("Relay connection requested")
	case "public":
		c := mustClient(*settingsFlag)
		if err := c.RelayPublic(); err != nil {
			fatal("Error: %v", err)
		}
		fmt.Println("Connecting to public relays")
	default:
		fmt.Fprintf(os.Stderr, "Unknown relay subcommand: %s\n\n", args[0])
		printRelayUsage()
		osExit(1)
	}
}

func printRelayUsage() {
	fmt.Println("Usage: meshwire relay <subcommand>")
	fmt.Println()
	fmt.Println("  connect <multiaddr>   Connect to a specific relay")
	fmt.Println("  public                Connect to the built-in public relays")
}
