package main

import (
	"flag"
	"fmt"
	"os"
)

func runBootstrap(args []string) {
	if len(args) == 0 {
		printBootstrapUsage()
		osExit(1)
	}

	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args[1:], nil))

	switch args[0] {
	case "list":
		c := mustClient(*settingsFlag)
		nodes, err := c.Bootstrap()
		if err != nil {
			fatal("Error: %v", err)
		}
		if len(nodes) == 0 {
			fmt.Println("no bootstrap nodes configured")
			return
		}
		for _, n := range nodes {
			fmt.Println(n)
		}
	case "add":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Usage: meshwire bootstrap add <multiaddr>")
			osExit(1)
		}
		c := mustClient(*settingsFlag)
		nodes, err := c.BootstrapAdd(fs.Arg(0))
		if err != nil {
			fatal("Error: %v", err)
		}
		fmt.Printf("Bootstrap nodes: %d\n", len(nodes))
	case "remove":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Usage: meshwire bootstrap remove <multiaddr>")
			osExit(1)
		}
		c := mustClient(*settingsFlag)
		nodes, err := c.BootstrapRemove(fs.Arg(0))
		if err != nil {
			fatal("Error: %v", err)
		}
		fmt.Printf("Bootstrap nodes: %d\n", len(nodes))
	default:
		fmt.Fprintf(os.Stderr, "Unknown bootstrap subcommand: %s\n\n", args[0])
		printBootstrapUsage()
		osExit(1)
	}
}

func printBootstrapUsage() {
	fmt.Println("Usage: meshwire bootstrap <subcommand>")
	fmt.Println()
	fmt.Println("  list                 Show configured bootstrap nodes")
	fmt.Println("  add <multiaddr>      Persist a bootstrap node")
	fmt.Println("  remove <multiaddr>   Remove a bootstrap node")
}
