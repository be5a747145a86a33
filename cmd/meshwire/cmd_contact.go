package main

import (
	"flag"
	"fmt"
	"os"
)

func runContact(args []string) {
	fs := flag.NewFlagSet("contact", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(args)

	c := mustClient(*settingsFlag)
	contact, err := c.Contact()
	if err != nil {
		fatal("Error: %v", err)
	}
	fmt.Println(contact)
}

func runConnect(args []string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args, nil))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshwire connect <address-or-link>")
		osExit(1)
	}

	c := mustClient(*settingsFlag)
	if err := c.Connect(fs.Arg(0)); err != nil {
		fatal("Error: %v", err)
	}
	fmt.Println("Connection requested")
}
