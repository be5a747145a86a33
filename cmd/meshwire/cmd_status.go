package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/meshwire/meshwire/internal/termcolor"
	"github.com/meshwire/meshwire/pkg/connectivity"
)

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output as JSON")
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args, map[string]bool{"json": true}))

	c := mustClient(*settingsFlag)

	if *jsonFlag {
		snap, err := c.Status()
		if err != nil {
			fatal("Error: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(snap)
		return
	}

	snap, err := c.Status()
	if err != nil {
		fatal("Error: %v", err)
	}
	printStatus(snap)
}

func printStatus(snap *connectivity.Snapshot) {
	switch snap.Session.Status {
	case connectivity.SessionOnline:
		termcolor.Green("Session:  online")
	case connectivity.SessionConnecting:
		termcolor.Yellow("Session:  connecting")
	default:
		termcolor.Red("Session:  offline")
	}

	switch snap.Relay.Status {
	case connectivity.RelayConnected:
		termcolor.Green("Relay:    connected")
	case connectivity.RelayConnecting:
		termcolor.Yellow("Relay:    connecting")
	default:
		fmt.Println("Relay:    disconnected")
	}

	nat := string(snap.Stats.NATStatus)
	if snap.NATDetectionTimedOut {
		nat += " (detection timed out)"
	}
	fmt.Printf("NAT:      %s\n", nat)
	fmt.Printf("Peers:    %d\n", snap.Stats.ConnectedPeerCount)
	fmt.Printf("Uptime:   %ds\n", snap.Stats.UptimeSeconds)
	fmt.Printf("Traffic:  %d in / %d out\n", snap.Stats.BytesIn, snap.Stats.BytesOut)

	if len(snap.ListeningAddresses) > 0 {
		fmt.Println("Listening:")
		for _, addr := range snap.ListeningAddresses {
			termcolor.Faint("  %s\n", addr)
		}
	}
	if len(snap.Relay.Addresses) > 0 {
		fmt.Println("Relay addresses:")
		for _, addr := range snap.Relay.Addresses {
			termcolor.Faint("  %s\n", addr)
		}
	}
	if snap.LastError != "" {
		termcolor.Red("Last error: %s", snap.LastError)
	}
}

func runPeers(args []string) {
	fs := flag.NewFlagSet("peers", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output as JSON")
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args, map[string]bool{"json": true}))

	c := mustClient(*settingsFlag)

	peers, err := c.Peers()
	if err != nil {
		fatal("Error: %v", err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(peers)
		return
	}

	if len(peers) == 0 {
		fmt.Println("no peers")
		return
	}
	for _, p := range peers {
		state := "discovered"
		if p.Connected {
			state = "connected"
		}
		fmt.Printf("%-24s %s  %s\n", p.Friendly.Name, p.PeerID, state)
	}
}
