package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X main.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" -o meshwire ./cmd/meshwire
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
	}

	switch os.Args[1] {
	case "up":
		runUp(os.Args[2:])
	case "down":
		runDown(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "peers":
		runPeers(os.Args[2:])
	case "network":
		runNetwork(os.Args[2:])
	case "relay":
		runRelay(os.Args[2:])
	case "bootstrap":
		runBootstrap(os.Args[2:])
	case "contact":
		runContact(os.Args[2:])
	case "connect":
		runConnect(os.Args[2:])
	case "settings":
		runSettings(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printVersion() {
	fmt.Printf("meshwire %s (%s) built %s\n", version, commit, buildDate)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: meshwire <command> [options]")
	fmt.Println()
	fmt.Println("Daemon:")
	fmt.Println("  up [--settings path]            Start the daemon (connectivity runtime + control API)")
	fmt.Println("  down                            Ask the running daemon to exit")
	fmt.Println()
	fmt.Println("Session:")
	fmt.Println("  network start                   Bring the peer network session online")
	fmt.Println("  network stop                    Take the session offline")
	fmt.Println("  status [--json]                 Show session, relay, NAT and traffic state")
	fmt.Println("  peers [--json]                  List known peers with friendly names")
	fmt.Println()
	fmt.Println("Relay:")
	fmt.Println("  relay connect <multiaddr>       Connect to a specific relay")
	fmt.Println("  relay public                    Connect to the built-in public relays")
	fmt.Println()
	fmt.Println("Bootstrap:")
	fmt.Println("  bootstrap list                  Show configured bootstrap nodes")
	fmt.Println("  bootstrap add <multiaddr>       Persist a bootstrap node")
	fmt.Println("  bootstrap remove <multiaddr>    Remove a bootstrap node")
	fmt.Println()
	fmt.Println("Peers:")
	fmt.Println("  contact                         Print your shareable contact link")
	fmt.Println("  connect <address-or-link>       Dial a peer multiaddr or contact link")
	fmt.Println()
	fmt.Println("Settings (daemon restart required):")
	fmt.Println("  settings autostart on|off       Start the session when the daemon starts")
	fmt.Println("  settings local-discovery on|off Toggle LAN peer discovery")
	fmt.Println()
	fmt.Println("  version                         Show version information")
	fmt.Println()
	fmt.Println("Settings live in ~/.config/meshwire/settings.yaml unless --settings is given.")
}
