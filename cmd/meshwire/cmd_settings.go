package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/meshwire/meshwire/internal/settings"
)

// runSettings edits the settings file directly. A running daemon keeps its
// loaded settings; changes take effect on the next daemon start.
func runSettings(args []string) {
	if len(args) < 2 {
		printSettingsUsage()
		osExit(1)
	}

	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(reorderArgs(args[2:], nil))

	value, ok := parseOnOff(args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "Expected on or off, got: %s\n", args[1])
		osExit(1)
	}

	settingsPath, err := settingsPathFromFlag(*settingsFlag)
	if err != nil {
		fatal("Cannot resolve settings path: %v", err)
	}
	cfg, err := settings.Load(settingsPath)
	if err != nil {
		fatal("Failed to load settings: %v", err)
	}

	switch args[0] {
	case "autostart":
		err = cfg.SetAutoStart(value)
	case "local-discovery":
		err = cfg.SetLocalDiscovery(value)
	default:
		fmt.Fprintf(os.Stderr, "Unknown setting: %s\n\n", args[0])
		printSettingsUsage()
		osExit(1)
		return
	}
	if err != nil {
		fatal("Failed to save settings: %v", err)
	}
	fmt.Printf("%s = %s (restart the daemon to apply)\n", args[0], args[1])
}

func parseOnOff(s string) (value, ok bool) {
	switch s {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	return false, false
}

func printSettingsUsage() {
	fmt.Println("Usage: meshwire settings <name> on|off")
	fmt.Println()
	fmt.Println("  autostart         Start the session when the daemon starts")
	fmt.Println("  local-discovery   Toggle LAN peer discovery")
}
