package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/meshwire/meshwire/internal/backend"
	"github.com/meshwire/meshwire/internal/daemon"
	"github.com/meshwire/meshwire/internal/settings"
	"github.com/meshwire/meshwire/pkg/connectivity"
)

// daemonSocketPath and daemonCookiePath live next to the settings file so
// that a custom --settings location also relocates the control socket.
func daemonSocketPath(settingsPath string) string {
	return filepath.Join(filepath.Dir(settingsPath), "meshwire.sock")
}

func daemonCookiePath(settingsPath string) string {
	return filepath.Join(filepath.Dir(settingsPath), ".daemon-cookie")
}

func settingsPathFromFlag(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return settings.DefaultPath()
}

// runUp starts the daemon in the foreground: the libp2p gateway, the
// connectivity store, and the Unix socket control API.
func runUp(args []string) {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(args)

	settingsPath, err := settingsPathFromFlag(*settingsFlag)
	if err != nil {
		fatal("Cannot resolve settings path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0700); err != nil {
		fatal("Cannot create settings directory: %v", err)
	}

	cfg, err := settings.Load(settingsPath)
	if err != nil {
		fatal("Failed to load settings: %v", err)
	}
	s := cfg.Settings()

	fmt.Printf("meshwire daemon %s (%s)\n", version, commit)
	fmt.Println()

	gw := backend.New(backend.Config{
		ListenAddresses: s.Network.ListenAddresses,
		RelayAddresses:  s.Network.RelayAddresses,
		BootstrapNodes:  s.BootstrapNodes,
		LocalDiscovery:  s.LocalDiscovery,
		UserAgent:       "meshwire/" + version,
	})

	metrics := connectivity.NewMetrics(version, runtime.Version())

	store := connectivity.NewStore(connectivity.Config{
		Gateway:  gw,
		Settings: cfg,
		Metrics:  metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.Start(ctx)

	socketPath := daemonSocketPath(settingsPath)
	cookiePath := daemonCookiePath(settingsPath)

	srv := daemon.NewServer(store, socketPath, cookiePath, version)
	srv.SetMetrics(metrics)
	if err := srv.Start(); err != nil {
		cancel()
		store.Close()
		gw.Close()
		fatal("Control API failed to start: %v", err)
	}

	fmt.Printf("Control API: %s\n", socketPath)

	if s.AutoStart {
		if err := store.StartNetwork(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Auto-start failed: %v\n", err)
		} else {
			fmt.Println("Network session started")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case <-srv.ShutdownCh():
		fmt.Println("Shutdown requested via API")
	}

	srv.Stop()
	if err := store.StopNetwork(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Session stop failed: %v\n", err)
	}
	cancel()
	store.Close()
	gw.Close()
	fmt.Println("Daemon stopped")
}

// runDown asks a running daemon to exit.
func runDown(args []string) {
	fs := flag.NewFlagSet("down", flag.ExitOnError)
	settingsFlag := fs.String("settings", "", "path to settings file")
	fs.Parse(args)

	c := mustClient(*settingsFlag)
	if err := c.Shutdown(); err != nil {
		fatal("Error: %v", err)
	}
	fmt.Println("Daemon shutting down")
}

// mustClient builds a daemon client from the default (or flagged) settings
// location, exiting with a friendly message when no daemon is running.
func mustClient(settingsFlag string) *daemon.Client {
	settingsPath, err := settingsPathFromFlag(settingsFlag)
	if err != nil {
		fatal("Cannot resolve settings path: %v", err)
	}

	c, err := daemon.NewClient(daemonSocketPath(settingsPath), daemonCookiePath(settingsPath))
	if err != nil {
		fatal("Error: %v (is the daemon running? try: meshwire up)", err)
	}
	return c
}
