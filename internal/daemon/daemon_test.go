package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

// startTestServer brings up a daemon on a real Unix socket in a temp dir and
// returns it with its socket and cookie paths. The server is stopped by
// t.Cleanup.
func startTestServer(t *testing.T) (*Server, string, string) {
	t.Helper()
	dir := t.TempDir()
	sock := filepath.Join(dir, "d.sock")
	cookie := filepath.Join(dir, "cookie")

	s, _, _ := newTestServer(t)
	s.socketPath = sock
	s.cookiePath = cookie

	if err := s.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, sock, cookie
}

func TestServerStartWritesCookie(t *testing.T) {
	_, _, cookie := startTestServer(t)

	info, err := os.Stat(cookie)
	if err != nil {
		t.Fatalf("stat cookie: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("cookie permissions = %o, want 600", perm)
	}
	data, err := os.ReadFile(cookie)
	if err != nil {
		t.Fatalf("read cookie: %v", err)
	}
	if len(data) != 64 {
		t.Errorf("cookie length = %d, want 64 hex chars", len(data))
	}
}

func TestClientRoundTrip(t *testing.T) {
	s, sock, cookie := startTestServer(t)

	c, err := NewClient(sock, cookie)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	snap, err := c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if snap.Session.Status != connectivity.SessionOffline {
		t.Errorf("session = %q, want offline", snap.Session.Status)
	}

	ver, err := c.Version()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if ver != s.version {
		t.Errorf("version = %q, want %q", ver, s.version)
	}

	if err := c.NetworkStart(); err != nil {
		t.Fatalf("network start: %v", err)
	}
	if err := c.NetworkStart(); err == nil {
		t.Error("second network start should fail")
	}
}

func TestClientRequiresValidToken(t *testing.T) {
	_, sock, _ := startTestServer(t)

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", sock)
			},
		},
	}
	req, _ := http.NewRequest("GET", "http://daemon/v1/status", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestClientWithoutSocket(t *testing.T) {
	dir := t.TempDir()
	_, err := NewClient(filepath.Join(dir, "missing.sock"), filepath.Join(dir, "cookie"))
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("err = %v, want ErrDaemonNotRunning", err)
	}
}

func TestStaleSocketIsRemoved(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "d.sock")

	// Leave a dead socket file behind, as a crashed daemon would.
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	l.Close()
	if _, err := os.Stat(sock); err != nil {
		t.Skipf("socket file not left behind: %v", err)
	}

	s, _, _ := newTestServer(t)
	s.socketPath = sock
	s.cookiePath = filepath.Join(dir, "cookie")
	if err := s.Start(); err != nil {
		t.Fatalf("start over stale socket: %v", err)
	}
	defer s.Stop()
}

func TestSecondServerRefused(t *testing.T) {
	_, sock, cookie := startTestServer(t)

	second, _, _ := newTestServer(t)
	second.socketPath = sock
	second.cookiePath = cookie
	err := second.Start()
	if !errors.Is(err, ErrDaemonAlreadyRunning) {
		t.Fatalf("err = %v, want ErrDaemonAlreadyRunning", err)
	}
}

func TestStopRemovesSocketAndCookie(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "d.sock")
	cookie := filepath.Join(dir, "cookie")

	s, _, _ := newTestServer(t)
	s.socketPath = sock
	s.cookiePath = cookie
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()

	if _, err := os.Stat(sock); !os.IsNotExist(err) {
		t.Errorf("socket still exists after Stop")
	}
	if _, err := os.Stat(cookie); !os.IsNotExist(err) {
		t.Errorf("cookie still exists after Stop")
	}
}
