package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

// Client connects to a running daemon via its Unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
	authToken  string
}

// NewClient creates a new daemon client. It reads the auth cookie
// automatically from the cookie file next to the socket.
func NewClient(socketPath, cookiePath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrDaemonNotRunning, socketPath)
	}

	token, err := os.ReadFile(cookiePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read daemon cookie: %w", err)
	}

	c := &Client{
		socketPath: socketPath,
		authToken:  strings.TrimSpace(string(token)),
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}

	return c, nil
}

// do sends an HTTP request to the daemon and returns the raw response body.
func (c *Client) do(method, path string, body io.Reader, headers map[string]string) ([]byte, int, error) {
	url := "http://daemon" + path
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// doJSON sends a request and decodes the JSON {"data": ...} envelope into target.
func (c *Client) doJSON(method, path string, body io.Reader, target any) error {
	data, status, err := c.do(method, path, body, nil)
	if err != nil {
		return err
	}

	if status >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("daemon: %s", errResp.Error)
		}
		return fmt.Errorf("daemon returned HTTP %d", status)
	}

	if target != nil {
		var raw struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if err := json.Unmarshal(raw.Data, target); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// doText sends a request with Accept: text/plain and returns the text body.
func (c *Client) doText(method, path string, body io.Reader) (string, error) {
	data, status, err := c.do(method, path, body, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return "", err
	}

	if status >= 400 {
		// Error responses are always JSON
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return "", fmt.Errorf("daemon: %s", errResp.Error)
		}
		return "", fmt.Errorf("daemon returned HTTP %d", status)
	}

	return string(data), nil
}

func addressBody(address string) io.Reader {
	body, _ := json.Marshal(AddressRequest{Address: address})
	return bytes.NewReader(body)
}

// --- Query methods ---

// Status returns the daemon's connectivity snapshot.
func (c *Client) Status() (*connectivity.Snapshot, error) {
	var resp connectivity.Snapshot
	if err := c.doJSON("GET", "/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatusText returns the daemon's status as plain text.
func (c *Client) StatusText() (string, error) {
	return c.doText("GET", "/v1/status", nil)
}

// Peers returns the known peers with their friendly identities.
func (c *Client) Peers() ([]connectivity.PeerSnapshot, error) {
	var resp []connectivity.PeerSnapshot
	if err := c.doJSON("GET", "/v1/peers", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// PeersText returns the known peers as plain text.
func (c *Client) PeersText() (string, error) {
	return c.doText("GET", "/v1/peers", nil)
}

// Contact returns the node's shareable contact link.
func (c *Client) Contact() (string, error) {
	var resp ContactResponse
	if err := c.doJSON("GET", "/v1/contact", nil, &resp); err != nil {
		return "", err
	}
	return resp.Contact, nil
}

// Bootstrap returns the configured bootstrap nodes.
func (c *Client) Bootstrap() ([]string, error) {
	var resp BootstrapResponse
	if err := c.doJSON("GET", "/v1/bootstrap", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// Version returns the daemon's version string.
func (c *Client) Version() (string, error) {
	var resp VersionResponse
	if err := c.doJSON("GET", "/v1/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// --- Mutation methods ---

// NetworkStart brings the network session online.
func (c *Client) NetworkStart() error {
	return c.doJSON("POST", "/v1/network/start", nil, nil)
}

// NetworkStop takes the network session offline.
func (c *Client) NetworkStop() error {
	return c.doJSON("POST", "/v1/network/stop", nil, nil)
}

// RelayConnect asks the daemon to connect to the given relay address.
func (c *Client) RelayConnect(address string) error {
	return c.doJSON("POST", "/v1/relay/connect", addressBody(address), nil)
}

// RelayPublic asks the daemon to connect to the built-in public relays.
func (c *Client) RelayPublic() error {
	return c.doJSON("POST", "/v1/relay/public", nil, nil)
}

// BootstrapAdd persists a bootstrap node and hands it to the running session.
func (c *Client) BootstrapAdd(address string) ([]string, error) {
	var resp BootstrapResponse
	if err := c.doJSON("POST", "/v1/bootstrap", addressBody(address), &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// BootstrapRemove removes a bootstrap node from the persisted list.
func (c *Client) BootstrapRemove(address string) ([]string, error) {
	var resp BootstrapResponse
	if err := c.doJSON("DELETE", "/v1/bootstrap", addressBody(address), &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// Connect asks the daemon to dial a peer address or contact link.
func (c *Client) Connect(address string) error {
	return c.doJSON("POST", "/v1/connect", addressBody(address), nil)
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	return c.doJSON("POST", "/v1/shutdown", nil, nil)
}
