package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

// maxRequestBodySize limits the size of JSON request bodies to prevent
// unbounded memory consumption from oversized or malicious payloads.
const maxRequestBodySize = 1 << 20 // 1 MB

// registerRoutes sets up all HTTP routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Read-only
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/peers", s.handlePeerList)
	mux.HandleFunc("GET /v1/contact", s.handleContact)
	mux.HandleFunc("GET /v1/bootstrap", s.handleBootstrapList)
	mux.HandleFunc("GET /v1/version", s.handleVersion)

	// Mutations
	mux.HandleFunc("POST /v1/network/start", s.handleNetworkStart)
	mux.HandleFunc("POST /v1/network/stop", s.handleNetworkStop)
	mux.HandleFunc("POST /v1/relay/connect", s.handleRelayConnect)
	mux.HandleFunc("POST /v1/relay/public", s.handleRelayPublic)
	mux.HandleFunc("POST /v1/bootstrap", s.handleBootstrapAdd)
	mux.HandleFunc("DELETE /v1/bootstrap", s.handleBootstrapRemove)
	mux.HandleFunc("POST /v1/connect", s.handleConnect)
	mux.HandleFunc("POST /v1/shutdown", s.handleShutdown)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// --- Format helpers ---

// wantsText returns true if the client prefers plain text output.
func wantsText(r *http.Request) bool {
	if r.URL.Query().Get("format") == "text" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain")
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// respondText writes a plain text response.
func respondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	fmt.Fprint(w, text)
}

// decodeBody decodes a size-limited JSON request body into target.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(target); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// errorStatus maps store errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, connectivity.ErrInvalidAddressFormat):
		return http.StatusBadRequest
	case errors.Is(err, connectivity.ErrSessionNotOffline):
		return http.StatusConflict
	case errors.Is(err, connectivity.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, connectivity.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	if wantsText(r) {
		respondText(w, http.StatusOK, formatStatusText(snap))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePeerList(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	peers := snap.Peers
	if peers == nil {
		peers = []connectivity.PeerSnapshot{}
	}
	if wantsText(r) {
		respondText(w, http.StatusOK, formatPeersText(peers))
		return
	}
	respondJSON(w, http.StatusOK, peers)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	contact, ok := s.store.ShareableContactString()
	if !ok {
		respondError(w, http.StatusConflict, "contact link not available: connect to a relay first")
		return
	}
	if wantsText(r) {
		respondText(w, http.StatusOK, contact+"\n")
		return
	}
	respondJSON(w, http.StatusOK, ContactResponse{Contact: contact})
}

func (s *Server) handleBootstrapList(w http.ResponseWriter, r *http.Request) {
	nodes := s.store.BootstrapNodes()
	if nodes == nil {
		nodes = []string{}
	}
	if wantsText(r) {
		respondText(w, http.StatusOK, strings.Join(nodes, "\n")+"\n")
		return
	}
	respondJSON(w, http.StatusOK, BootstrapResponse{Nodes: nodes})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleNetworkStart(w http.ResponseWriter, r *http.Request) {
	if err := s.store.StartNetwork(r.Context()); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.store.Snapshot().Session)
}

func (s *Server) handleNetworkStop(w http.ResponseWriter, r *http.Request) {
	if err := s.store.StopNetwork(r.Context()); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.store.Snapshot().Session)
}

func (s *Server) handleRelayConnect(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.ConnectToRelay(r.Context(), req.Address); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, s.store.Snapshot().Relay)
}

func (s *Server) handleRelayPublic(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ConnectToPublicRelays(r.Context()); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, s.store.Snapshot().Relay)
}

func (s *Server) handleBootstrapAdd(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.AddBootstrapNode(r.Context(), req.Address); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, BootstrapResponse{Nodes: s.store.BootstrapNodes()})
}

func (s *Server) handleBootstrapRemove(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.RemoveBootstrapNode(req.Address); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, BootstrapResponse{Nodes: s.store.BootstrapNodes()})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.ConnectToPeerAddress(r.Context(), req.Address); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"address": req.Address})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})

	// Give the response time to flush before signalling shutdown.
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(s.shutdownCh)
	}()
}

// --- Text rendering ---

func formatStatusText(snap connectivity.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session:  %s\n", snap.Session.Status)
	fmt.Fprintf(&b, "Relay:    %s\n", snap.Relay.Status)
	nat := string(snap.Stats.NATStatus)
	if snap.NATDetectionTimedOut {
		nat += " (detection timed out)"
	}
	fmt.Fprintf(&b, "NAT:      %s\n", nat)
	fmt.Fprintf(&b, "Peers:    %d\n", snap.Stats.ConnectedPeerCount)
	fmt.Fprintf(&b, "Uptime:   %ds\n", snap.Stats.UptimeSeconds)
	fmt.Fprintf(&b, "Traffic:  %d in / %d out\n", snap.Stats.BytesIn, snap.Stats.BytesOut)
	if len(snap.ListeningAddresses) > 0 {
		b.WriteString("Listening:\n")
		for _, addr := range snap.ListeningAddresses {
			fmt.Fprintf(&b, "  %s\n", addr)
		}
	}
	if len(snap.Relay.Addresses) > 0 {
		b.WriteString("Relay addresses:\n")
		for _, addr := range snap.Relay.Addresses {
			fmt.Fprintf(&b, "  %s\n", addr)
		}
	}
	if snap.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", snap.LastError)
	}
	return b.String()
}

func formatPeersText(peers []connectivity.PeerSnapshot) string {
	if len(peers) == 0 {
		return "no peers\n"
	}
	var b strings.Builder
	for _, p := range peers {
		state := "discovered"
		if p.Connected {
			state = "connected"
		}
		fmt.Fprintf(&b, "%s  %s  %s\n", p.Friendly.Name, p.PeerID, state)
	}
	return b.String()
}
