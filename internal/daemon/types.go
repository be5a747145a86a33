package daemon

// AddressRequest is the body for POST /v1/relay/connect, POST /v1/connect,
// and POST/DELETE /v1/bootstrap. Bootstrap and relay addresses contain
// slashes, so they travel in the body rather than the path.
type AddressRequest struct {
	Address string `json:"address"`
}

// ContactResponse is returned by GET /v1/contact.
type ContactResponse struct {
	Contact string `json:"contact"`
}

// BootstrapResponse is returned by GET /v1/bootstrap.
type BootstrapResponse struct {
	Nodes []string `json:"nodes"`
}

// VersionResponse is returned by GET /v1/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// ErrorResponse is returned on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse wraps a successful response.
type DataResponse struct {
	Data any `json:"data"`
}
