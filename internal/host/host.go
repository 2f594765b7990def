// Package host enumerates the deployment targets the client can talk to.
package host

import (
	"net/url"
	"strings"

	"github.com/go-faster/errors"
)

// Host is a named deployment target. Its value is the host[:port] of the API.
type Host string

// Production is the only configured environment.
const Production Host = "127.0.0.1:8080"

var byName = map[string]Host{
	"production": Production,
}

// Parse returns the Host registered under name (case-insensitive).
func Parse(name string) (Host, error) {
	h, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", errors.Errorf("unknown host %q", name)
	}
	return h, nil
}

// Domain returns the host[:port] part of the endpoint.
func (h Host) Domain() string {
	return string(h)
}

// URL returns the root URL of the host. The scheme is always plain http.
func (h Host) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: h.Domain(), Path: "/"}
}

// APIEndpointURL returns the base URL of the API for this host. The API is
// served from the host root.
func (h Host) APIEndpointURL() *url.URL {
	return h.URL()
}
