package lifecycle

import "strings"

// EndpointKind is the transport used to reach the engine.
type EndpointKind string

const (
	EndpointTCP  EndpointKind = "tcp"
	EndpointUnix EndpointKind = "unix"
)

const (
	windowsEngineAddr = "tcp://localhost:2375"
	linuxEngineAddr   = "unix:///var/run/docker.sock"
)

// Endpoint is a resolved engine address for a host platform.
type Endpoint struct {
	Platform string
	Kind     EndpointKind
	Address  string
}

func (e Endpoint) String() string { return e.Address }

// ResolveEndpoint maps a GOOS value to the engine address the fixture uses on
// that platform. It performs no I/O.
func ResolveEndpoint(goos string) (Endpoint, error) {
	switch goos {
	case "windows":
		return Endpoint{Platform: goos, Kind: EndpointTCP, Address: windowsEngineAddr}, nil
	case "linux":
		return Endpoint{Platform: goos, Kind: EndpointUnix, Address: linuxEngineAddr}, nil
	}
	return Endpoint{}, &Error{Kind: ErrUnsupportedPlatform, Platform: goos}
}

// WithOverride replaces the address of a resolved endpoint. Overrides never
// make an unsupported platform usable, so callers resolve first.
func (e Endpoint) WithOverride(addr string) Endpoint {
	if addr == "" {
		return e
	}
	e.Address = addr
	if strings.HasPrefix(addr, "unix://") {
		e.Kind = EndpointUnix
	} else {
		e.Kind = EndpointTCP
	}
	return e
}
