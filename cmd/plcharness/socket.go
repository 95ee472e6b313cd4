package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/opcpublisher/plcharness/internal/lifecycle"
	"github.com/opcpublisher/plcharness/internal/logging"
)

// checkDockerSocketAccess verifies the socket exists and is openable for read/write.
// Returns nil if socket is absent or accessible, otherwise the error explaining why
// it isn't accessible.
func checkDockerSocketAccess(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
		_ = f.Close()
		return nil
	}
	if os.IsNotExist(err) {
		// missing socket surfaces later as a connection failure
		return nil
	}
	return err
}

// ensureEngineSocketAccessible fails early with a useful message when the
// engine socket for this platform exists but cannot be opened.
func (o *rootOptions) ensureEngineSocketAccessible() error {
	ep, err := lifecycle.ResolveEndpoint(o.goos)
	if err != nil {
		return err
	}
	ep = ep.WithOverride(o.cfg.EngineHost)
	if ep.Kind != lifecycle.EndpointUnix {
		return nil
	}
	path := strings.TrimPrefix(ep.Address, "unix://")
	if err := checkDockerSocketAccess(path); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied accessing %s: add the user to the docker group or point PLCHARNESS_ENGINE_HOST at a reachable engine", path)
		}
		logging.Get().Warn().Err(err).Str("socket", path).Msg("problem accessing engine socket; continuing but operations may fail")
	}
	return nil
}
