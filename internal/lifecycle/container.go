package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opcpublisher/plcharness/internal/config"
	"github.com/opcpublisher/plcharness/internal/docker"
	"github.com/opcpublisher/plcharness/internal/logging"
)

// Simulator command-line flags.
const (
	flagAutoAccept     = "--aa"
	flagPortNumber     = "--pn"
	flagCertStoreType  = "--at"
	windowsCertStore   = "X509Store"
	windowsImageFamily = "windows"
)

// Handle identifies the running simulator container.
type Handle struct {
	ID   string
	Name string
	Port int
}

// Endpoint returns the OPC UA endpoint URL of the simulator on the host.
func (h Handle) Endpoint() string {
	return fmt.Sprintf("opc.tcp://localhost:%d", h.Port)
}

// BuildSpec returns the container specification for ref. Windows images get
// the X509Store certificate store type because the runtime in those images
// cannot read private keys from the directory store.
func BuildSpec(ref ImageReference, img docker.ImageInfo, cfg *config.Config) docker.ContainerSpec {
	port := strconv.Itoa(cfg.Port)
	cmd := []string{flagAutoAccept, flagPortNumber, port}
	if strings.EqualFold(img.OS, windowsImageFamily) {
		cmd = append(cmd, flagCertStoreType, windowsCertStore)
	}
	return docker.ContainerSpec{
		Image:    ref.Name,
		Name:     cfg.ContainerName,
		Hostname: cfg.Hostname,
		Port:     cfg.Port,
		Cmd:      cmd,
	}
}

// Provision creates and starts the container described by spec. A container
// that was created but failed to start is not removed; the next reap pass
// collects it.
func Provision(ctx context.Context, eng docker.Client, spec docker.ContainerSpec) (Handle, error) {
	id, err := eng.CreateContainer(ctx, spec)
	if err != nil {
		logging.Get().Error().Err(err).Str("image", spec.Image).Msg("create container failed")
		return Handle{}, &Error{Kind: ErrCreate, Image: spec.Image, Err: err}
	}
	logging.Get().Info().Str("container", id).Str("name", spec.Name).Msg("created container")

	if err := eng.StartContainer(ctx, id); err != nil {
		logging.Get().Error().Err(err).Str("container", id).Msg("start container failed; left for next reap")
		return Handle{}, &Error{Kind: ErrStart, Image: spec.Image, ContainerID: id, Err: err}
	}
	logging.Get().Info().Str("container", id).Int("port", spec.Port).Msg("started container")
	return Handle{ID: id, Name: spec.Name, Port: spec.Port}, nil
}
