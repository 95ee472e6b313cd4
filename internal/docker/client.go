package docker

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	imageapi "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/opcpublisher/plcharness/internal/logging"
)

const maxNameLen = 64

var disallowedNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// Client is the interface used by the lifecycle code for engine operations.
// Every call blocks until the engine has answered.
type Client interface {
	// ListContainers returns the limit most recently created containers,
	// running or not.
	ListContainers(ctx context.Context, limit int) ([]Container, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	// PullImage pulls ref and consumes the progress stream to completion.
	PullImage(ctx context.Context, ref string) error
	InspectImage(ctx context.Context, ref string) (ImageInfo, error)
	// CreateContainer creates the container and returns its engine-assigned ID.
	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	Close() error
}

// dockerAPI is the subset of the official SDK client used by sdkClient
type dockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error)
	ContainerStop(ctx context.Context, containerID string, options containertypes.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options containertypes.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options imageapi.PullOptions) (io.ReadCloser, error)
	ImageInspect(ctx context.Context, imageID string, inspectOpts ...client.ImageInspectOption) (imageapi.InspectResponse, error)
	ContainerCreate(ctx context.Context, config *containertypes.Config, hostConfig *containertypes.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (containertypes.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options containertypes.StartOptions) error
	Close() error
}

type sdkClient struct {
	cli           dockerAPI
	registryAuth  string
	sanitizeNames bool
}

// Options configures Connect.
type Options struct {
	RegistryUser  string
	RegistryPass  string
	SanitizeNames bool
}

// Connect opens an SDK client against host and pings the engine so an
// unreachable endpoint fails here rather than on the first real operation.
// host may be empty to use the DOCKER_HOST environment.
func Connect(ctx context.Context, host string, opts Options) (Client, error) {
	copts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		copts = append(copts, client.WithHost(host))
	} else {
		copts = append(copts, client.FromEnv)
	}
	c, err := client.NewClientWithOpts(copts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	s, err := newSDKClient(c, opts)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if _, err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping engine: %w", err)
	}
	return s, nil
}

func newSDKClient(cli dockerAPI, opts Options) (*sdkClient, error) {
	s := &sdkClient{cli: cli, sanitizeNames: opts.SanitizeNames}
	if opts.RegistryUser != "" || opts.RegistryPass != "" {
		auth, err := registry.EncodeAuthConfig(registry.AuthConfig{Username: opts.RegistryUser, Password: opts.RegistryPass})
		if err != nil {
			return nil, fmt.Errorf("encode registry auth: %w", err)
		}
		s.registryAuth = auth
	}
	return s, nil
}

// sanitizeName returns a Docker-safe container name by removing disallowed
// characters, optionally lowercasing, and ensuring the name starts with an
// alphanumeric character. It enforces a maximum length of `maxNameLen`.
// If the resulting name would be empty, it falls back to "container".
func (s *sdkClient) sanitizeName(name string) string {
	if s.sanitizeNames {
		name = strings.ToLower(name)
	}
	clean := disallowedNameChars.ReplaceAllString(name, "")
	if clean == "" {
		return "container"
	}
	if len(clean) > maxNameLen {
		clean = clean[:maxNameLen]
	}
	r := rune(clean[0])
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		clean = "c" + clean
		if len(clean) > maxNameLen {
			clean = clean[:maxNameLen]
		}
	}
	return clean
}

func (s *sdkClient) ListContainers(ctx context.Context, limit int) ([]Container, error) {
	// A positive limit makes the engine include stopped and created containers.
	list, err := s.cli.ContainerList(ctx, containertypes.ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]Container, 0, len(list))
	for _, c := range list {
		out = append(out, Container{
			ID:      c.ID,
			Image:   c.Image,
			ImageID: c.ImageID,
			Names:   c.Names,
			State:   c.State,
		})
	}
	return out, nil
}

func (s *sdkClient) StopContainer(ctx context.Context, id string) error {
	logging.Get().Debug().Str("container", id).Msg("stopping container")
	return s.cli.ContainerStop(ctx, id, containertypes.StopOptions{})
}

func (s *sdkClient) RemoveContainer(ctx context.Context, id string) error {
	logging.Get().Debug().Str("container", id).Msg("removing container")
	return s.cli.ContainerRemove(ctx, id, containertypes.RemoveOptions{})
}

func (s *sdkClient) PullImage(ctx context.Context, ref string) error {
	logging.Get().Info().Str("image", ref).Msg("pulling image")
	opts := imageapi.PullOptions{}
	if s.registryAuth != "" {
		opts.RegistryAuth = s.registryAuth
	}
	rc, err := s.cli.ImagePull(ctx, ref, opts)
	if err != nil {
		return err
	}
	defer rc.Close()
	// errors such as an unknown manifest arrive inside the progress stream
	if err := jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil); err != nil {
		return err
	}
	logging.Get().Info().Str("image", ref).Msg("pulled image")
	return nil
}

func (s *sdkClient) InspectImage(ctx context.Context, ref string) (ImageInfo, error) {
	inspected, err := s.cli.ImageInspect(ctx, ref)
	if err != nil {
		return ImageInfo{}, err
	}
	info := ImageInfo{ID: inspected.ID, OS: inspected.Os}
	if len(inspected.RepoDigests) > 0 {
		info.Digest = inspected.RepoDigests[0]
	}
	return info, nil
}

func (s *sdkClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(spec.Port))
	if err != nil {
		return "", fmt.Errorf("invalid port %d: %w", spec.Port, err)
	}
	cfg := &containertypes.Config{
		Image:        spec.Image,
		Hostname:     spec.Hostname,
		Cmd:          spec.Cmd,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hostCfg := &containertypes.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostPort: port.Port()}},
		},
	}
	name := s.sanitizeName(spec.Name)
	resp, err := s.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", err
	}
	for _, w := range resp.Warnings {
		logging.Get().Warn().Str("container", resp.ID).Str("warning", w).Msg("engine warning on create")
	}
	return resp.ID, nil
}

func (s *sdkClient) StartContainer(ctx context.Context, id string) error {
	return s.cli.ContainerStart(ctx, id, containertypes.StartOptions{})
}

func (s *sdkClient) Close() error {
	return s.cli.Close()
}
