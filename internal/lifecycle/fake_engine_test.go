package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/opcpublisher/plcharness/internal/docker"
)

const testImage = "mcr.microsoft.com/iotedge/opc-plc"

// fakeEngine is an in-memory engine. containers is ordered newest first, the
// way the engine lists them.
type fakeEngine struct {
	containers []docker.Container
	imageOS    string
	calls      []string
	nextID     int
	closed     int

	listErr    error
	pullErr    error
	inspectErr error
	createErr  error
	startErr   error
	stopErr    map[string]error
	removeErr  map[string]error
}

func (f *fakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) ListContainers(ctx context.Context, limit int) ([]docker.Container, error) {
	f.record("list %d", limit)
	if f.listErr != nil {
		return nil, f.listErr
	}
	n := len(f.containers)
	if limit < n {
		n = limit
	}
	return append([]docker.Container(nil), f.containers[:n]...), nil
}

func (f *fakeEngine) StopContainer(ctx context.Context, id string) error {
	f.record("stop %s", id)
	if err := f.stopErr[id]; err != nil {
		return err
	}
	for i := range f.containers {
		if f.containers[i].ID == id {
			f.containers[i].State = "exited"
			return nil
		}
	}
	return fmt.Errorf("No such container: %s", id)
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, id string) error {
	f.record("remove %s", id)
	if err := f.removeErr[id]; err != nil {
		return err
	}
	for i := range f.containers {
		if f.containers[i].ID == id {
			f.containers = append(f.containers[:i], f.containers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("No such container: %s", id)
}

func (f *fakeEngine) PullImage(ctx context.Context, ref string) error {
	f.record("pull %s", ref)
	return f.pullErr
}

func (f *fakeEngine) InspectImage(ctx context.Context, ref string) (docker.ImageInfo, error) {
	f.record("inspect %s", ref)
	if f.inspectErr != nil {
		return docker.ImageInfo{}, f.inspectErr
	}
	family := f.imageOS
	if family == "" {
		family = "linux"
	}
	return docker.ImageInfo{ID: "sha256:plc", OS: family}, nil
}

func (f *fakeEngine) CreateContainer(ctx context.Context, spec docker.ContainerSpec) (string, error) {
	f.record("create %s", spec.Name)
	if f.createErr != nil {
		return "", f.createErr
	}
	for _, c := range f.containers {
		for _, n := range c.Names {
			if n == "/"+spec.Name {
				return "", fmt.Errorf("Conflict. The container name %q is already in use by container %q", n, c.ID)
			}
		}
	}
	f.nextID++
	id := fmt.Sprintf("plc-%d", f.nextID)
	c := docker.Container{ID: id, Image: spec.Image, Names: []string{"/" + spec.Name}, State: "created"}
	f.containers = append([]docker.Container{c}, f.containers...)
	return id, nil
}

func (f *fakeEngine) StartContainer(ctx context.Context, id string) error {
	f.record("start %s", id)
	if f.startErr != nil {
		return f.startErr
	}
	for i := range f.containers {
		if f.containers[i].ID == id {
			f.containers[i].State = "running"
			return nil
		}
	}
	return fmt.Errorf("No such container: %s", id)
}

func (f *fakeEngine) Close() error {
	f.closed++
	return nil
}

// withImage counts containers whose reported image is exactly image.
func (f *fakeEngine) withImage(image string) int {
	n := 0
	for _, c := range f.containers {
		if c.Image == image {
			n++
		}
	}
	return n
}

func (f *fakeEngine) running(name string) []docker.Container {
	var out []docker.Container
	for _, c := range f.containers {
		if c.State != "running" {
			continue
		}
		for _, n := range c.Names {
			if strings.TrimPrefix(n, "/") == name {
				out = append(out, c)
			}
		}
	}
	return out
}

func (f *fakeEngine) callsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
