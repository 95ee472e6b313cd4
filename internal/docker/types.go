package docker

// Container is a minimal container representation so the lifecycle code does
// not depend on the Docker SDK. Image is the string the engine reports, which
// is whatever reference the container was created from.
type Container struct {
	ID      string   `json:"Id"`
	Image   string   `json:"Image"`
	ImageID string   `json:"ImageID"`
	Names   []string `json:"Names"`
	State   string   `json:"State"`
}

// ImageInfo is the subset of an image inspection the fixture needs.
type ImageInfo struct {
	ID     string
	OS     string
	Digest string
}

// ContainerSpec describes the container to create. Port is exposed as
// "<port>/tcp" and bound to the identical host port.
type ContainerSpec struct {
	Image    string
	Name     string
	Hostname string
	Port     int
	Cmd      []string
}
