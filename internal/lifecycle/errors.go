package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is; every *Error carries exactly one.
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrConnection          = errors.New("engine connection failed")
	ErrList                = errors.New("list containers failed")
	ErrPull                = errors.New("image pull failed")
	ErrInspect             = errors.New("image inspect failed")
	ErrCreate              = errors.New("container create failed")
	ErrStart               = errors.New("container start failed")
	ErrStop                = errors.New("container stop failed")
	ErrRemove              = errors.New("container remove failed")

	// ErrFixtureUsed is returned when Acquire is called on a fixture that
	// already left the Idle state.
	ErrFixtureUsed = errors.New("fixture already used")
)

// Error is a lifecycle failure with the context needed to diagnose it
// without reading engine logs.
type Error struct {
	Kind        error
	Platform    string
	Endpoint    string
	Image       string
	ContainerID string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	ctx := make([]string, 0, 4)
	if e.Platform != "" {
		ctx = append(ctx, "platform "+e.Platform)
	}
	if e.Endpoint != "" {
		ctx = append(ctx, "endpoint "+e.Endpoint)
	}
	if e.Image != "" {
		ctx = append(ctx, "image "+e.Image)
	}
	if e.ContainerID != "" {
		ctx = append(ctx, "container "+e.ContainerID)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool { return target == e.Kind }
