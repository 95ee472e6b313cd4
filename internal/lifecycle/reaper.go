package lifecycle

import (
	"context"
	"errors"

	"github.com/opcpublisher/plcharness/internal/docker"
	"github.com/opcpublisher/plcharness/internal/logging"
	"github.com/opcpublisher/plcharness/internal/metrics"
)

// DefaultListLimit is how many of the most recently created containers a reap
// pass looks at. Older leaked containers are outside the window.
const DefaultListLimit = 10

// ReapOptions controls a reap pass.
type ReapOptions struct {
	Limit int
	// BestEffort continues past a failed stop or remove and returns every
	// failure joined. When false the pass stops at the first failure.
	BestEffort bool
}

// Reap stops and removes every recently created container whose reported
// image equals ref.Name. It returns how many containers were removed. Reaping
// with no matching container is a successful no-op.
func Reap(ctx context.Context, eng docker.Client, ref ImageReference, opts ReapOptions) (int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	list, err := eng.ListContainers(ctx, limit)
	if err != nil {
		metrics.IncReapFailed()
		return 0, &Error{Kind: ErrList, Image: ref.Name, Err: err}
	}

	var (
		reaped int
		errs   []error
	)
	for _, c := range list {
		if !ref.Matches(c.Image) {
			continue
		}
		if err := reapOne(ctx, eng, c); err != nil {
			metrics.IncReapFailed()
			if !opts.BestEffort {
				return reaped, err
			}
			logging.Get().Warn().Err(err).Str("container", c.ID).Msg("reap failed; continuing")
			errs = append(errs, err)
			continue
		}
		reaped++
		metrics.IncReaped()
	}
	if reaped > 0 {
		logging.Get().Info().Str("image", ref.Name).Int("count", reaped).Msg("reaped stale containers")
	}
	return reaped, errors.Join(errs...)
}

func reapOne(ctx context.Context, eng docker.Client, c docker.Container) error {
	logging.Get().Info().Str("container", c.ID).Str("image", c.Image).Str("state", c.State).Msg("reaping container")
	if err := eng.StopContainer(ctx, c.ID); err != nil {
		return &Error{Kind: ErrStop, Image: c.Image, ContainerID: c.ID, Err: err}
	}
	if err := eng.RemoveContainer(ctx, c.ID); err != nil {
		return &Error{Kind: ErrRemove, Image: c.Image, ContainerID: c.ID, Err: err}
	}
	return nil
}
