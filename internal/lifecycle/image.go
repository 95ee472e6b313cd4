package lifecycle

import (
	"context"
	"fmt"

	"github.com/distribution/reference"

	"github.com/opcpublisher/plcharness/internal/docker"
	"github.com/opcpublisher/plcharness/internal/logging"
	"github.com/opcpublisher/plcharness/internal/metrics"
)

const latestTag = "latest"

// ImageReference identifies an image by name and tag. Name is kept in the
// familiar form the engine reports back for containers created from it.
type ImageReference struct {
	Name string
	Tag  string
}

// ParseImageReference parses s into its familiar name and tag. A missing tag
// defaults to "latest"; digests are rejected.
func ParseImageReference(s string) (ImageReference, error) {
	named, err := reference.ParseNormalizedNamed(s)
	if err != nil {
		return ImageReference{}, fmt.Errorf("parse image reference %q: %w", s, err)
	}
	if _, ok := named.(reference.Digested); ok {
		return ImageReference{}, fmt.Errorf("image reference %q: digests are not supported", s)
	}
	ref := ImageReference{Name: reference.FamiliarName(named), Tag: latestTag}
	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}
	return ref, nil
}

func (r ImageReference) String() string {
	if r.Tag == "" {
		return r.Name
	}
	return r.Name + ":" + r.Tag
}

// Latest returns the reference with its tag replaced by "latest".
func (r ImageReference) Latest() ImageReference {
	r.Tag = latestTag
	return r
}

// Matches reports whether an engine-reported container image string refers to
// this image. The comparison is an exact string match on Name: "name:tag" or a
// digest form reported by the engine does not match.
func (r ImageReference) Matches(reported string) bool {
	return reported == r.Name
}

// EnsureImage pulls the latest tag of ref, waiting for the pull to finish, and
// inspects the result. It pulls on every call so each run refreshes the image.
func EnsureImage(ctx context.Context, eng docker.Client, ref ImageReference) (docker.ImageInfo, error) {
	latest := ref.Latest().String()
	if err := eng.PullImage(ctx, latest); err != nil {
		metrics.IncImagePullFailure()
		logging.Get().Error().Err(err).Str("image", latest).Msg("image pull failed")
		return docker.ImageInfo{}, &Error{Kind: ErrPull, Image: latest, Err: err}
	}
	metrics.IncImagePullSuccess()

	info, err := eng.InspectImage(ctx, latest)
	if err != nil {
		logging.Get().Error().Err(err).Str("image", latest).Msg("inspect image failed")
		return docker.ImageInfo{}, &Error{Kind: ErrInspect, Image: latest, Err: err}
	}
	logging.Get().Info().Str("image", latest).Str("id", info.ID).Str("os", info.OS).Msg("image ready")
	return info, nil
}
