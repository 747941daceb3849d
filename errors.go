package lumen

import (
	"github.com/Southclaws/fault/ftag"
)

// NotReady marks errors from a backend that cannot play a voice yet, e.g.
// because its sample bank is still loading.
const NotReady ftag.Kind = "NOT_READY"

// IsNotFound reports whether err was tagged as a failed lookup.
func IsNotFound(err error) bool {
	return err != nil && ftag.Get(err) == ftag.NotFound
}

// IsNotReady reports whether err was tagged NotReady.
func IsNotReady(err error) bool {
	return err != nil && ftag.Get(err) == NotReady
}
