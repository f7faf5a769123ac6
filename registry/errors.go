package registry

import "errors"

// ErrClassNotRegistered is returned when a checkpoint references a
// registered-class id that is absent on restore: resolution fails
// outright rather than leaving a placeholder in its place.
var ErrClassNotRegistered = errors.New("registry: class not registered")
