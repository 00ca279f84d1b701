package sampler

import "errors"

// ErrProcessEnded is returned by Run when the monitored process can no
// longer be read. Records written before it are complete.
var ErrProcessEnded = errors.New("sampler: process ended")
