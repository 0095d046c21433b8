package weights

import "errors"

// ErrConfiguration is returned when a weight tree is malformed. It is fatal:
// a misconfigured tree must never be used for scoring.
var ErrConfiguration = errors.New("invalid weight configuration")
