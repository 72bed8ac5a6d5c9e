package agent

import "errors"

// ErrInvalidUpdateType signals a broken invariant between the model's tool
// calls and the router: an unrecognized discriminant, or an updater invoked
// without the request that should have triggered it. It aborts the turn.
var ErrInvalidUpdateType = errors.New("invalid update type")
