package reconcile

import "errors"

// ErrStaleIdentifier marks a bound identifier whose remote record no
// longer exists. The engine never converts this into a create: the
// identifier may merely be stale after a manual deletion, and a silent
// create would risk duplicates. Rebinding is manual.
var ErrStaleIdentifier = errors.New("stale external identifier")
