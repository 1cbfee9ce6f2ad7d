package domain

import "errors"

// Collaborator error taxonomy. Quota exhaustion is fatal for the event
// and requires operator action; rate limiting is transient and left to
// the user to retry. Both are surfaced to the user, everything else is
// logged and rendered as a generic failure notice.
var (
	ErrQuotaExceeded = errors.New("collaborator quota exceeded")
	ErrRateLimited   = errors.New("collaborator rate limited")
)
