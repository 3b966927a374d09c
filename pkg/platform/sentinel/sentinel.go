package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the service can translate them into domain errors:
//   - ErrNotFound: record does not exist
//   - ErrConflict: record id already allocated
//   - ErrLocked: another request holds the record lock
//   - ErrCorrupt: stored bytes do not decode into a valid record
//   - ErrUnavailable: backend temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLocked      = errors.New("record locked")
	ErrCorrupt     = errors.New("corrupt record")
	ErrUnavailable = errors.New("unavailable")
)
