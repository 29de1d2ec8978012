package visit

import "errors"

// Store sentinel errors. Services translate these into the domain error
// taxonomy so transport code only ever sees coded errors.
var (
	ErrNotFound        = errors.New("visit record not found")
	ErrOpenVisitExists = errors.New("an open visit record already exists for this appointment")
)
