package visit

import "context"

// Store is the persistence boundary for visit records. Implementations must
// make CreateIfAbsent atomic: at most one open record per appointment, even
// under concurrent check-ins. Failures are surfaced to callers as
// persistence errors; the core never retries.
type Store interface {
	// CreateIfAbsent persists a new record and assigns its ID. When an open
	// record already exists for the appointment it returns that record and
	// ErrOpenVisitExists.
	CreateIfAbsent(ctx context.Context, rec *Record) (*Record, error)

	// Update persists the full record by ID.
	Update(ctx context.Context, rec *Record) (*Record, error)

	// GetByID returns the record or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Record, error)

	// GetOpenByAppointment returns the open (non-completed) record for the
	// appointment, or nil when there is none.
	GetOpenByAppointment(ctx context.Context, appointmentID string) (*Record, error)

	// ListByCaregiver returns the caregiver's records, newest first. Feeds
	// the supervisor review UI and the billing/payroll exports.
	ListByCaregiver(ctx context.Context, caregiverID string) ([]*Record, error)
}
