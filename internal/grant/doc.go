// Package grant implements temporary permission roles.
//
// A grant adds a guild role immediately and schedules a single revocation
// after the requested duration. When the timer fires the manager re-reads
// the member: if the role is already gone (removed by staff, or by an
// overlapping grant's timer) nothing happens. Otherwise the role is removed
// and the subject and the staff alert channel are notified independently.
//
// Pending revocations live only in the scheduler. They are abandoned if the
// process stops; a restarted bot will not remove roles granted before it.
//
// Failures are reported as sentinel errors (ErrUnauthorized,
// ErrSubjectNotFound, ErrInvalidPermissionKind, ErrRoleMisconfigured,
// ErrInvalidDuration, ErrAlreadyGranted, ErrPlatformOperation) and can be
// matched with errors.Is.
package grant
