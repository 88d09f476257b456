// Package transmissions is the transmission ledger: the durable record of
// every file that must move to remote storage.
//
// # State machine
//
//	(none) --create--> QUEUED --Begin--> IN_PROGRESS --Complete--> SYNCED
//	                     ^                    |
//	                     +---- Requeue ---- FAILED <--Fail--+
//
// Begin is the mutual-exclusion gate for an attempt: it only succeeds for a
// QUEUED or FAILED row, so two passes can never upload the same file at the
// same time. No attempt survives process death, therefore Reconcile turns
// every IN_PROGRESS row into FAILED and must run before the first push after
// startup. PendingWork is the only way work is rediscovered.
//
// Every transition is a single UPDATE statement.
package transmissions
