// Package services is the sync engine of the field client.
//
// ExportService builds archives for instances the user submitted and
// records their transmissions. SyncService drives the two independent
// flows: push (ledger work to object storage) and pull (datapoint deltas
// into the local store). InstanceService exposes the user-facing status
// operations, and Scheduler runs sync passes periodically with bounded
// backoff.
//
// Ledger and status writes that must stay consistent run in one
// dbx.WithTx call through the repomanager.
package services
