// Package cli provides the fieldsync command-line client.
//
// It wires configuration, the local store, both gateways and the sync
// services into an App, and exposes them as a cobra command tree:
//
//	save      store a filled-out form (optionally requesting submission)
//	submit    request submission of a saved instance
//	export    build archives for instances awaiting submission
//	push      deliver pending files
//	pull      merge remote datapoints
//	sync      export, push and pull in one pass
//	watch     run sync passes periodically until interrupted
//	status    ledger and instance counts
//	device    stored device settings; --reset generates a new device id
//	resend    queue every file of an instance again and rewind it
//	unsent    queue every file of an instance again
//	records   list merged datapoints of a survey group
//	forms     list the form catalogue
//
// push, sync, watch and device --reset hold a lock row in the local store,
// so only one of them runs per database at a time.
//
// Flags handled by the config package (-a, -k, -c, ...) are stripped from
// the arguments before the command tree parses them.
package cli
