package models

import "time"

// TransmissionStatus is the ledger state of a FileTransmission. Values are
// persisted, so the order must not change.
type TransmissionStatus int

const (
	TransmissionQueued TransmissionStatus = iota
	TransmissionInProgress
	TransmissionSynced
	TransmissionFailed
)

func (s TransmissionStatus) String() string {
	switch s {
	case TransmissionQueued:
		return "QUEUED"
	case TransmissionInProgress:
		return "IN_PROGRESS"
	case TransmissionSynced:
		return "SYNCED"
	case TransmissionFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// UnknownInstanceID marks transmissions created for files the server reported
// missing that have no local instance.
const UnknownInstanceID int64 = -1

// Transmission tracks one file that must reach remote storage.
type Transmission struct {
	ID         int64
	InstanceID int64
	FormID     string
	// Filename is the local file reference and is unique in the ledger.
	Filename  string
	ObjectKey string
	Public    bool
	// MD5 is the base64 digest that was accepted by the remote store. It is
	// empty until the transmission reaches SYNCED.
	MD5       string
	Status    TransmissionStatus
	StartDate time.Time
	EndDate   time.Time
}

// Pending reports whether the transmission is eligible for the next push.
func (t *Transmission) Pending() bool {
	return t.Status == TransmissionQueued || t.Status == TransmissionFailed
}
