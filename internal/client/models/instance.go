// Package models defines the client-side data models of the field sync
// store: survey instances and their responses, file transmissions, remote
// records (datapoints) and sync cursors.
package models

import "time"

// InstanceStatus is the lifecycle state of a SurveyInstance. Values are
// persisted, so the order must not change.
type InstanceStatus int

const (
	StatusSaved InstanceStatus = iota
	StatusSubmitRequested
	StatusSubmitted
	StatusExported
	StatusUploaded
	StatusSynced
	StatusDownloaded
)

var instanceStatusNames = map[InstanceStatus]string{
	StatusSaved:           "SAVED",
	StatusSubmitRequested: "SUBMIT_REQUESTED",
	StatusSubmitted:       "SUBMITTED",
	StatusExported:        "EXPORTED",
	StatusUploaded:        "UPLOADED",
	StatusSynced:          "SYNCED",
	StatusDownloaded:      "DOWNLOADED",
}

func (s InstanceStatus) String() string {
	if n, ok := instanceStatusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// SurveyInstance is one filled-out form.
type SurveyInstance struct {
	ID          int64
	UUID        string
	FormID      string
	FormVersion string
	// RecordID is the owning datapoint.
	RecordID  string
	Submitter string
	Status    InstanceStatus

	StartDate     time.Time
	SavedDate     time.Time
	SubmittedDate time.Time
	ExportedDate  time.Time
	UploadedDate  time.Time
	SyncedDate    time.Time
}

// Response is one answer, keyed by question id and repeat-group iteration.
type Response struct {
	InstanceID int64
	QuestionID string
	Iteration  int
	Answer     string
	// Type is the answer type reported by the form ("VALUE", "IMAGE", "VIDEO", ...).
	Type string
}

// IsMedia reports whether the answer references a local media file.
func (r Response) IsMedia() bool {
	return r.Type == ResponseTypeImage || r.Type == ResponseTypeVideo
}

const (
	ResponseTypeValue = "VALUE"
	ResponseTypeImage = "IMAGE"
	ResponseTypeVideo = "VIDEO"
)
