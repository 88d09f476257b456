package models

// Record is a datapoint owned by a survey group. LastModified is the remote
// timestamp in milliseconds and decides merge conflicts.
type Record struct {
	RecordID      string
	SurveyGroupID int64
	Name          string
	Latitude      float64
	Longitude     float64
	LastModified  int64
}

// SyncCursor is the timestamp of the last merged remote datapoint for a
// survey group.
type SyncCursor struct {
	SurveyGroupID int64
	Time          int64
}
