package gateway

// Device is the identity attached to every request. It is built once at
// startup and never mutated.
type Device struct {
	DeviceID    string
	AndroidID   string
	IMEI        string
	PhoneNumber string
	AppVersion  string
}

type QuestionAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	Type       string `json:"type"`
	Iteration  int    `json:"iteration"`
}

type SurveyInstance struct {
	UUID           string           `json:"uuid"`
	FormID         string           `json:"surveyId"`
	FormVersion    string           `json:"formVersion"`
	Submitter      string           `json:"submitter"`
	CollectionDate int64            `json:"collectionDate"`
	Answers        []QuestionAnswer `json:"qasList"`
}

type Datapoint struct {
	ID              string           `json:"id"`
	SurveyGroupID   int64            `json:"surveyGroupId"`
	DisplayName     string           `json:"displayName"`
	Latitude        float64          `json:"lat"`
	Longitude       float64          `json:"lon"`
	LastModified    int64            `json:"lastModified"`
	SurveyInstances []SurveyInstance `json:"surveyInstances"`
}

// DatapointsResponse is the wire body of the datapoint endpoint.
type DatapointsResponse struct {
	ResultCount int         `json:"resultCount"`
	Datapoints  []Datapoint `json:"surveyedLocaleData"`
}

// DatapointBatch is one page of a delta pull. NextCursor is the LastModified
// of the newest datapoint, or the requested cursor for an empty page.
type DatapointBatch struct {
	Datapoints []Datapoint
	NextCursor int64
}

// PendingFiles is the server view of files it expected but never received.
type PendingFiles struct {
	MissingFiles   []string `json:"missingFiles"`
	MissingUnknown []string `json:"missingUnknown"`
	DeletedForms   []string `json:"deletedForms"`
}

// Processing notification actions.
const (
	ActionSubmit = "submit"
	ActionImage  = "image"
)

// FormHeader is one row of the form catalogue.
type FormHeader struct {
	ID                 string
	Name               string
	Language           string
	Version            string
	GroupID            int64
	GroupName          string
	Monitored          bool
	RegistrationFormID string
}
