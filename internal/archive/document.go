package archive

import (
	"encoding/json"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Serializer renders one instance and its responses into the archive
// document. The domain layer may supply its own format.
type Serializer interface {
	Serialize(inst *models.SurveyInstance, responses []*models.Response) ([]byte, error)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc func(inst *models.SurveyInstance, responses []*models.Response) ([]byte, error)

func (f SerializerFunc) Serialize(inst *models.SurveyInstance, responses []*models.Response) ([]byte, error) {
	return f(inst, responses)
}

type Answer struct {
	Iteration int    `json:"iteration"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// Document is the default archive payload. Responses are keyed by question
// id; repeated groups contribute one Answer per iteration.
type Document struct {
	UUID        string              `json:"uuid"`
	FormID      string              `json:"formId"`
	FormVersion string              `json:"formVersion"`
	DataPointID string              `json:"dataPointId"`
	Submitter   string              `json:"submitter"`
	SubmitDate  int64               `json:"submitDate"`
	Responses   map[string][]Answer `json:"responses"`
}

// JSONSerializer produces a Document. Map keys are sorted by encoding/json,
// so equal input always yields equal bytes.
var JSONSerializer Serializer = SerializerFunc(func(inst *models.SurveyInstance, responses []*models.Response) ([]byte, error) {
	doc := Document{
		UUID:        inst.UUID,
		FormID:      inst.FormID,
		FormVersion: inst.FormVersion,
		DataPointID: inst.RecordID,
		Submitter:   inst.Submitter,
		SubmitDate:  models.ToMillis(inst.SubmittedDate),
		Responses:   make(map[string][]Answer, len(responses)),
	}
	for _, r := range responses {
		doc.Responses[r.QuestionID] = append(doc.Responses[r.QuestionID], Answer{
			Iteration: r.Iteration,
			Value:     r.Answer,
			Type:      r.Type,
		})
	}
	return json.Marshal(doc)
})
