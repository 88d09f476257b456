package devserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
)

// Seed is a fixture loaded at startup: the survey groups assigned to the
// device with their datapoints, and the form catalogue.
type Seed struct {
	Groups []SeedGroup          `json:"groups"`
	Forms  []gateway.FormHeader `json:"forms"`
}

type SeedGroup struct {
	ID         int64               `json:"id"`
	Datapoints []gateway.Datapoint `json:"datapoints"`
}

// LoadSeed reads a fixture in JSON, or in YAML when the extension is .yaml
// or .yml. YAML documents use the same keys as the JSON form.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode seed: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to convert seed: %w", err)
		}
	}

	seed := &Seed{}
	if err := json.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return seed, nil
}

// Apply loads the fixture into s. Datapoints without an id get a generated
// one.
func (s *Server) Apply(seed *Seed) {
	for _, g := range seed.Groups {
		dps := make([]gateway.Datapoint, len(g.Datapoints))
		for i, dp := range g.Datapoints {
			if dp.ID == "" {
				dp.ID = uuid.NewString()
			}
			dps[i] = dp
		}
		s.AddDatapoints(g.ID, dps...)
	}
	for _, f := range seed.Forms {
		s.AddForm(f)
	}
}
