package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitIncomplete   = 1 // the pass ran but left work behind; retrying later may succeed
	ExitCommandError = 2
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, services.ErrIncomplete), errors.Is(err, gateway.ErrUnavailable), errors.Is(err, services.ErrLocked):
		return ExitIncomplete
	}
	return ExitCommandError
}

// render writes data as JSON, or calls text for the text format.
func (a *App) render(data any, text func(w io.Writer)) error {
	if a.format == formatJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(a.out)
	return nil
}

type pushView struct {
	Synced  int `json:"synced"`
	Deduped int `json:"deduped"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type pullView struct {
	SurveyGroupID int64  `json:"survey_group_id"`
	Batches       int    `json:"batches"`
	Fetched       int    `json:"fetched"`
	Merged        int    `json:"merged"`
	Cursor        int64  `json:"cursor"`
	Error         string `json:"error,omitempty"`
}

type syncView struct {
	Repaired int        `json:"repaired"`
	Exported int        `json:"exported"`
	Push     *pushView  `json:"push,omitempty"`
	Pulls    []pullView `json:"pulls"`
	Error    string     `json:"error,omitempty"`
}

func newPushView(r *services.PushReport) *pushView {
	if r == nil {
		return nil
	}
	return &pushView{Synced: r.Synced, Deduped: r.Deduped, Failed: r.Failed, Skipped: r.Skipped}
}

func newPullView(r *services.PullReport) pullView {
	v := pullView{SurveyGroupID: r.SurveyGroupID, Batches: r.Batches, Fetched: r.Fetched, Merged: r.Merged, Cursor: r.Cursor}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

func writePush(w io.Writer, v *pushView) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "push: %d synced, %d deduped, %d failed, %d skipped\n", v.Synced, v.Deduped, v.Failed, v.Skipped)
}

func writePull(w io.Writer, v pullView) {
	fmt.Fprintf(w, "pull group %d: %d merged of %d fetched in %d batches, cursor %d", v.SurveyGroupID, v.Merged, v.Fetched, v.Batches, v.Cursor)
	if v.Error != "" {
		fmt.Fprintf(w, " (error: %s)", v.Error)
	}
	fmt.Fprintln(w)
}

type statusView struct {
	DeviceID      string         `json:"device_id"`
	Instances     map[string]int `json:"instances"`
	Transmissions map[string]int `json:"transmissions"`
}

func newStatusView(deviceID string, s *services.StatusSummary) statusView {
	v := statusView{DeviceID: deviceID, Instances: map[string]int{}, Transmissions: map[string]int{}}
	for st, n := range s.Instances {
		v.Instances[st.String()] = n
	}
	for st, n := range s.Transmissions {
		v.Transmissions[st.String()] = n
	}
	return v
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s:\n", title)
	if len(keys) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k, counts[k])
	}
}

type recordView struct {
	RecordID     string  `json:"record_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lon"`
	LastModified int64   `json:"last_modified"`
}

func newRecordViews(list []*models.Record) []recordView {
	out := make([]recordView, 0, len(list))
	for _, r := range list {
		out = append(out, recordView{RecordID: r.RecordID, Name: r.Name, Latitude: r.Latitude, Longitude: r.Longitude, LastModified: r.LastModified})
	}
	return out
}
