package devserver

import (
	"crypto/hmac"
	"encoding/csv"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/signing"
)

const signatureSep = "&" + signing.ParamSignature + "="

// verifyQuery checks the h parameter against every byte that precedes it.
func (s *Server) verifyQuery(r *http.Request) (int, string) {
	if s.opts.APIKey == "" {
		return 0, ""
	}

	raw := r.URL.RawQuery
	i := strings.LastIndex(raw, signatureSep)
	if i < 0 {
		return http.StatusUnauthorized, "missing signature"
	}
	got, err := url.QueryUnescape(raw[i+len(signatureSep):])
	if err != nil {
		return http.StatusBadRequest, "malformed signature"
	}

	want, err := signing.Sign(raw[:i], s.opts.APIKey, signing.Wrapped)
	if err != nil {
		return http.StatusInternalServerError, err.Error()
	}
	if !hmac.Equal([]byte(got), []byte(want)) {
		return http.StatusUnauthorized, "signature mismatch"
	}

	if s.opts.MaxSkew > 0 {
		ts, err := time.Parse(signing.TimestampLayout, r.URL.Query().Get(signing.ParamTimestamp))
		if err != nil {
			return http.StatusBadRequest, "malformed timestamp"
		}
		skew := s.opts.Clock.Now().Sub(ts)
		if skew < 0 {
			skew = -skew
		}
		if skew > s.opts.MaxSkew {
			return http.StatusUnauthorized, "timestamp out of range"
		}
	}
	return 0, ""
}

func (s *Server) handleDatapoints(w http.ResponseWriter, r *http.Request) {
	if code, msg := s.verifyQuery(r); code != 0 {
		respondError(w, code, msg)
		return
	}

	q := r.URL.Query()
	group, err := strconv.ParseInt(q.Get("surveyGroupId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid surveyGroupId")
		return
	}
	since, err := strconv.ParseInt(q.Get("lastUpdateTime"), 10, 64)
	if err != nil {
		since = 0
	}

	s.mu.Lock()
	all, assigned := s.groups[group]
	out := make([]gateway.Datapoint, 0, s.opts.PageSize)
	for _, dp := range all {
		if dp.LastModified < since {
			continue
		}
		out = append(out, dp)
		if len(out) == s.opts.PageSize {
			break
		}
	}
	s.mu.Unlock()

	if !assigned {
		respondError(w, http.StatusForbidden, "device not assigned")
		return
	}
	respondJSON(w, http.StatusOK, gateway.DatapointsResponse{ResultCount: len(out), Datapoints: out})
}

func (s *Server) handlePendingFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()

	if p.MissingFiles == nil {
		p.MissingFiles = []string{}
	}
	if p.MissingUnknown == nil {
		p.MissingUnknown = []string{}
	}
	if p.DeletedForms == nil {
		p.DeletedForms = []string{}
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleProcessor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := Notification{
		Action:   q.Get("action"),
		FormID:   q.Get("formID"),
		Filename: q.Get("fileName"),
		DeviceID: q.Get("devId"),
	}
	if n.Action == "" || n.Filename == "" {
		respondError(w, http.StatusBadRequest, "action and fileName are required")
		return
	}

	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleForms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	forms := append([]gateway.FormHeader(nil), s.forms...)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	cw := csv.NewWriter(w)

	switch q.Get("action") {
	case "getSurveyHeader":
		id := q.Get("surveyId")
		for _, f := range forms {
			if f.ID == id {
				_ = cw.Write(formRow(f)[1:])
			}
		}
	case "getAvailableSurveysDevice":
		phone := q.Get("devicePhoneNumber")
		for _, f := range forms {
			row := formRow(f)
			row[0] = phone
			_ = cw.Write(row)
		}
	default:
		respondError(w, http.StatusBadRequest, "unknown action")
		return
	}
	cw.Flush()
}

func formRow(f gateway.FormHeader) []string {
	return []string{
		"",
		f.ID,
		f.Name,
		f.Language,
		f.Version,
		strconv.FormatInt(f.GroupID, 10),
		f.GroupName,
		strconv.FormatBool(f.Monitored),
		f.RegistrationFormID,
	}
}
