package gateway

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column layout of a form catalogue row. The first column carries the
// device phone number and is ignored.
const (
	colID = iota + 1
	colName
	colLanguage
	colVersion
	colGroupID
	colGroupName
	colMonitored
	colRegistration
	colCount
)

var errFormHeaderFormat = errors.New("unrecognized form header format")

// parseFormHeaders reads catalogue rows. Header-only responses omit the
// device column, withDevice=false prepends an empty one.
func parseFormHeaders(body string, withDevice bool) ([]FormHeader, error) {
	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []FormHeader
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read form header: %w", err)
		}
		if !withDevice {
			row = append([]string{""}, row...)
		}
		if len(row) < colCount {
			return nil, fmt.Errorf("%w: %d columns", errFormHeaderFormat, len(row))
		}

		groupID, err := strconv.ParseInt(row[colGroupID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: group id %q", errFormHeaderFormat, row[colGroupID])
		}
		monitored, _ := strconv.ParseBool(row[colMonitored])

		h := FormHeader{
			ID:                 row[colID],
			Name:               row[colName],
			Language:           row[colLanguage],
			Version:            row[colVersion],
			GroupID:            groupID,
			GroupName:          row[colGroupName],
			Monitored:          monitored,
			RegistrationFormID: row[colRegistration],
		}
		if h.RegistrationFormID == "" || strings.EqualFold(h.RegistrationFormID, "null") {
			h.RegistrationFormID = h.ID
		}
		out = append(out, h)
	}
	return out, nil
}
