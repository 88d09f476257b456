package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/signing"
)

const (
	PathDatapoints   = "/surveyedlocale"
	PathNotification = "/devicenotification"
	PathProcessor    = "/processor"
	PathFormManager  = "/surveymanager"

	maxErrorBody = 4 << 10
)

var ErrFormNotFound = errors.New("form not found")

// Config holds the connection settings of an HTTPGateway.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGateway talks to the metadata API over plain HTTP.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	device  Device
	http    *http.Client
	clock   clock.Clock
	log     logging.Logger
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway builds a gateway. A nil httpClient gets a client with
// cfg.Timeout.
func NewHTTPGateway(cfg Config, device Device, httpClient *http.Client, clk clock.Clock, log logging.Logger) *HTTPGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		device:  device,
		http:    httpClient,
		clock:   clk,
		log:     log.With("component", "metadata-gateway"),
	}
}

func (g *HTTPGateway) deviceParams() url.Values {
	v := url.Values{}
	v.Set("androidId", g.device.AndroidID)
	v.Set("devId", g.device.DeviceID)
	v.Set("imei", g.device.IMEI)
	v.Set("phoneNumber", g.device.PhoneNumber)
	v.Set("ver", g.device.AppVersion)
	return v
}

// FetchDatapoints pulls datapoints modified at or after since. The request
// is signed; HTTP 403 means the device is not assigned to the group.
func (g *HTTPGateway) FetchDatapoints(ctx context.Context, surveyGroupID int64, since int64) (*DatapointBatch, error) {
	params := g.deviceParams()
	params.Set("surveyGroupId", strconv.FormatInt(surveyGroupID, 10))
	params.Set("lastUpdateTime", strconv.FormatInt(since, 10))

	query, err := signing.SignQuery(params.Encode(), g.apiKey, g.clock.Now())
	if err != nil {
		return nil, err
	}

	body, err := g.get(ctx, PathDatapoints, query)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusForbidden {
			return nil, ErrAssignmentRequired
		}
		return nil, err
	}

	var resp DatapointsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode datapoints: %w", err)
	}

	batch := &DatapointBatch{Datapoints: resp.Datapoints, NextCursor: since}
	if n := len(resp.Datapoints); n > 0 {
		batch.NextCursor = resp.Datapoints[n-1].LastModified
	}
	return batch, nil
}

// PendingFiles asks which files of formIDs the server is still missing.
func (g *HTTPGateway) PendingFiles(ctx context.Context, formIDs []string) (*PendingFiles, error) {
	params := g.deviceParams()
	for _, id := range formIDs {
		params.Add("formId", id)
	}

	body, err := g.get(ctx, PathNotification, params.Encode())
	if err != nil {
		return nil, err
	}

	var out PendingFiles
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pending files: %w", err)
	}
	return &out, nil
}

// NotifyFileAvailable tells the server an uploaded file is ready for
// processing.
func (g *HTTPGateway) NotifyFileAvailable(ctx context.Context, action, formID, filename string) error {
	params := g.deviceParams()
	params.Set("action", action)
	params.Set("formID", formID)
	params.Set("fileName", filename)

	_, err := g.get(ctx, PathProcessor, params.Encode())
	return err
}

func (g *HTTPGateway) FormHeader(ctx context.Context, formID string) (*FormHeader, error) {
	params := url.Values{}
	params.Set("action", "getSurveyHeader")
	params.Set("surveyId", formID)
	params.Set("devicePhoneNumber", g.device.PhoneNumber)
	params.Set("devId", g.device.DeviceID)

	body, err := g.get(ctx, PathFormManager, params.Encode())
	if err != nil {
		return nil, err
	}

	headers, err := parseFormHeaders(string(body), false)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, formID)
	}
	return &headers[0], nil
}

// FormHeaders lists the forms assigned to this device.
func (g *HTTPGateway) FormHeaders(ctx context.Context) ([]FormHeader, error) {
	params := url.Values{}
	params.Set("action", "getAvailableSurveysDevice")
	params.Set("devicePhoneNumber", g.device.PhoneNumber)
	params.Set("imei", g.device.IMEI)
	params.Set("ver", g.device.AppVersion)
	params.Set("devId", g.device.DeviceID)

	body, err := g.get(ctx, PathFormManager, params.Encode())
	if err != nil {
		return nil, err
	}
	return parseFormHeaders(string(body), true)
}

func (g *HTTPGateway) get(ctx context.Context, path, query string) ([]byte, error) {
	u := g.baseURL + path
	if query != "" {
		u += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		err = mapError(err)
		g.log.Warn(ctx, "request failed", "path", path, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := statusError(resp, b)
		g.log.Warn(ctx, "unexpected status", "path", path, "status", resp.StatusCode)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapError(err)
	}
	return body, nil
}
