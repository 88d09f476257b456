package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/signing"
)

const maxErrorBody = 4 << 10

// Config holds the object storage settings.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Timeout   time.Duration
}

// LegacyGateway performs path-style signed requests against
// {Endpoint}/{Bucket}/{Key}.
type LegacyGateway struct {
	cfg   Config
	http  *http.Client
	clock clock.Clock
	log   logging.Logger
}

var _ Gateway = (*LegacyGateway)(nil)

func NewLegacyGateway(cfg Config, httpClient *http.Client, clk clock.Clock, log logging.Logger) *LegacyGateway {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &LegacyGateway{cfg: cfg, http: httpClient, clock: clk, log: log.With("component", "object-gateway")}
}

func (g *LegacyGateway) url(key string) string {
	return g.cfg.Endpoint + "/" + g.cfg.Bucket + "/" + key
}

// Put uploads obj and checks the returned ETag against its digest.
func (g *LegacyGateway) Put(ctx context.Context, obj Object) (*Result, error) {
	f, err := os.Open(obj.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", obj.Path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", obj.Path, err)
	}

	date := signing.HTTPDate(g.clock.Now())
	auth, err := signing.Authorization(g.cfg.AccessKey, g.cfg.SecretKey, signing.ObjectRequest{
		Method:      http.MethodPut,
		MD5:         obj.MD5,
		ContentType: obj.ContentType,
		Date:        date,
		Bucket:      g.cfg.Bucket,
		Key:         obj.Key,
		Public:      obj.Public,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.url(obj.Key), f)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.ContentLength = fi.Size()
	req.Header.Set("Content-MD5", obj.MD5)
	req.Header.Set("Content-Type", obj.ContentType)
	req.Header.Set("Date", date)
	req.Header.Set("Authorization", auth)
	if obj.Public {
		req.Header.Set("x-amz-acl", "public-read")
	}

	resp, err := g.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	etag := resp.Header.Get("ETag")
	if err := verifyETag(etag, obj.MD5); err != nil {
		g.log.Warn(ctx, "upload not verified", "key", obj.Key, "error", err)
		return nil, err
	}

	g.log.Debug(ctx, "object stored", "key", obj.Key, "bytes", fi.Size())
	return &Result{ETag: strings.Trim(etag, `"`)}, nil
}

// Get downloads key into dst. The file only appears once fully written.
func (g *LegacyGateway) Get(ctx context.Context, key, dst string) error {
	date := signing.HTTPDate(g.clock.Now())
	auth, err := signing.Authorization(g.cfg.AccessKey, g.cfg.SecretKey, signing.ObjectRequest{
		Method: http.MethodGet,
		Date:   date,
		Bucket: g.cfg.Bucket,
		Key:    key,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url(key), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Date", date)
	req.Header.Set("Authorization", auth)

	resp, err := g.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return writeAtomic(dst, resp.Body)
}

func (g *LegacyGateway) do(req *http.Request) (*http.Response, error) {
	resp, err := g.http.Do(req)
	if err != nil {
		g.log.Warn(req.Context(), "object request failed", "method", req.Method, "url", req.URL.Path, "error", err)
		return nil, fmt.Errorf("object request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		g.log.Warn(req.Context(), "object request rejected", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

func writeAtomic(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}
