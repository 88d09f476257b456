package objectstore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/devserver"
)

var now = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

type capture struct {
	mu    sync.Mutex
	auths []string
	acls  []string
}

func (c *capture) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.auths = append(c.auths, r.Header.Get("Authorization"))
		c.acls = append(c.acls, r.Header.Get("x-amz-acl"))
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func setup(t *testing.T) (*objectstore.LegacyGateway, *devserver.Server, *capture) {
	t.Helper()
	srv := devserver.New(devserver.Options{AccessKey: "AKID", SecretKey: "s3cret", Bucket: "flow-bucket"})
	c := &capture{}
	ts := httptest.NewServer(c.wrap(srv.Handler()))
	t.Cleanup(ts.Close)

	g := objectstore.NewLegacyGateway(objectstore.Config{
		Endpoint:  ts.URL + "/",
		Bucket:    "flow-bucket",
		AccessKey: "AKID",
		SecretKey: "s3cret",
	}, nil, clock.NewFixed(now), nil)
	return g, srv, c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLegacyPut_PrivateArchive(t *testing.T) {
	g, srv, c := setup(t)
	path := writeFile(t, "u1.zip", "zip-bytes")

	obj, err := objectstore.Describe(path, objectstore.ArchiveKey("u1.zip"), false)
	require.NoError(t, err)
	assert.Equal(t, "application/zip", obj.ContentType)

	res, err := g.Put(context.Background(), obj)
	require.NoError(t, err)

	stored, ok := srv.Object("devicezip/u1.zip")
	require.True(t, ok)
	assert.Equal(t, res.ETag, stored.MD5Hex)
	assert.False(t, stored.Public)
	assert.Equal(t, "zip-bytes", string(stored.Body))
	assert.Equal(t, []string{""}, c.acls)
}

func TestLegacyPut_PublicMediaSendsACL(t *testing.T) {
	g, srv, c := setup(t)
	path := writeFile(t, "p.jpg", "jpeg")

	obj, err := objectstore.Describe(path, objectstore.MediaKey("p.jpg"), true)
	require.NoError(t, err)

	_, err = g.Put(context.Background(), obj)
	require.NoError(t, err)

	stored, ok := srv.Object("images/p.jpg")
	require.True(t, ok)
	assert.True(t, stored.Public)
	assert.Equal(t, "image/jpeg", stored.ContentType)
	assert.Equal(t, []string{"public-read"}, c.acls)
}

func TestLegacyPut_RepeatIsIdempotent(t *testing.T) {
	g, srv, c := setup(t)
	path := writeFile(t, "u1.zip", "zip-bytes")
	obj, err := objectstore.Describe(path, objectstore.ArchiveKey("u1.zip"), false)
	require.NoError(t, err)

	_, err = g.Put(context.Background(), obj)
	require.NoError(t, err)
	_, err = g.Put(context.Background(), obj)
	require.NoError(t, err)

	require.Len(t, c.auths, 2)
	assert.Equal(t, c.auths[0], c.auths[1])
	assert.Equal(t, 2, srv.PutCount("devicezip/u1.zip"))

	stored, _ := srv.Object("devicezip/u1.zip")
	assert.Equal(t, "zip-bytes", string(stored.Body))
}

func TestLegacyPut_WrongSecretRejected(t *testing.T) {
	srv := devserver.New(devserver.Options{AccessKey: "AKID", SecretKey: "s3cret"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	g := objectstore.NewLegacyGateway(objectstore.Config{Endpoint: ts.URL, Bucket: "b", AccessKey: "AKID", SecretKey: "wrong"}, nil, clock.NewFixed(now), nil)
	obj, err := objectstore.Describe(writeFile(t, "a.zip", "x"), "devicezip/a.zip", false)
	require.NoError(t, err)

	_, err = g.Put(context.Background(), obj)
	require.ErrorIs(t, err, objectstore.ErrRejected)
	_, ok := srv.Object("devicezip/a.zip")
	assert.False(t, ok)
}

func TestLegacyPut_ETagMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"00000000000000000000000000000000"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	g := objectstore.NewLegacyGateway(objectstore.Config{Endpoint: ts.URL, Bucket: "b"}, nil, clock.NewFixed(now), nil)
	obj, err := objectstore.Describe(writeFile(t, "a.zip", "x"), "devicezip/a.zip", false)
	require.NoError(t, err)

	_, err = g.Put(context.Background(), obj)
	require.ErrorIs(t, err, objectstore.ErrChecksumMismatch)
}

func TestLegacyPut_MissingFile(t *testing.T) {
	g, _, c := setup(t)

	_, err := g.Put(context.Background(), objectstore.Object{Key: "k", Path: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.Empty(t, c.auths)
}

func TestLegacyGet_RoundTrip(t *testing.T) {
	g, _, _ := setup(t)
	obj, err := objectstore.Describe(writeFile(t, "u2.zip", "payload"), objectstore.ArchiveKey("u2.zip"), false)
	require.NoError(t, err)
	_, err = g.Put(context.Background(), obj)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "copy.zip")
	require.NoError(t, g.Get(context.Background(), "devicezip/u2.zip", dst))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
}

func TestLegacyGet_NotFound(t *testing.T) {
	g, _, _ := setup(t)

	dst := filepath.Join(t.TempDir(), "x")
	err := g.Get(context.Background(), "devicezip/none.zip", dst)
	require.ErrorIs(t, err, objectstore.ErrRejected)
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}
