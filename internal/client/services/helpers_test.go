package services

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/archive"
	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/devserver"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

const (
	testAPIKey    = "api-secret"
	testAccessKey = "AKID"
	testSecretKey = "s3cret"
	testBucket    = "flow-bucket"
	testGroup     = int64(7)
)

var t0 = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

// authLog records the Authorization header of every object upload.
type authLog struct {
	mu    sync.Mutex
	byKey map[string][]string
}

func (a *authLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			a.mu.Lock()
			a.byKey[r.URL.Path] = append(a.byKey[r.URL.Path], r.Header.Get("Authorization"))
			a.mu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

func (a *authLog) get(key string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.byKey["/"+testBucket+"/"+key]...)
}

type env struct {
	db        *sql.DB
	rm        repomanager.RepositoryManager
	files     *filex.Store
	clock     *clock.Fixed
	srv       *devserver.Server
	auths     *authLog
	meta      *gateway.HTTPGateway
	objects   *objectstore.LegacyGateway
	exporter  ExportService
	sync      SyncService
	instances InstanceService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		db:    store.OpenTest(t),
		rm:    repomanager.NewSQLiteRepositoryManager(),
		clock: clock.NewFixed(t0),
		auths: &authLog{byKey: map[string][]string{}},
	}

	files, err := filex.NewStore(t.TempDir())
	require.NoError(t, err)
	e.files = files

	e.srv = devserver.New(devserver.Options{
		APIKey:    testAPIKey,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		Bucket:    testBucket,
		PageSize:  2,
	})
	e.srv.AddDatapoints(testGroup)
	ts := httptest.NewServer(e.auths.wrap(e.srv.Handler()))
	t.Cleanup(ts.Close)

	log := logging.Nop()
	device := gateway.Device{DeviceID: "dev-1", AndroidID: "a-1", IMEI: "356938035643809", PhoneNumber: "+15550100", AppVersion: "2.9.0"}
	e.meta = gateway.NewHTTPGateway(gateway.Config{BaseURL: ts.URL, APIKey: testAPIKey, Timeout: 5 * time.Second}, device, nil, e.clock, log)
	e.objects = objectstore.NewLegacyGateway(objectstore.Config{
		Endpoint:  ts.URL,
		Bucket:    testBucket,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
	}, nil, e.clock, log)

	builder := archive.NewBuilder(files.ArchiveDir, nil)
	e.exporter = NewExportService(e.db, e.rm, builder, files, true, e.clock, log)
	e.sync = NewSyncService(SyncDeps{
		DB:           e.db,
		Repositories: e.rm,
		Metadata:     e.meta,
		Objects:      e.objects,
		Exporter:     e.exporter,
		Files:        files,
		SurveyGroups: []int64{testGroup},
		PublicMedia:  true,
		Clock:        e.clock,
		Logger:       log,
	})
	e.instances = NewInstanceService(e.db, e.rm, e.clock)
	return e
}

// writeMedia stores a media file under the media dir and returns its ref.
func (e *env) writeMedia(t *testing.T, ref, content string) string {
	t.Helper()
	p := e.files.MediaPath(ref)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return ref
}

// submit saves an instance, requests submission and exports it.
func (e *env) submit(t *testing.T, uuid string, media ...string) *models.SurveyInstance {
	t.Helper()
	ctx := context.Background()

	inst := &models.SurveyInstance{UUID: uuid, FormID: "f1", FormVersion: "1.0", Submitter: "enumerator"}
	responses := []*models.Response{{QuestionID: "q1", Answer: "yes", Type: models.ResponseTypeValue}}
	for i, ref := range media {
		responses = append(responses, &models.Response{QuestionID: "photo", Iteration: i, Answer: ref, Type: models.ResponseTypeImage})
	}

	require.NoError(t, e.instances.Save(ctx, inst, responses))
	require.NoError(t, e.instances.MarkSubmitRequested(ctx, uuid))

	n, err := e.exporter.ExportPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	return e.instance(t, uuid)
}

func (e *env) instance(t *testing.T, uuid string) *models.SurveyInstance {
	t.Helper()
	inst, err := e.rm.Instances(e.db).GetByUUID(context.Background(), uuid)
	require.NoError(t, err)
	return inst
}

func (e *env) transmissions(t *testing.T, instanceID int64) []*models.Transmission {
	t.Helper()
	list, err := e.rm.Transmissions(e.db).ListByInstance(context.Background(), instanceID)
	require.NoError(t, err)
	return list
}

func (e *env) pending(t *testing.T) []*models.Transmission {
	t.Helper()
	list, err := e.rm.Transmissions(e.db).PendingWork(context.Background())
	require.NoError(t, err)
	return list
}

// fakeMetadata embeds the interface so tests override only what they use.
type fakeMetadata struct {
	gateway.Gateway

	batches  []*gateway.DatapointBatch
	errs     []error
	calls    int
	notified []string
}

func (f *fakeMetadata) FetchDatapoints(ctx context.Context, group int64, since int64) (*gateway.DatapointBatch, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	return &gateway.DatapointBatch{NextCursor: since}, nil
}

func (f *fakeMetadata) PendingFiles(ctx context.Context, formIDs []string) (*gateway.PendingFiles, error) {
	return &gateway.PendingFiles{}, nil
}

func (f *fakeMetadata) NotifyFileAvailable(ctx context.Context, action, formID, filename string) error {
	f.notified = append(f.notified, filename)
	return nil
}
