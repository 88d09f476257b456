package devserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

const defaultPageSize = 100

// Options configures a Server. Empty keys disable the matching signature
// check.
type Options struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Bucket    string
	PageSize  int

	// MaxSkew bounds the age of the ts parameter; zero disables the check.
	MaxSkew time.Duration

	Clock  clock.Clock
	Logger logging.Logger
}

// Object is an uploaded blob.
type Object struct {
	Key         string
	ContentType string
	Public      bool
	MD5Hex      string
	Body        []byte
}

// Notification is one processing notification received from a device.
type Notification struct {
	Action   string
	FormID   string
	Filename string
	DeviceID string
}

type Server struct {
	opts   Options
	router *mux.Router

	mu            sync.Mutex
	groups        map[int64][]gateway.Datapoint
	objects       map[string]Object
	puts          map[string]int
	notifications []Notification
	pending       gateway.PendingFiles
	forms         []gateway.FormHeader
	putFailure    int
}

func New(opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	s := &Server{
		opts:    opts,
		router:  mux.NewRouter(),
		groups:  make(map[int64][]gateway.Datapoint),
		objects: make(map[string]Object),
		puts:    make(map[string]int),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc(gateway.PathDatapoints, s.handleDatapoints).Methods(http.MethodGet)
	s.router.HandleFunc(gateway.PathNotification, s.handlePendingFiles).Methods(http.MethodGet)
	s.router.HandleFunc(gateway.PathProcessor, s.handleProcessor).Methods(http.MethodGet)
	s.router.HandleFunc(gateway.PathFormManager, s.handleForms).Methods(http.MethodGet)

	s.router.HandleFunc("/{bucket}/{key:.+}", s.handlePutObject).Methods(http.MethodPut)
	s.router.HandleFunc("/{bucket}/{key:.+}", s.handleGetObject).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// AddDatapoints assigns the device to group and stores dps, replacing any
// datapoint with the same id.
func (s *Server) AddDatapoints(group int64, dps ...gateway.Datapoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.groups[group]
	for _, dp := range dps {
		replaced := false
		for i := range cur {
			if cur[i].ID == dp.ID {
				cur[i] = dp
				replaced = true
				break
			}
		}
		if !replaced {
			cur = append(cur, dp)
		}
	}
	sort.SliceStable(cur, func(i, j int) bool { return cur[i].LastModified < cur[j].LastModified })
	s.groups[group] = cur
}

func (s *Server) SetPendingFiles(p gateway.PendingFiles) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = p
}

func (s *Server) AddForm(h gateway.FormHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = append(s.forms, h)
}

// FailPuts makes every object upload answer with status until called with 0.
func (s *Server) FailPuts(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putFailure = status
}

func (s *Server) Object(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

// PutCount is the number of accepted uploads for key.
func (s *Server) PutCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[key]
}

func (s *Server) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.notifications...)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.Logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
