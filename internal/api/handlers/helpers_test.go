package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"vmshift.io/vmshift/internal/api/middleware"
	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/service"
	"vmshift.io/vmshift/internal/taskqueue"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

// fakeQueue satisfies TaskQueue without a database.
type fakeQueue struct {
	nextID   int64
	enqueued []river.JobArgs

	status    *taskqueue.TaskStatus
	statusErr error
	revokeErr error
	pingErr   error
	revoked   []int64
}

func (q *fakeQueue) Enqueue(_ context.Context, args river.JobArgs) (int64, error) {
	q.nextID++
	q.enqueued = append(q.enqueued, args)
	return q.nextID, nil
}

func (q *fakeQueue) GetStatus(_ context.Context, jobID int64) (*taskqueue.TaskStatus, error) {
	if q.statusErr != nil {
		return nil, q.statusErr
	}
	if q.status == nil {
		return &taskqueue.TaskStatus{TaskID: jobID, Status: taskqueue.StatePending}, nil
	}
	return q.status, nil
}

func (q *fakeQueue) Revoke(_ context.Context, jobID int64, _ bool) error {
	if q.revokeErr != nil {
		return q.revokeErr
	}
	q.revoked = append(q.revoked, jobID)
	return nil
}

func (q *fakeQueue) ListActive(_ context.Context) (*taskqueue.ActiveJobs, error) {
	return &taskqueue.ActiveJobs{
		Active:    map[string][]taskqueue.JobDescriptor{},
		Scheduled: map[string][]taskqueue.JobDescriptor{},
		Reserved:  map[string][]taskqueue.JobDescriptor{},
	}, nil
}

func (q *fakeQueue) WorkerStatus(_ context.Context) (*taskqueue.WorkerReport, error) {
	return &taskqueue.WorkerReport{Ping: map[string]string{"queue": "pong"}}, nil
}

func (q *fakeQueue) Ping(_ context.Context) error { return q.pingErr }

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

type handlerFixture struct {
	srv   *Server
	vms   *repository.MemoryVMStore
	migs  *repository.MemoryMigrationStore
	queue *fakeQueue
	db    *fakePinger
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	vms := repository.NewMemoryVMStore()
	migs := repository.NewMemoryMigrationStore(vms)
	queue := &fakeQueue{}
	db := &fakePinger{}
	gen, err := service.NewArtifactGenerator()
	if err != nil {
		t.Fatalf("new artifact generator: %v", err)
	}
	srv := NewServer(ServerDeps{
		VMs:        vms,
		Migrations: migs,
		Queue:      queue,
		DB:         db,
		Artifacts:  gen,
	})
	return &handlerFixture{srv: srv, vms: vms, migs: migs, queue: queue, db: db}
}

// router wires the fixture server behind the error middleware so handler
// errors render the way they do in production.
func (f *handlerFixture) router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())

	r.GET("/", f.srv.Root)
	r.GET("/health", f.srv.Health)
	r.GET("/health/detailed", f.srv.DetailedHealth)
	r.GET("/ready", f.srv.Ready)
	r.GET("/live", f.srv.Live)

	v1 := r.Group("/api/v1")
	vms := v1.Group("/vms")
	vms.GET("", f.srv.ListVMs)
	vms.POST("", f.srv.CreateVM)
	vms.POST("/discover", f.srv.DiscoverVMs)
	vms.GET("/:id", f.srv.GetVM)
	vms.PUT("/:id", f.srv.UpdateVM)
	vms.DELETE("/:id", f.srv.DeleteVM)
	vms.POST("/:id/analyze", f.srv.AnalyzeVM)

	migrations := v1.Group("/migrations")
	migrations.GET("", f.srv.ListMigrations)
	migrations.POST("", f.srv.CreateMigration)
	migrations.GET("/:id", f.srv.GetMigration)
	migrations.PUT("/:id", f.srv.UpdateMigration)
	migrations.DELETE("/:id", f.srv.DeleteMigration)
	migrations.POST("/:id/start", f.srv.StartMigration)
	migrations.POST("/:id/cancel", f.srv.CancelMigration)
	migrations.POST("/:id/rollback", f.srv.RollbackMigration)
	migrations.GET("/:id/artifacts", f.srv.GetMigrationArtifacts)
	migrations.POST("/:id/generate-artifacts", f.srv.GenerateMigrationArtifacts)

	tasks := v1.Group("/tasks")
	tasks.GET("", f.srv.ListTasks)
	tasks.GET("/workers/status", f.srv.WorkerStatus)
	tasks.GET("/:id", f.srv.GetTask)
	tasks.DELETE("/:id", f.srv.RevokeTask)

	return r
}

func (f *handlerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) seedVM(t *testing.T, uuid, name, osFamily string) *domain.VirtualMachine {
	t.Helper()
	vm, err := f.vms.Create(context.Background(), &domain.VirtualMachine{
		UUID:     uuid,
		Name:     name,
		OSType:   "Ubuntu 22.04 LTS",
		OSFamily: osFamily,
		CPUCount: 2,
		MemoryMB: 4096,
		Status:   domain.VMStatusDiscovered,
	})
	if err != nil {
		t.Fatalf("seed vm: %v", err)
	}
	return vm
}

func (f *handlerFixture) seedMigration(t *testing.T, vmID int64, status domain.MigrationStatus) *domain.Migration {
	t.Helper()
	m, err := f.migs.Create(context.Background(), &domain.Migration{
		VMID:           vmID,
		Name:           "test-migration",
		TargetPlatform: domain.PlatformKubernetes,
		BaseImage:      "ubuntu:22.04",
		ContainerPort:  8080,
		Replicas:       1,
		Status:         status,
	})
	if err != nil {
		t.Fatalf("seed migration: %v", err)
	}
	return m
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	return string(b)
}

func decodeJSON[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, body)
	}
	return out
}

func assertErrorCode(t *testing.T, body []byte, want string) {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != want {
		t.Fatalf("error code = %q, want %q (body=%s)", resp.Code, want, body)
	}
}
