package handlers

import (
	"net/http"
	"testing"

	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/jobs"
)

func TestListVMs(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.seedVM(t, "uuid-1", "web-01", "linux")
	f.seedVM(t, "uuid-2", "app-01", "windows")

	w := f.do(t, http.MethodGet, "/api/v1/vms", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	vms := decodeJSON[[]*domain.VirtualMachine](t, w.Body.Bytes())
	if len(vms) != 2 {
		t.Fatalf("got %d vms, want 2", len(vms))
	}
}

func TestListVMsStatusFilter(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.seedVM(t, "uuid-1", "web-01", "linux")
	ready := f.seedVM(t, "uuid-2", "app-01", "windows")
	ready.Status = domain.VMStatusReady
	if _, err := f.vms.Update(t.Context(), ready); err != nil {
		t.Fatalf("update vm: %v", err)
	}

	w := f.do(t, http.MethodGet, "/api/v1/vms?status_filter=ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	vms := decodeJSON[[]*domain.VirtualMachine](t, w.Body.Bytes())
	if len(vms) != 1 || vms[0].UUID != "uuid-2" {
		t.Fatalf("unexpected filter result: %+v", vms)
	}
}

func TestGetVMNotFound(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/api/v1/vms/99", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	assertErrorCode(t, w.Body.Bytes(), "VM_NOT_FOUND")
}

func TestCreateVM(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	body := mustJSON(t, VMCreateRequest{
		Name:     "db-01",
		UUID:     "vm-db-01",
		OSType:   "Ubuntu 22.04 LTS",
		OSFamily: "linux",
		CPUCount: 4,
		MemoryMB: 8192,
	})
	w := f.do(t, http.MethodPost, "/api/v1/vms", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	vm := decodeJSON[*domain.VirtualMachine](t, w.Body.Bytes())
	if vm.ID == 0 || vm.Status != domain.VMStatusDiscovered {
		t.Fatalf("unexpected created vm: %+v", vm)
	}
}

func TestCreateVMDuplicateUUID(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.seedVM(t, "dup-uuid", "web-01", "linux")

	body := mustJSON(t, VMCreateRequest{Name: "other", UUID: "dup-uuid"})
	w := f.do(t, http.MethodPost, "/api/v1/vms", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d body=%s", w.Code, http.StatusConflict, w.Body.String())
	}
	assertErrorCode(t, w.Body.Bytes(), "VM_ALREADY_EXISTS")
}

func TestCreateVMMissingRequiredFields(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/vms", `{"name":"no-uuid"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	assertErrorCode(t, w.Body.Bytes(), "VALIDATION_FAILED")
}

func TestUpdateVM(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	vm := f.seedVM(t, "uuid-1", "web-01", "linux")

	w := f.do(t, http.MethodPut, "/api/v1/vms/1", `{"status":"ready","name":"web-01-renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	updated := decodeJSON[*domain.VirtualMachine](t, w.Body.Bytes())
	if updated.ID != vm.ID || updated.Status != domain.VMStatusReady || updated.Name != "web-01-renamed" {
		t.Fatalf("unexpected updated vm: %+v", updated)
	}
}

func TestUpdateVMUnknownStatus(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.seedVM(t, "uuid-1", "web-01", "linux")

	w := f.do(t, http.MethodPut, "/api/v1/vms/1", `{"status":"exploded"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestDeleteVM(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.seedVM(t, "uuid-1", "web-01", "linux")

	w := f.do(t, http.MethodDelete, "/api/v1/vms/1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w = f.do(t, http.MethodGet, "/api/v1/vms/1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("vm still readable after delete: %d", w.Code)
	}
}

func TestDiscoverVMsEnqueues(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	body := mustJSON(t, DiscoveryRequest{
		Host:     "vcenter.internal",
		Username: "admin",
		Password: "secret",
	})
	w := f.do(t, http.MethodPost, "/api/v1/vms/discover", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decodeJSON[TaskQueuedResponse](t, w.Body.Bytes())
	if resp.TaskID == 0 || resp.Status != "queued" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if len(f.queue.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(f.queue.enqueued))
	}
	args, ok := f.queue.enqueued[0].(jobs.VMDiscoverArgs)
	if !ok {
		t.Fatalf("enqueued args type %T", f.queue.enqueued[0])
	}
	if args.Host != "vcenter.internal" || args.HypervisorType != "vsphere" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDiscoverVMsRequiresCredentials(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/vms/discover", `{"host":"vcenter.internal"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(f.queue.enqueued) != 0 {
		t.Fatalf("job enqueued despite invalid request")
	}
}

func TestAnalyzeVMEnqueues(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	vm := f.seedVM(t, "uuid-1", "web-01", "linux")

	w := f.do(t, http.MethodPost, "/api/v1/vms/1/analyze", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decodeJSON[TaskQueuedResponse](t, w.Body.Bytes())
	if resp.Message != "Analysis task queued for VM web-01" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}

	args, ok := f.queue.enqueued[0].(jobs.VMAnalyzeArgs)
	if !ok || args.VMID != vm.ID {
		t.Fatalf("unexpected enqueued args: %+v", f.queue.enqueued[0])
	}
}

func TestAnalyzeVMNotFound(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/vms/42/analyze", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	assertErrorCode(t, w.Body.Bytes(), "VM_NOT_FOUND")
}
