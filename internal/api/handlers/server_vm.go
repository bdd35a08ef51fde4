package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/jobs"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

// ListVMs handles GET /api/v1/vms.
func (s *Server) ListVMs(c *gin.Context) {
	vms, err := s.vms.List(c.Request.Context(), vmFilter(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if vms == nil {
		vms = []*domain.VirtualMachine{}
	}
	c.JSON(http.StatusOK, vms)
}

// GetVM handles GET /api/v1/vms/:id.
func (s *Server) GetVM(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	vm, err := s.vms.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.VMNotFoundf(id))
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, vm)
}

// CreateVM handles POST /api/v1/vms — direct registration without discovery.
func (s *Server) CreateVM(c *gin.Context) {
	var req VMCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
		return
	}

	vm, err := s.vms.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			_ = c.Error(apperrors.VMExistsf(req.UUID))
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, vm)
}

// UpdateVM handles PUT /api/v1/vms/:id.
func (s *Server) UpdateVM(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req VMUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
		return
	}

	vm, err := s.vms.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.VMNotFoundf(id))
			return
		}
		_ = c.Error(err)
		return
	}
	if err := req.apply(vm); err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := s.vms.Update(c.Request.Context(), vm)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteVM handles DELETE /api/v1/vms/:id.
func (s *Server) DeleteVM(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.vms.Delete(c.Request.Context(), id); err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.VMNotFoundf(id))
			return
		}
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DiscoverVMs handles POST /api/v1/vms/discover — enqueues a hypervisor scan.
func (s *Server) DiscoverVMs(c *gin.Context) {
	var req DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
		return
	}
	if req.HypervisorType == "" {
		req.HypervisorType = "vsphere"
	}

	jobID, err := s.queue.Enqueue(c.Request.Context(), jobs.VMDiscoverArgs{
		HypervisorType: req.HypervisorType,
		Host:           req.Host,
		Username:       req.Username,
		Password:       req.Password,
		Datacenter:     req.Datacenter,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.metrics.JobEnqueued(jobs.VMDiscoverArgs{}.Kind())

	c.JSON(http.StatusOK, TaskQueuedResponse{
		TaskID:  jobID,
		Status:  "queued",
		Message: "VM discovery task has been queued",
	})
}

// AnalyzeVM handles POST /api/v1/vms/:id/analyze — enqueues an analysis job.
func (s *Server) AnalyzeVM(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	vm, err := s.vms.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.VMNotFoundf(id))
			return
		}
		_ = c.Error(err)
		return
	}

	jobID, err := s.queue.Enqueue(c.Request.Context(), jobs.VMAnalyzeArgs{VMID: id})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.metrics.JobEnqueued(jobs.VMAnalyzeArgs{}.Kind())

	c.JSON(http.StatusOK, TaskQueuedResponse{
		TaskID:  jobID,
		Status:  "queued",
		Message: fmt.Sprintf("Analysis task queued for VM %s", vm.Name),
	})
}
