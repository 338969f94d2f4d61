package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobqueue-service/internal/api/middleware"
	"jobqueue-service/internal/core/services"
	"jobqueue-service/internal/infrastructure/logger"
	apierrors "jobqueue-service/internal/pkg/errors"
	"jobqueue-service/internal/pkg/utils"
	"jobqueue-service/internal/pkg/validation"
)

// JobsHandler handles job management HTTP requests
type JobsHandler struct {
	service   *services.JobService
	validator *validation.Validator
	logger    logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(service *services.JobService, validator *validation.Validator, log logger.Logger) *JobsHandler {
	return &JobsHandler{
		service:   service,
		validator: validator,
		logger:    log.With("handler", "jobs"),
	}
}

// Create handles POST /api/jobs
func (h *JobsHandler) Create(c *gin.Context) {
	var input validation.EnqueueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.AbortWithError(c, apierrors.InvalidArgument("Invalid request body").
			WithDetails(map[string]interface{}{"body": err.Error()}))
		return
	}

	if apiErr := h.validator.ValidateEnqueue(&input); apiErr != nil {
		middleware.AbortWithError(c, apiErr)
		return
	}

	job, err := h.service.Enqueue(services.EnqueueRequest{
		Command:    input.Command,
		Priority:   input.Priority,
		TimeoutMs:  input.Timeout,
		MaxRetries: input.MaxRetries,
	})
	if err != nil {
		middleware.AbortWithError(c, apierrors.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id":  job.ID,
		"status":  "queued",
		"message": "Job submitted successfully",
	})
}

// Get handles GET /api/jobs/:id
func (h *JobsHandler) Get(c *gin.Context) {
	jobID := c.Param("id")
	if !utils.ValidateID(jobID) {
		middleware.AbortWithError(c, apierrors.InvalidArgument("Job id must be a valid UUID").
			WithDetails(map[string]interface{}{"id": jobID}))
		return
	}

	job, err := h.service.Get(jobID)
	if err != nil {
		middleware.AbortWithError(c, apierrors.FromError(err))
		return
	}

	c.JSON(http.StatusOK, job)
}

// List handles GET /api/jobs
func (h *JobsHandler) List(c *gin.Context) {
	input := validation.ListInput{
		Status: c.Query("status"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			middleware.AbortWithError(c, apierrors.InvalidArgument("limit must be an integer").
				WithDetails(map[string]interface{}{"limit": raw}))
			return
		}
		input.Limit = &limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			middleware.AbortWithError(c, apierrors.InvalidArgument("offset must be an integer").
				WithDetails(map[string]interface{}{"offset": raw}))
			return
		}
		input.Offset = &offset
	}

	if apiErr := h.validator.ValidateList(&input); apiErr != nil {
		middleware.AbortWithError(c, apiErr)
		return
	}

	req := services.ListRequest{Status: input.Status}
	if input.Limit != nil {
		req.Limit = *input.Limit
	}
	if input.Offset != nil {
		req.Offset = *input.Offset
	}

	result, err := h.service.List(req)
	if err != nil {
		middleware.AbortWithError(c, apierrors.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   result.Items,
		"total":  result.Total,
		"limit":  result.Limit,
		"offset": result.Offset,
	})
}

// Cancel handles DELETE /api/jobs/:id
func (h *JobsHandler) Cancel(c *gin.Context) {
	jobID := c.Param("id")
	if !utils.ValidateID(jobID) {
		middleware.AbortWithError(c, apierrors.InvalidArgument("Job id must be a valid UUID").
			WithDetails(map[string]interface{}{"id": jobID}))
		return
	}

	job, err := h.service.Cancel(jobID)
	if err != nil {
		middleware.AbortWithError(c, apierrors.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Job cancelled successfully",
	})
}

// Stats handles GET /api/stats
func (h *JobsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}
