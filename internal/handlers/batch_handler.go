package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/batch"
	"github.com/tesseract-hub/dashboard-gateway/internal/middleware"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
)

// BatchHandler implements POST /fetchUserData, the request orchestrator's
// main data-fetch path: authenticate → resolve tenant coordinates → run the
// batch executor → respond (spec.md §4.9).
type BatchHandler struct {
	directory *tenantdir.Directory
	executor  *batch.Executor
}

// NewBatchHandler builds a BatchHandler.
func NewBatchHandler(directory *tenantdir.Directory, executor *batch.Executor) *BatchHandler {
	return &BatchHandler{directory: directory, executor: executor}
}

// FetchUserData implements POST /fetchUserData.
func (h *BatchHandler) FetchUserData(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		ErrorResponse(c, apierr.Unauthenticated("autenticação ausente"))
		return
	}

	var req batch.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "corpo da requisição inválido")
		return
	}

	coords, err := h.directory.Lookup(c.Request.Context(), principal.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	resp, err := h.executor.Execute(c.Request.Context(), coords, principal, req)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
