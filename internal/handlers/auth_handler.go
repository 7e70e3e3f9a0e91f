package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/middleware"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantpool"
)

// CustomerHandler implements /toggleCustomerPaused, the one endpoint that
// mutates tenant-owned business data (clientes) directly rather than
// through the batch executor's read path.
type CustomerHandler struct {
	directory *tenantdir.Directory
	pool      *tenantpool.Registry
}

// NewCustomerHandler builds a CustomerHandler.
func NewCustomerHandler(directory *tenantdir.Directory, pool *tenantpool.Registry) *CustomerHandler {
	return &CustomerHandler{directory: directory, pool: pool}
}

type toggleCustomerPausedRequest struct {
	CustomerID int64 `json:"customer_id" binding:"required"`
}

// ToggleCustomerPaused implements POST /toggleCustomerPaused.
func (h *CustomerHandler) ToggleCustomerPaused(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		ErrorResponse(c, apierr.Unauthenticated("autenticação ausente"))
		return
	}

	var req toggleCustomerPausedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "customer_id ausente ou inválido")
		return
	}

	coords, err := h.directory.Lookup(c.Request.Context(), principal.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var paused bool
	err = h.pool.WithTenantConnection(c.Request.Context(), coords, func(conn *pgxpool.Conn) error {
		row := conn.QueryRow(c.Request.Context(),
			"UPDATE clientes SET paused = NOT paused WHERE id = $1 RETURNING paused", req.CustomerID)
		scanErr := row.Scan(&paused)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return apierr.NotFound("cliente não encontrado")
		}
		if scanErr != nil {
			return apierr.Internal("falha ao atualizar cliente", scanErr)
		}
		return nil
	})
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer_id": req.CustomerID, "paused": paused})
}
