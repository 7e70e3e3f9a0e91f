package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/identity"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
	"github.com/tesseract-hub/dashboard-gateway/internal/security"
)

// AdminHandler implements the admin-only metadata/provisioning endpoints:
// /manageTable, /manageGraph, /registerUser, /listCompanies.
type AdminHandler struct {
	repo        *registry.Repository
	adminClient *identity.AdminClient
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(repo *registry.Repository, adminClient *identity.AdminClient) *AdminHandler {
	return &AdminHandler{repo: repo, adminClient: adminClient}
}

type manageGraphRequest struct {
	Slug          string             `json:"slug" binding:"required"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	QueryTemplate string             `json:"query_template"`
	ParamSchema   registry.JSONMap   `json:"param_schema"`
	DefaultParams registry.JSONMap   `json:"default_params"`
	ResultShape   registry.JSONMap   `json:"result_shape"`
	AllowedRoles  []string           `json:"allowed_roles"`
	IsActive      *bool              `json:"is_active"`
}

type manageGraphResponse struct {
	Message     string `json:"message"`
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	CompanyName string `json:"company_name,omitempty"`
}

// ManageGraph implements POST /manageGraph: inserts a chart metadata row.
func (h *AdminHandler) ManageGraph(c *gin.Context) {
	var req manageGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "corpo da requisição inválido")
		return
	}

	chart := &registry.ChartMetadata{
		Slug:          req.Slug,
		Title:         req.Title,
		Description:   req.Description,
		QueryTemplate: req.QueryTemplate,
		ParamSchema:   req.ParamSchema,
		DefaultParams: req.DefaultParams,
		ResultShape:   req.ResultShape,
		AllowedRoles:  registry.StringArray(req.AllowedRoles),
		IsActive:      isActiveOrDefault(req.IsActive),
	}

	if err := h.repo.CreateChart(c.Request.Context(), chart); err != nil {
		if registry.IsUniqueViolation(err) {
			ErrorResponse(c, apierr.Conflict("já existe um gráfico com este slug"))
			return
		}
		ErrorResponse(c, apierr.Internal("falha ao criar gráfico", err))
		return
	}

	c.JSON(http.StatusCreated, manageGraphResponse{Message: "gráfico criado com sucesso", ID: chart.ID, Slug: chart.Slug})
}

type manageTableRequest struct {
	Slug          string             `json:"slug" binding:"required"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	QueryTemplate string             `json:"query_template"`
	ColumnConfig  registry.JSONMap   `json:"column_config"`
	ParamSchema   registry.JSONMap   `json:"param_schema"`
	DefaultParams registry.JSONMap   `json:"default_params"`
	ResultShape   registry.JSONMap   `json:"result_shape"`
	AllowedRoles  []string           `json:"allowed_roles"`
	PrimaryKey    string             `json:"primary_key"`
	IsActive      *bool              `json:"is_active"`
}

// ManageTable implements POST /manageTable: inserts a table metadata row.
func (h *AdminHandler) ManageTable(c *gin.Context) {
	var req manageTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "corpo da requisição inválido")
		return
	}

	table := &registry.TableMetadata{
		Slug:          req.Slug,
		Title:         req.Title,
		Description:   req.Description,
		QueryTemplate: req.QueryTemplate,
		ColumnConfig:  req.ColumnConfig,
		ParamSchema:   req.ParamSchema,
		DefaultParams: req.DefaultParams,
		ResultShape:   req.ResultShape,
		AllowedRoles:  registry.StringArray(req.AllowedRoles),
		PrimaryKey:    req.PrimaryKey,
		IsActive:      isActiveOrDefault(req.IsActive),
	}

	if err := h.repo.CreateTable(c.Request.Context(), table); err != nil {
		if registry.IsUniqueViolation(err) {
			ErrorResponse(c, apierr.Conflict("já existe uma tabela com este slug"))
			return
		}
		ErrorResponse(c, apierr.Internal("falha ao criar tabela", err))
		return
	}

	c.JSON(http.StatusCreated, manageGraphResponse{Message: "tabela criada com sucesso", ID: table.ID, Slug: table.Slug})
}

type registerUserRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DBHost      string `json:"db_host" binding:"required"`
	DBName      string `json:"db_name" binding:"required"`
	DBUser      string `json:"db_user" binding:"required"`
	DBPassword  string `json:"db_password" binding:"required"`
	CompanyName string `json:"company_name" binding:"required"`
}

// RegisterUser implements POST /registerUser: provisions an identity-
// provider user and its tenant directory row, rolling back the created
// user if persisting the tenant row fails (spec.md §7's explicit rollback
// rule).
func (h *AdminHandler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "campos obrigatórios ausentes")
		return
	}

	userID, err := h.adminClient.CreateUser(c.Request.Context(), identity.CreateUserRequest{
		Email:        req.Email,
		Password:     req.Password,
		EmailConfirm: true,
	})
	if err != nil {
		ErrorResponse(c, apierr.Internal("falha ao criar usuário", err))
		return
	}

	err = h.repo.CreateTenantDirectory(c.Request.Context(), &registry.TenantDirectoryRow{
		IDUser:      userID,
		DBHost:      req.DBHost,
		DBName:      req.DBName,
		DBUser:      req.DBUser,
		DBPassword:  req.DBPassword,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		if delErr := h.adminClient.DeleteUser(c.Request.Context(), userID); delErr != nil {
			logrus.WithError(delErr).WithField("user_id", security.MaskID(userID)).
				Error("falha ao reverter criação de usuário após erro de persistência do tenant")
		}
		ErrorResponse(c, apierr.Internal("falha ao registrar coordenadas do tenant", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"userId": userID})
}

// ListCompanies implements POST /listCompanies.
func (h *AdminHandler) ListCompanies(c *gin.Context) {
	names, err := h.repo.ListCompanyNames(c.Request.Context())
	if err != nil {
		ErrorResponse(c, apierr.Internal("falha ao listar empresas", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": names})
}

func isActiveOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
