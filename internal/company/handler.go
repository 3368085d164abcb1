package company

import (
	"encoding/json"
	"net/http"

	"github.com/approveflow/expense-service/internal/auth"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
	"github.com/approveflow/expense-service/internal/transport"
	"github.com/approveflow/expense-service/pkg/logger"
)

type ServiceAPI interface {
	GetCompanyByID(id int64) (*companyDatamodel.Company, error)
	UpdateCompany(companyID int64, dto UpdateCompanyDTO) (*companyDatamodel.Company, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     service,
	}
}

// Get handles GET /api/v1/company
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.Service.GetCompanyByID(actor.CompanyID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewCompanyView(c))
}

// Update handles PATCH /api/v1/admin/company
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateCompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.UpdateCompany(actor.CompanyID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewCompanyView(c))
}
