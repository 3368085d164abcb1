package expense

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/approveflow/expense-service/internal/auth"
	"github.com/approveflow/expense-service/internal/transport"
	"github.com/approveflow/expense-service/pkg/logger"
)

type ServiceAPI interface {
	CreateExpense(ctx context.Context, actor *auth.Actor, dto CreateExpenseDTO) (*Expense, error)
	GetExpense(ctx context.Context, actor *auth.Actor, expenseID int64) (*Expense, error)
	UpdateDraft(ctx context.Context, actor *auth.Actor, expenseID int64, dto UpdateExpenseDTO) (*Expense, error)
	DeleteDraft(ctx context.Context, actor *auth.Actor, expenseID int64) error
	SubmitDraft(ctx context.Context, actor *auth.Actor, expenseID int64) (*Expense, error)
	SubmitDecision(ctx context.Context, actor *auth.Actor, expenseID int64, dto DecisionDTO) (*Expense, error)
	OverrideDecision(ctx context.Context, actor *auth.Actor, expenseID int64, dto OverrideDTO) (*Expense, error)
	ListMyExpenses(ctx context.Context, actor *auth.Actor) ([]*Expense, error)
	ListPendingForApprover(ctx context.Context, actor *auth.Actor) ([]*Expense, error)
	ListTeamExpenses(ctx context.Context, actor *auth.Actor) ([]*Expense, error)
	AdminListExpenses(ctx context.Context, actor *auth.Actor, filter ListFilter) ([]*Expense, error)
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

// Create handles POST /api/v1/expenses
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Create: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.CreateExpense(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewExpenseResponse(e))
}

// Get handles GET /api/v1/expenses/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	e, err := h.Service.GetExpense(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(e))
}

// Update handles PUT /api/v1/expenses/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto UpdateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.UpdateDraft(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(e))
}

// Delete handles DELETE /api/v1/expenses/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteDraft(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /api/v1/expenses/{id}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	e, err := h.Service.SubmitDraft(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(e))
}

// Decide handles POST /api/v1/expenses/{id}/decision
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.SubmitDecision(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(e))
}

// Override handles POST /api/v1/expenses/{id}/override
func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto OverrideDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.OverrideDecision(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(e))
}

// ListMine handles GET /api/v1/expenses
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenses, err := h.Service.ListMyExpenses(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewListResponse(expenses))
}

// ListPending handles GET /api/v1/expenses/pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenses, err := h.Service.ListPendingForApprover(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewListResponse(expenses))
}

// ListTeam handles GET /api/v1/expenses/team
func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenses, err := h.Service.ListTeamExpenses(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewListResponse(expenses))
}

// AdminList handles GET /api/v1/admin/expenses
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, svcErr := h.Service.AdminListExpenses(r.Context(), actor, filter)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewListResponse(expenses))
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (*auth.Actor, int64, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense id")
		return nil, 0, false
	}

	return actor, id, true
}

func filterFromQuery(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}

	if v := q.Get("employee_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errInvalidQuery("employee_id")
		}
		filter.EmployeeID = id
	}

	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errInvalidQuery("date_from")
		}
		filter.DateFrom = &t
	}

	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errInvalidQuery("date_to")
		}
		filter.DateTo = &t
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return filter, errInvalidQuery("page")
		}
		filter.Page = page
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, errInvalidQuery("limit")
		}
		filter.Limit = limit
	}

	return filter, nil
}

type queryError string

func (e queryError) Error() string { return string(e) }

func errInvalidQuery(field string) error {
	return queryError("invalid query parameter: " + field)
}
