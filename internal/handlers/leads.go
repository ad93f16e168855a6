package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"leadchat-service/internal/access"
	"leadchat-service/internal/export"
	"leadchat-service/internal/middleware"
	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
	"leadchat-service/internal/telemetry"
)

// LeadHandler serves the CRM pipeline: leads, stages, assignment and
// spreadsheet export.
type LeadHandler struct {
	leads repositories.LeadRepository
	users repositories.UserRepository
	gate  *access.Gate
	audit *telemetry.AuditEmitter
}

func NewLeadHandler(leads repositories.LeadRepository, users repositories.UserRepository, gate *access.Gate, audit *telemetry.AuditEmitter) *LeadHandler {
	return &LeadHandler{leads: leads, users: users, gate: gate, audit: audit}
}

// List returns every lead for managers, only owned leads for sellers.
func (h *LeadHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if h.gate.Allowed(user, access.CapViewAllLeads) {
		leads, err := h.leads.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leads"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leads": leads})
		return
	}

	if err := h.gate.Authorize(user, access.CapViewOwnLeads); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}
	leads, err := h.leads.ListByResponsible(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// Get fetches one lead. Sellers only see their own.
func (h *LeadHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	lead, err := h.leads.Get(c.Request.Context(), leadID)
	if err != nil {
		writeLeadError(c, err)
		return
	}
	if !h.canSeeLead(user, lead) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}
	c.JSON(http.StatusOK, lead)
}

type leadCommand struct {
	Name          string   `json:"name" binding:"required"`
	Phone         string   `json:"phone" binding:"required"`
	StageID       int      `json:"stage_id"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags"`
	SuccessChance int      `json:"success_chance"`
	Value         float64  `json:"value"`
}

// Create inserts a new lead owned by the requester.
func (h *LeadHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewCRM); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	var cmd leadCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cmd.SuccessChance < 0 || cmd.SuccessChance > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "success_chance must be between 0 and 100"})
		return
	}
	if cmd.Status == "" {
		cmd.Status = models.LeadStatusNew
	}
	if cmd.StageID == 0 {
		cmd.StageID = 1
	}

	responsible := user.ID
	lead, err := h.leads.Create(c.Request.Context(), models.Lead{
		Name:          cmd.Name,
		Phone:         cmd.Phone,
		StageID:       cmd.StageID,
		ResponsibleID: &responsible,
		Status:        cmd.Status,
		Tags:          pq.StringArray(cmd.Tags),
		SuccessChance: cmd.SuccessChance,
		Value:         cmd.Value,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create lead"})
		return
	}
	c.JSON(http.StatusCreated, lead)
}

// Update rewrites a lead's mutable fields.
func (h *LeadHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	current, err := h.leads.Get(c.Request.Context(), leadID)
	if err != nil {
		writeLeadError(c, err)
		return
	}
	if !h.canSeeLead(user, current) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	var cmd leadCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cmd.SuccessChance < 0 || cmd.SuccessChance > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "success_chance must be between 0 and 100"})
		return
	}

	current.Name = cmd.Name
	current.Phone = cmd.Phone
	if cmd.StageID != 0 {
		current.StageID = cmd.StageID
	}
	if cmd.Status != "" {
		current.Status = cmd.Status
	}
	current.Tags = pq.StringArray(cmd.Tags)
	current.SuccessChance = cmd.SuccessChance
	current.Value = cmd.Value

	lead, err := h.leads.Update(c.Request.Context(), current)
	if err != nil {
		writeLeadError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// Delete removes a lead. Manager-only.
func (h *LeadHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewAllLeads); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}
	if err := h.leads.Delete(c.Request.Context(), leadID); err != nil {
		writeLeadError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "lead deleted: "+strconv.Itoa(leadID), requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

type assignCommand struct {
	ResponsibleID *int `json:"responsible_id"`
}

// Assign hands a lead to a new responsible, recording the handover.
func (h *LeadHandler) Assign(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapAssignLeads); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var cmd assignCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead, err := h.leads.Assign(c.Request.Context(), leadID, cmd.ResponsibleID, user.ID)
	if err != nil {
		writeLeadError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "lead reassigned: "+strconv.Itoa(leadID), requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, lead)
}

// History returns a lead's assignment handovers, oldest first.
func (h *LeadHandler) History(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewCRM); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	leadID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}
	history, err := h.leads.AssignmentHistory(c.Request.Context(), leadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Stages returns the pipeline columns in board order.
func (h *LeadHandler) Stages(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewCRM); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	stages, err := h.leads.ListStages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// Export streams the full pipeline as an xlsx workbook.
func (h *LeadHandler) Export(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapExportLeads); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	ctx := c.Request.Context()
	leads, err := h.leads.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leads"})
		return
	}
	stages, err := h.leads.ListStages(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stages"})
		return
	}
	users, err := h.users.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	buf, err := export.LeadsXLSX(leads, stages, users)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build spreadsheet"})
		return
	}

	filename := "leads-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *LeadHandler) canSeeLead(user models.User, lead models.Lead) bool {
	if h.gate.Allowed(user, access.CapViewAllLeads) {
		return true
	}
	return lead.ResponsibleID != nil && *lead.ResponsibleID == user.ID
}

func writeLeadError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrLeadNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "lead operation failed"})
}
