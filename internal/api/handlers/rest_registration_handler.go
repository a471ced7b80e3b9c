package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartliving/site/internal/services"
)

// RestRegistrationHandler serves charter registration forms to the admin
// area and to guests following their form link.
type RestRegistrationHandler struct {
	registrations services.IRegistrationService
}

func NewRestRegistrationHandler(registrations services.IRegistrationService) *RestRegistrationHandler {
	return &RestRegistrationHandler{registrations: registrations}
}

type createFormRequest struct {
	InquiryID string                 `json:"inquiryId"`
	Form      map[string]interface{} `json:"form"`
}

type saveFormRequest struct {
	Form            map[string]interface{} `json:"form" binding:"required"`
	ExpectedVersion *int64                 `json:"expectedVersion"`
}

type sendFormRequest struct {
	EmailGuest bool `json:"emailGuest"`
}

type summaryRequest struct {
	Summary string `json:"summary"`
}

// NewDraft handles GET /v1/admin/charter-form/new?inquiryId=
// The draft is not stored until the admin saves it.
func (h *RestRegistrationHandler) NewDraft(c *gin.Context) {
	inquiryID := c.Query("inquiryId")
	if inquiryID == "" {
		badRequest(c, "inquiryId is required")
		return
	}
	draft, err := h.registrations.PrepareFromInquiry(c.Request.Context(), inquiryID)
	if err != nil {
		respondError(c, err, "prepare form")
		return
	}
	c.JSON(http.StatusOK, draft)
}

// CreateForm handles POST /v1/admin/charter-forms
func (h *RestRegistrationHandler) CreateForm(c *gin.Context) {
	var req createFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	reg, err := h.registrations.Create(c.Request.Context(), req.InquiryID, req.Form)
	if err != nil {
		respondError(c, err, "create form")
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (h *RestRegistrationHandler) ListForms(c *gin.Context) {
	list, err := h.registrations.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list forms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// GetForm handles GET /v1/admin/charter-forms/:id
func (h *RestRegistrationHandler) GetForm(c *gin.Context) {
	detail, err := h.registrations.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "load form")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SaveForm handles PUT /v1/admin/charter-forms/:id
func (h *RestRegistrationHandler) SaveForm(c *gin.Context) {
	var req saveFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "form is required")
		return
	}
	reg, err := h.registrations.Save(c.Request.Context(), c.Param("id"), req.Form, req.ExpectedVersion)
	if err != nil {
		respondError(c, err, "save form")
		return
	}
	c.JSON(http.StatusOK, reg)
}

// SendForm handles POST /v1/admin/charter-forms/:id/send
func (h *RestRegistrationHandler) SendForm(c *gin.Context) {
	var req sendFormRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	reg, err := h.registrations.Send(c.Request.Context(), c.Param("id"), req.EmailGuest)
	if err != nil {
		respondError(c, err, "send form")
		return
	}
	c.JSON(http.StatusOK, reg)
}

// SetSummary handles PUT /v1/admin/charter-forms/:id/summary
func (h *RestRegistrationHandler) SetSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := h.registrations.SetAdminSummary(c.Request.Context(), c.Param("id"), req.Summary); err != nil {
		respondError(c, err, "save summary")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RestRegistrationHandler) DeleteForm(c *gin.Context) {
	if err := h.registrations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete form")
		return
	}
	c.Status(http.StatusNoContent)
}

// GuestForm handles GET /v1/charter-form/:id[?print=1]
func (h *RestRegistrationHandler) GuestForm(c *gin.Context) {
	autoPrint := c.Query("print") == "1"
	view, err := h.registrations.GuestView(c.Request.Context(), c.Param("id"), autoPrint)
	if err != nil {
		respondError(c, err, "load form")
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitGuestForm handles POST /v1/charter-form/:id. The body is the map of
// answered fields.
func (h *RestRegistrationHandler) SubmitGuestForm(c *gin.Context) {
	var answers map[string]interface{}
	if err := c.ShouldBindJSON(&answers); err != nil {
		badRequest(c, "Invalid form submission")
		return
	}
	if _, err := h.registrations.SubmitGuestForm(c.Request.Context(), c.Param("id"), answers); err != nil {
		respondError(c, err, "submit form")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
