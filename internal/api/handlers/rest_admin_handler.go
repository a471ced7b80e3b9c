package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartliving/site/internal/api/middleware"
	"smartliving/site/internal/models"
	"smartliving/site/internal/services"
)

// RestAdminHandler covers admin sign-in and notification templates.
type RestAdminHandler struct {
	admins    services.IAdminUserService
	templates services.IEmailTemplateService
}

func NewRestAdminHandler(admins services.IAdminUserService, templates services.IEmailTemplateService) *RestAdminHandler {
	return &RestAdminHandler{admins: admins, templates: templates}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type templateRequest struct {
	Locale  string `json:"locale"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body"`
}

// Login handles POST /v1/admin/login
func (h *RestAdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}
	res, err := h.admins.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "sign in")
		return
	}
	c.JSON(http.StatusOK, res)
}

// Me handles GET /v1/admin/me
func (h *RestAdminHandler) Me(c *gin.Context) {
	user, err := h.admins.FindByID(c.Request.Context(), c.GetString(middleware.ContextKeyUserID))
	if err != nil {
		respondError(c, err, "load admin")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetEmailTemplate handles GET /v1/admin/email-templates/:id[?locale=]
func (h *RestAdminHandler) GetEmailTemplate(c *gin.Context) {
	tmpl, err := h.templates.GetTemplate(c.Request.Context(), c.Param("id"), c.Query("locale"))
	if err != nil {
		respondError(c, err, "load template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *RestAdminHandler) SaveEmailTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "subject is required")
		return
	}
	tmpl := &models.EmailTemplate{
		TemplateID: c.Param("id"),
		Locale:     req.Locale,
		Subject:    req.Subject,
		Body:       req.Body,
	}
	if err := h.templates.SaveTemplate(c.Request.Context(), tmpl); err != nil {
		respondError(c, err, "save template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *RestAdminHandler) DeleteEmailTemplate(c *gin.Context) {
	if err := h.templates.DeleteTemplate(c.Request.Context(), c.Param("id"), c.Query("locale")); err != nil {
		respondError(c, err, "delete template")
		return
	}
	c.Status(http.StatusNoContent)
}
