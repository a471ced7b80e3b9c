package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartliving/site/internal/services"
)

type RestContactHandler struct {
	contacts services.IContactService
}

func NewRestContactHandler(contacts services.IContactService) *RestContactHandler {
	return &RestContactHandler{contacts: contacts}
}

// CreateMessage handles POST /v1/contact-messages
func (h *RestContactHandler) CreateMessage(c *gin.Context) {
	var in services.ContactMessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, services.InputError(err), "send message")
		return
	}
	msg, err := h.contacts.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *RestContactHandler) ListMessages(c *gin.Context) {
	list, err := h.contacts.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// MarkRead handles PUT /v1/admin/contact-messages/:id/read
func (h *RestContactHandler) MarkRead(c *gin.Context) {
	if err := h.contacts.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "update message")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RestContactHandler) DeleteMessage(c *gin.Context) {
	if err := h.contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete message")
		return
	}
	c.Status(http.StatusNoContent)
}
