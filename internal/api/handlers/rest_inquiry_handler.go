package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartliving/site/internal/models"
	"smartliving/site/internal/services"
)

const countsHeartbeat = 25 * time.Second

// RestInquiryHandler serves charter and lesson inquiries.
type RestInquiryHandler struct {
	inquiries services.IInquiryService
	streams   context.Context
}

// NewRestInquiryHandler returns a handler whose counts streams end when
// streams is cancelled, independently of the request contexts.
func NewRestInquiryHandler(inquiries services.IInquiryService, streams context.Context) *RestInquiryHandler {
	if streams == nil {
		streams = context.Background()
	}
	return &RestInquiryHandler{inquiries: inquiries, streams: streams}
}

type statusRequest struct {
	Status models.InquiryStatus `json:"status" binding:"required"`
}

// CreateCharterInquiry handles POST /v1/charter-inquiries
func (h *RestInquiryHandler) CreateCharterInquiry(c *gin.Context) {
	var in services.CharterInquiryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, services.InputError(err), "submit inquiry")
		return
	}
	inquiry, err := h.inquiries.CreateCharterInquiry(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "submit inquiry")
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

// ListCharterInquiries handles GET /v1/admin/charter-inquiries[?status=]
func (h *RestInquiryHandler) ListCharterInquiries(c *gin.Context) {
	status := models.InquiryStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "Unknown status filter")
		return
	}
	list, err := h.inquiries.ListCharterInquiries(c.Request.Context(), status)
	if err != nil {
		respondError(c, err, "list inquiries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *RestInquiryHandler) GetCharterInquiry(c *gin.Context) {
	inquiry, err := h.inquiries.GetCharterInquiry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "load inquiry")
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// SetCharterInquiryStatus handles PUT /v1/admin/charter-inquiries/:id/status
func (h *RestInquiryHandler) SetCharterInquiryStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Status is required")
		return
	}
	if err := h.inquiries.SetCharterInquiryStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err, "update inquiry")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RestInquiryHandler) DeleteCharterInquiry(c *gin.Context) {
	if err := h.inquiries.DeleteCharterInquiry(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete inquiry")
		return
	}
	c.Status(http.StatusNoContent)
}

// CountCharterInquiries handles GET /v1/admin/charter-inquiries/counts
func (h *RestInquiryHandler) CountCharterInquiries(c *gin.Context) {
	counts, err := h.inquiries.CountCharterInquiries(c.Request.Context())
	if err != nil {
		respondError(c, err, "count inquiries")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// StreamCharterInquiryCounts handles GET /v1/admin/charter-inquiries/counts/stream.
// It sends the per-status counts as a "counts" event on connect and again
// after every change to the inquiries collection. The store subscription is
// released when the client disconnects or the server shuts down.
func (h *RestInquiryHandler) StreamCharterInquiryCounts(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := h.inquiries.WatchCharterInquiries(ctx)
	if err != nil {
		respondError(c, err, "watch inquiries")
		return
	}
	counts, err := h.inquiries.CountCharterInquiries(ctx)
	if err != nil {
		respondError(c, err, "count inquiries")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("counts", counts)
	c.Writer.Flush()

	heartbeat := time.NewTicker(countsHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-h.streams.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case _, ok := <-events:
			if !ok {
				return false
			}
			counts, err := h.inquiries.CountCharterInquiries(ctx)
			if err != nil {
				log.Printf("handlers: counts stream stopped: %v", err)
				return false
			}
			c.SSEvent("counts", counts)
			return true
		}
	})
}

// CreateLessonInquiry handles POST /v1/lesson-inquiries
func (h *RestInquiryHandler) CreateLessonInquiry(c *gin.Context) {
	var in services.LessonInquiryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, services.InputError(err), "submit inquiry")
		return
	}
	inquiry, err := h.inquiries.CreateLessonInquiry(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "submit inquiry")
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

func (h *RestInquiryHandler) ListLessonInquiries(c *gin.Context) {
	list, err := h.inquiries.ListLessonInquiries(c.Request.Context())
	if err != nil {
		respondError(c, err, "list lesson inquiries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *RestInquiryHandler) SetLessonInquiryStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Status is required")
		return
	}
	if err := h.inquiries.SetLessonInquiryStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err, "update lesson inquiry")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RestInquiryHandler) DeleteLessonInquiry(c *gin.Context) {
	if err := h.inquiries.DeleteLessonInquiry(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete lesson inquiry")
		return
	}
	c.Status(http.StatusNoContent)
}
