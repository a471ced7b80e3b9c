package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartliving/site/internal/api/middleware"
	"smartliving/site/internal/models"
	"smartliving/site/internal/services"
)

// RestContentHandler serves the image library, galleries and blog.
type RestContentHandler struct {
	images services.IImageService
	blog   services.IBlogService
}

func NewRestContentHandler(images services.IImageService, blog services.IBlogService) *RestContentHandler {
	return &RestContentHandler{images: images, blog: blog}
}

type imageRequest struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name"`
}

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type confirmUploadRequest struct {
	Key  string `json:"key" binding:"required"`
	Name string `json:"name"`
}

type galleryEntryRequest struct {
	URL     string `json:"url" binding:"required"`
	Caption string `json:"caption"`
	Order   int    `json:"order"`
}

type publishRequest struct {
	Published bool `json:"published"`
}

// --- Images ---

func (h *RestContentHandler) ListImages(c *gin.Context) {
	list, err := h.images.ListImages(c.Request.Context())
	if err != nil {
		respondError(c, err, "list images")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// AddImage handles POST /v1/admin/images for images hosted elsewhere.
func (h *RestContentHandler) AddImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	img, err := h.images.AddImageByURL(c.Request.Context(), req.URL, req.Name, c.GetString(middleware.ContextKeyEmail))
	if err != nil {
		respondError(c, err, "add image")
		return
	}
	c.JSON(http.StatusCreated, img)
}

// CreateUploadURL handles POST /v1/admin/images/upload-url
func (h *RestContentHandler) CreateUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "filename and contentType are required")
		return
	}
	ticket, err := h.images.CreateUploadURL(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err, "create upload URL")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ConfirmUpload handles POST /v1/admin/images/confirm. The image shows up in
// the library once the worker has processed it.
func (h *RestContentHandler) ConfirmUpload(c *gin.Context) {
	var req confirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "key is required")
		return
	}
	if err := h.images.ConfirmUpload(c.Request.Context(), req.Key, req.Name, c.GetString(middleware.ContextKeyEmail)); err != nil {
		respondError(c, err, "confirm upload")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"key": req.Key})
}

func (h *RestContentHandler) DeleteImage(c *gin.Context) {
	if err := h.images.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete image")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Galleries ---

func galleryParam(c *gin.Context) (models.Gallery, bool) {
	g := models.Gallery(c.Param("gallery"))
	if g.Collection() == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown gallery"})
		return "", false
	}
	return g, true
}

// ListGallery handles GET /v1/galleries/:gallery
func (h *RestContentHandler) ListGallery(c *gin.Context) {
	g, ok := galleryParam(c)
	if !ok {
		return
	}
	entries, err := h.images.ListGallery(c.Request.Context(), g)
	if err != nil {
		respondError(c, err, "load gallery")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *RestContentHandler) AddGalleryEntry(c *gin.Context) {
	g, ok := galleryParam(c)
	if !ok {
		return
	}
	var req galleryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	entry, err := h.images.AddGalleryEntry(c.Request.Context(), g, req.URL, req.Caption, req.Order)
	if err != nil {
		respondError(c, err, "add gallery image")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *RestContentHandler) RemoveGalleryEntry(c *gin.Context) {
	g, ok := galleryParam(c)
	if !ok {
		return
	}
	if err := h.images.RemoveGalleryEntry(c.Request.Context(), g, c.Param("id")); err != nil {
		respondError(c, err, "remove gallery image")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Blog ---

// ListPublishedPosts handles GET /v1/blog
func (h *RestContentHandler) ListPublishedPosts(c *gin.Context) {
	posts, err := h.blog.ListPublished(c.Request.Context())
	if err != nil {
		respondError(c, err, "list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

// GetPublishedPost handles GET /v1/blog/:slug
func (h *RestContentHandler) GetPublishedPost(c *gin.Context) {
	post, err := h.blog.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err, "load post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *RestContentHandler) ListAllPosts(c *gin.Context) {
	posts, err := h.blog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

func (h *RestContentHandler) GetPost(c *gin.Context) {
	post, err := h.blog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "load post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *RestContentHandler) CreatePost(c *gin.Context) {
	var in services.BlogPostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "title is required")
		return
	}
	post, err := h.blog.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *RestContentHandler) UpdatePost(c *gin.Context) {
	var in services.BlogPostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "title is required")
		return
	}
	post, err := h.blog.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err, "update post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// SetPublished handles PUT /v1/admin/blog/:id/published
func (h *RestContentHandler) SetPublished(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	post, err := h.blog.SetPublished(c.Request.Context(), c.Param("id"), req.Published)
	if err != nil {
		respondError(c, err, "publish post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *RestContentHandler) DeletePost(c *gin.Context) {
	if err := h.blog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete post")
		return
	}
	c.Status(http.StatusNoContent)
}
