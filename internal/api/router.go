package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"smartliving/site/internal/api/handlers"
	"smartliving/site/internal/api/middleware"
	"smartliving/site/internal/captcha"
	"smartliving/site/internal/config"
	"smartliving/site/internal/email"
	"smartliving/site/internal/services"
)

// Services are the store-backed services the public API is built on.
type Services struct {
	Inquiries      services.IInquiryService
	Contacts       services.IContactService
	Registrations  services.IRegistrationService
	Images         services.IImageService
	Blog           services.IBlogService
	Admins         services.IAdminUserService
	EmailTemplates services.IEmailTemplateService
}

// SetupRouter configures the public and admin API. ctx bounds the rate
// limiter's background sweep and the admin counts streams.
func SetupRouter(ctx context.Context, cfg *config.Config, svc Services, verifier captcha.ITurnstileVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins))

	rateLimiter := middleware.NewRateLimiter(ctx, cfg)
	// Captcha state feeds the limiter; both guard anonymous writes only.
	guarded := []gin.HandlerFunc{middleware.CaptchaMiddleware(cfg, verifier), rateLimiter.Limit()}
	guard := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guarded...), h)
	}

	inquiryHandler := handlers.NewRestInquiryHandler(svc.Inquiries, ctx)
	contactHandler := handlers.NewRestContactHandler(svc.Contacts)
	registrationHandler := handlers.NewRestRegistrationHandler(svc.Registrations)
	contentHandler := handlers.NewRestContentHandler(svc.Images, svc.Blog)
	adminHandler := handlers.NewRestAdminHandler(svc.Admins, svc.EmailTemplates)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		v1.POST("/charter-inquiries", guard(inquiryHandler.CreateCharterInquiry)...)
		v1.POST("/lesson-inquiries", guard(inquiryHandler.CreateLessonInquiry)...)
		v1.POST("/contact-messages", guard(contactHandler.CreateMessage)...)

		v1.GET("/charter-form/:id", registrationHandler.GuestForm)
		v1.POST("/charter-form/:id", guard(registrationHandler.SubmitGuestForm)...)

		v1.GET("/blog", contentHandler.ListPublishedPosts)
		v1.GET("/blog/:slug", contentHandler.GetPublishedPost)
		v1.GET("/galleries/:gallery", contentHandler.ListGallery)

		v1.POST("/admin/login", guard(adminHandler.Login)...)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
	{
		admin.GET("/me", adminHandler.Me)

		admin.GET("/charter-inquiries", inquiryHandler.ListCharterInquiries)
		admin.GET("/charter-inquiries/counts", inquiryHandler.CountCharterInquiries)
		admin.GET("/charter-inquiries/counts/stream", inquiryHandler.StreamCharterInquiryCounts)
		admin.GET("/charter-inquiries/:id", inquiryHandler.GetCharterInquiry)
		admin.PUT("/charter-inquiries/:id/status", inquiryHandler.SetCharterInquiryStatus)
		admin.DELETE("/charter-inquiries/:id", inquiryHandler.DeleteCharterInquiry)

		admin.GET("/lesson-inquiries", inquiryHandler.ListLessonInquiries)
		admin.PUT("/lesson-inquiries/:id/status", inquiryHandler.SetLessonInquiryStatus)
		admin.DELETE("/lesson-inquiries/:id", inquiryHandler.DeleteLessonInquiry)

		admin.GET("/contact-messages", contactHandler.ListMessages)
		admin.PUT("/contact-messages/:id/read", contactHandler.MarkRead)
		admin.DELETE("/contact-messages/:id", contactHandler.DeleteMessage)

		admin.GET("/charter-form/new", registrationHandler.NewDraft)
		admin.GET("/charter-forms", registrationHandler.ListForms)
		admin.POST("/charter-forms", registrationHandler.CreateForm)
		admin.GET("/charter-forms/:id", registrationHandler.GetForm)
		admin.PUT("/charter-forms/:id", registrationHandler.SaveForm)
		admin.POST("/charter-forms/:id/send", registrationHandler.SendForm)
		admin.PUT("/charter-forms/:id/summary", registrationHandler.SetSummary)
		admin.DELETE("/charter-forms/:id", registrationHandler.DeleteForm)

		admin.GET("/images", contentHandler.ListImages)
		admin.POST("/images", contentHandler.AddImage)
		admin.POST("/images/upload-url", contentHandler.CreateUploadURL)
		admin.POST("/images/confirm", contentHandler.ConfirmUpload)
		admin.DELETE("/images/:id", contentHandler.DeleteImage)

		admin.POST("/galleries/:gallery", contentHandler.AddGalleryEntry)
		admin.DELETE("/galleries/:gallery/:id", contentHandler.RemoveGalleryEntry)

		admin.GET("/blog", contentHandler.ListAllPosts)
		admin.POST("/blog", contentHandler.CreatePost)
		admin.GET("/blog/:id", contentHandler.GetPost)
		admin.PUT("/blog/:id", contentHandler.UpdatePost)
		admin.PUT("/blog/:id/published", contentHandler.SetPublished)
		admin.DELETE("/blog/:id", contentHandler.DeletePost)

		admin.GET("/email-templates/:id", adminHandler.GetEmailTemplate)
		admin.PUT("/email-templates/:id", adminHandler.SaveEmailTemplate)
		admin.DELETE("/email-templates/:id", adminHandler.DeleteEmailTemplate)
	}

	return r
}

// SetupServiceRouter is the operator API bound to the service port. rdb may
// be nil, in which case getTestEmail is unavailable.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("api: shutdown requested via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("api: shutdown already in progress")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail returns, and consumes, the mock message last sent from a
// template to an address. Arguments are [templateID, email]. The key is
// polled briefly since delivery runs on a worker.
func getTestEmail(c *gin.Context, rdb *redis.Client, rawArgs json.RawMessage) {
	if rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis is not configured"})
		return
	}
	var args []string
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
		return
	}
	key := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var stored string
	for attempt := 0; ; attempt++ {
		val, err := rdb.GetDel(ctx, key).Result()
		if err == nil {
			stored = val
			break
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("api: reading %s from Redis: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		if attempt == 9 {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", key)})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(stored), &data); err != nil {
		log.Printf("api: decoding mock email %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
