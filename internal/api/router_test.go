package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartliving/site/internal/api"
	"smartliving/site/internal/config"
	"smartliving/site/internal/services"
	"smartliving/site/internal/store"
	"smartliving/site/internal/tasks"
)

type sentMail struct {
	To      []string
	Subject string
	Raw     string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (s *recordingSender) Send(_ context.Context, to []string, subject string, rawMessage []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Raw: string(rawMessage)})
	return nil
}

func (s *recordingSender) to(addr string) []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMail
	for _, m := range s.sent {
		for _, rcpt := range m.To {
			if rcpt == addr {
				out = append(out, m)
			}
		}
	}
	return out
}

// rejectingVerifier never sees a human; the soft bucket is large enough
// that the flow below does not need one.
type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, string, string) (bool, error) { return false, nil }
func (rejectingVerifier) GenerateHumanToken(string, string, string, time.Duration) (string, error) {
	return "", nil
}
func (rejectingVerifier) ValidateHumanToken(string, string, string, string) bool { return false }

const (
	captainEmail    = "captain@example.com"
	captainPassword = "sail-away-123"
)

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:               "router-test-secret",
		JwtTTL:                  time.Hour,
		CaptchaTokenTTL:         time.Hour,
		SeedAdminEmail:          captainEmail,
		SeedAdminPassword:       captainPassword,
		SiteBaseURL:             "https://smartliving.example.com",
		CorsOrigins:             []string{"https://smartliving.example.com"},
		SmtpFromAddress:         "site@example.com",
		AdminNotifyEmail:        captainEmail,
		RateLimitSoftBucketSize: 50,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 0,
	}
}

func setupSite(t *testing.T) (*gin.Engine, *recordingSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := testConfig()
	st := store.NewMemoryStore(nil)
	sender := &recordingSender{}
	queue := tasks.NewInlineQueue()

	templates := services.NewEmailTemplateService(st)
	inquiries := services.NewInquiryService(st, cfg, queue)
	images := services.NewImageService(st, nil, queue)
	svc := api.Services{
		Inquiries:      inquiries,
		Contacts:       services.NewContactService(st, cfg, queue),
		Registrations:  services.NewRegistrationService(st, cfg, inquiries, queue),
		Images:         images,
		Blog:           services.NewBlogService(st),
		Admins:         services.NewAdminUserService(st, cfg),
		EmailTemplates: templates,
	}
	queue.SetProcessor(tasks.NewTaskProcessor(cfg, sender, nil, images, templates))
	require.NoError(t, svc.Admins.EnsureSeedAdmin(ctx))

	return api.SetupRouter(ctx, cfg, svc, rejectingVerifier{}), sender
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func login(t *testing.T, r http.Handler) string {
	t.Helper()
	w := call(t, r, http.MethodPost, "/v1/admin/login", "", gin.H{"email": captainEmail, "password": captainPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestCharterRegistrationFlow(t *testing.T) {
	r, mail := setupSite(t)

	// A guest asks about a charter; the captain is notified.
	w := call(t, r, http.MethodPost, "/v1/charter-inquiries", "", gin.H{
		"name":        "Jane Roe",
		"email":       "jane@example.com",
		"charterDate": "2026-12-12",
		"partySize":   4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inquiryID, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, inquiryID)
	notices := mail.to(captainEmail)
	require.Len(t, notices, 1)
	assert.Equal(t, "New charter inquiry from Jane Roe", notices[0].Subject)
	assert.Contains(t, notices[0].Raw, "/charter-form/new?inquiryId="+inquiryID)

	token := login(t, r)

	w = call(t, r, http.MethodGet, "/v1/admin/charter-inquiries?status=new", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list, _ := decode(t, w)["data"].([]interface{})
	require.Len(t, list, 1)

	// The draft is prefilled from the inquiry but not stored.
	w = call(t, r, http.MethodGet, "/v1/admin/charter-form/new?inquiryId="+inquiryID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	draft := decode(t, w)
	locked, _ := draft["lockedFields"].(map[string]interface{})
	assert.Equal(t, "Jane Roe", locked["fullName"])
	assert.Equal(t, "jane@example.com", draft["guestEmail"])

	w = call(t, r, http.MethodPost, "/v1/admin/charter-forms", token, gin.H{
		"inquiryId": inquiryID,
		"form": gin.H{
			"fullName":   "Jane Roe",
			"email":      "jane@example.com",
			"yachtName":  "Aurora",
			"charterFee": 2000,
			"depositDue": 500,
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	formID, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, formID)

	w = call(t, r, http.MethodPost, "/v1/admin/charter-forms/"+formID+"/send", token, gin.H{"emailGuest": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decode(t, w)
	assert.Equal(t, "sent", sent["status"])
	assert.Equal(t, "/charter-form/"+formID, sent["customerLinkPath"])
	links := mail.to("jane@example.com")
	require.Len(t, links, 1)
	assert.Contains(t, links[0].Raw, "https://smartliving.example.com/charter-form/"+formID)

	// The guest sees captain fields as locked and may only fill the rest.
	w = call(t, r, http.MethodGet, "/v1/charter-form/"+formID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	viewLocked, _ := view["lockedFields"].(map[string]interface{})
	assert.Equal(t, "Aurora", viewLocked["yachtName"])
	editable, _ := view["editableFields"].([]interface{})
	assert.Contains(t, editable, "allergies")
	assert.NotContains(t, editable, "yachtName")

	w = call(t, r, http.MethodPost, "/v1/charter-form/"+formID, "", gin.H{
		"allergies": "peanuts",
		"yachtName": "Not Aurora",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/v1/admin/charter-forms/"+formID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, "completed", detail["status"])
	merged, _ := detail["mergedView"].(map[string]interface{})
	assert.Equal(t, "Aurora", merged["yachtName"])
	assert.Equal(t, "peanuts", merged["allergies"])
	assert.Len(t, mail.to(captainEmail), 2, "completion notice")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r, _ := setupSite(t)

	w := call(t, r, http.MethodGet, "/v1/admin/charter-inquiries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/v1/admin/login", "", gin.H{"email": captainEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := login(t, r)
	w = call(t, r, http.MethodGet, "/v1/admin/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, captainEmail, decode(t, w)["email"])
}

func TestPublicContentRoutes(t *testing.T) {
	r, _ := setupSite(t)
	token := login(t, r)

	w := call(t, r, http.MethodPost, "/v1/admin/blog", token, gin.H{"title": "First Sail", "body": "Hello **sea**"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	postID, _ := decode(t, w)["id"].(string)

	w = call(t, r, http.MethodGet, "/v1/blog/first-sail", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "drafts are not public")

	w = call(t, r, http.MethodPut, "/v1/admin/blog/"+postID+"/published", token, gin.H{"published": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/v1/blog/first-sail", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["html"], "<strong>sea</strong>")

	w = call(t, r, http.MethodGet, "/v1/galleries/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, r, http.MethodGet, "/v1/ping", "", nil)
	assert.Equal(t, "pong", w.Body.String())
}

func TestServiceRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := api.SetupServiceRouter(nil, shutdown)

	w := call(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# HELP")

	w = call(t, r, http.MethodPost, "/api", "", gin.H{"method": "getTestEmail", "arguments": []string{"charter_form_link", "jane@example.com"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = call(t, r, http.MethodPost, "/api", "", gin.H{"method": "reboot"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, r, http.MethodPost, "/api", "", gin.H{"method": "shutdown"})
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signalled")
	}
}
