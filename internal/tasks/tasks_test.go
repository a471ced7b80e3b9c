package tasks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smartliving/site/internal/config"
	"smartliving/site/internal/models"
	"smartliving/site/internal/services"
	"smartliving/site/internal/storage"
	"smartliving/site/internal/store"
	"smartliving/site/internal/tasks"
)

// --- Mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	return m.Called(ctx, tmpl).Error(0)
}

func (m *MockEmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	return m.Called(ctx, templateID, locale).Error(0)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, folder, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, folder, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStorage) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStorage) PublicURL(key string) string {
	return "https://img.example.com/" + key
}

// --- Email ---

func TestRender(t *testing.T) {
	out := tasks.Render("Hi {{.name}}, see {{.link}} {{.missing}}", map[string]interface{}{"name": "Jane", "link": "/x"})
	assert.Equal(t, "Hi Jane, see /x ", out)
}

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	cfg := &config.Config{SmtpFromAddress: "site@example.com"}
	p := tasks.NewTaskProcessor(cfg, sender, nil, nil, templates)

	task, err := tasks.NewEmailTask("jane@example.com", "charter_form_link", map[string]interface{}{
		"name": "Jane",
		"link": "https://smartliving.example.com/charter-form/ABC",
	})
	require.NoError(t, err)

	templates.On("GetTemplate", mock.Anything, "charter_form_link", "").Return(&models.EmailTemplate{
		Subject: "Form for {{.name}}",
		Body:    "Complete it here: {{.link}}",
	}, nil)
	sender.On("Send", mock.Anything, []string{"jane@example.com"}, "Form for Jane", mock.MatchedBy(func(raw []byte) bool {
		s := string(raw)
		return strings.Contains(s, "From: site@example.com\r\n") &&
			strings.Contains(s, "X-Template-Id: charter_form_link\r\n") &&
			strings.Contains(s, "Complete it here: https://smartliving.example.com/charter-form/ABC")
	})).Return(nil).Once()

	assert.NoError(t, p.HandleEmailDeliveryTask(context.Background(), task))
	sender.AssertExpectations(t)
	templates.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_ReplyToCustomer(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{}, sender, nil, nil, templates)

	task, _ := tasks.NewEmailTask("captain@example.com", "new_contact_message", map[string]interface{}{"email": "sam@example.com"})
	templates.On("GetTemplate", mock.Anything, "new_contact_message", "").Return(&models.EmailTemplate{Subject: "Hi", Body: "x"}, nil)
	sender.On("Send", mock.Anything, []string{"captain@example.com"}, "Hi", mock.MatchedBy(func(raw []byte) bool {
		return strings.Contains(string(raw), "Reply-To: sam@example.com\r\n")
	})).Return(nil).Once()

	assert.NoError(t, p.HandleEmailDeliveryTask(context.Background(), task))
	sender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{}, sender, nil, nil, templates)

	task, _ := tasks.NewEmailTask("jane@example.com", "nope", nil)
	templates.On("GetTemplate", mock.Anything, "nope", "").Return(nil, store.ErrNotFound)

	err := p.HandleEmailDeliveryTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEmailDeliveryTask_SendFailureRetries(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{}, sender, nil, nil, templates)

	task, _ := tasks.NewEmailTask("jane@example.com", "charter_form_link", nil)
	templates.On("GetTemplate", mock.Anything, "charter_form_link", "").Return(&models.EmailTemplate{Subject: "s", Body: "b"}, nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := p.HandleEmailDeliveryTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleEmailDeliveryTask_BadPayload(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil)
	err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

// --- Images ---

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageProcessor(t *testing.T, bucket storage.IS3Storage) (*tasks.TaskProcessor, services.IImageService) {
	t.Helper()
	cfg := &config.Config{ImageMaxDimension: 40, ImageMaxSizeMB: 1}
	images := services.NewImageService(store.NewMemoryStore(nil), bucket, nil)
	return tasks.NewTaskProcessor(cfg, nil, bucket, images, nil), images
}

func TestHandleImageProcessTask_Resizes(t *testing.T) {
	bucket := new(MockStorage)
	p, images := imageProcessor(t, bucket)

	bucket.On("GetObject", mock.Anything, "images/k_boat.png").Return(pngBytes(t, 100, 50), "image/png", nil)
	bucket.On("PutObject", mock.Anything, "images/k_boat.png", mock.MatchedBy(func(data []byte) bool {
		img, format, err := image.Decode(bytes.NewReader(data))
		return err == nil && format == "jpeg" && img.Bounds().Dx() == 40 && img.Bounds().Dy() == 20
	}), "image/jpeg").Return(nil).Once()

	task, _ := tasks.NewImageTask("images/k_boat.png", "Boat", "admin@example.com")
	require.NoError(t, p.HandleImageProcessTask(context.Background(), task))

	list, err := images.ListImages(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Boat", list[0].Name)
	assert.Equal(t, "images/k_boat.png", list[0].Key)
	assert.Equal(t, "https://img.example.com/images/k_boat.png", list[0].URL)
	bucket.AssertExpectations(t)
}

func TestHandleImageProcessTask_SmallImageUntouched(t *testing.T) {
	bucket := new(MockStorage)
	p, images := imageProcessor(t, bucket)

	bucket.On("GetObject", mock.Anything, "images/k_icon.png").Return(pngBytes(t, 10, 10), "image/png", nil)
	task, _ := tasks.NewImageTask("images/k_icon.png", "", "admin@example.com")
	require.NoError(t, p.HandleImageProcessTask(context.Background(), task))

	bucket.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	list, _ := images.ListImages(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "k_icon.png", list[0].Name)
}

func TestHandleImageProcessTask_CorruptImageDiscarded(t *testing.T) {
	bucket := new(MockStorage)
	p, images := imageProcessor(t, bucket)

	bucket.On("GetObject", mock.Anything, "images/k_bad.png").Return([]byte("not an image"), "image/png", nil)
	bucket.On("DeleteObject", mock.Anything, "images/k_bad.png").Return(nil).Once()

	task, _ := tasks.NewImageTask("images/k_bad.png", "", "")
	err := p.HandleImageProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	list, _ := images.ListImages(context.Background())
	assert.Empty(t, list)
	bucket.AssertExpectations(t)
}

func TestHandleImageProcessTask_MissingObject(t *testing.T) {
	bucket := new(MockStorage)
	p, _ := imageProcessor(t, bucket)

	bucket.On("GetObject", mock.Anything, "images/gone.png").Return(nil, "", storage.ErrObjectNotFound)
	task, _ := tasks.NewImageTask("images/gone.png", "", "")
	assert.ErrorIs(t, p.HandleImageProcessTask(context.Background(), task), asynq.SkipRetry)
}

func TestInlineQueueRunsHandlers(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	q := tasks.NewInlineQueue()

	assert.Error(t, q.EnqueueEmail(context.Background(), "a@example.com", "x", nil), "no processor wired yet")

	q.SetProcessor(tasks.NewTaskProcessor(&config.Config{}, sender, nil, nil, templates))
	templates.On("GetTemplate", mock.Anything, "x", "").Return(&models.EmailTemplate{Subject: "S", Body: "B"}, nil)
	sender.On("Send", mock.Anything, []string{"a@example.com"}, "S", mock.Anything).Return(nil).Once()

	require.NoError(t, q.EnqueueEmail(context.Background(), "a@example.com", "x", nil))
	sender.AssertExpectations(t)
}

func TestEmailTaskPayloadShape(t *testing.T) {
	task, err := tasks.NewEmailTask("a@example.com", "new_charter_inquiry", map[string]interface{}{"name": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeEmailDelivery, task.Type())

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "new_charter_inquiry", payload["template_id"])
}
