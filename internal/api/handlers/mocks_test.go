package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"smartliving/site/internal/charter"
	"smartliving/site/internal/models"
	"smartliving/site/internal/services"
	"smartliving/site/internal/store"
)

// --- Mocks ---

type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) CreateCharterInquiry(ctx context.Context, in services.CharterInquiryInput) (*models.CharterInquiry, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CharterInquiry), args.Error(1)
}

func (m *MockInquiryService) GetCharterInquiry(ctx context.Context, id string) (*models.CharterInquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CharterInquiry), args.Error(1)
}

func (m *MockInquiryService) ListCharterInquiries(ctx context.Context, status models.InquiryStatus) ([]models.CharterInquiry, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CharterInquiry), args.Error(1)
}

func (m *MockInquiryService) SetCharterInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockInquiryService) DeleteCharterInquiry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInquiryService) CountCharterInquiries(ctx context.Context) (map[models.InquiryStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.InquiryStatus]int64), args.Error(1)
}

func (m *MockInquiryService) WatchCharterInquiries(ctx context.Context) (<-chan store.ChangeEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan store.ChangeEvent), args.Error(1)
}

func (m *MockInquiryService) CreateLessonInquiry(ctx context.Context, in services.LessonInquiryInput) (*models.LessonInquiry, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LessonInquiry), args.Error(1)
}

func (m *MockInquiryService) ListLessonInquiries(ctx context.Context) ([]models.LessonInquiry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LessonInquiry), args.Error(1)
}

func (m *MockInquiryService) SetLessonInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockInquiryService) DeleteLessonInquiry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Create(ctx context.Context, in services.ContactMessageInput) (*models.ContactMessage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactMessage), args.Error(1)
}

func (m *MockContactService) List(ctx context.Context) ([]models.ContactMessage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ContactMessage), args.Error(1)
}

func (m *MockContactService) MarkRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContactService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) reg(args mock.Arguments) (*charter.Registration, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*charter.Registration), args.Error(1)
}

func (m *MockRegistrationService) PrepareFromInquiry(ctx context.Context, inquiryID string) (*charter.Registration, error) {
	return m.reg(m.Called(ctx, inquiryID))
}

func (m *MockRegistrationService) Create(ctx context.Context, inquiryID string, form map[string]interface{}) (*charter.Registration, error) {
	return m.reg(m.Called(ctx, inquiryID, form))
}

func (m *MockRegistrationService) Save(ctx context.Context, id string, form map[string]interface{}, expectedVersion *int64) (*charter.Registration, error) {
	return m.reg(m.Called(ctx, id, form, expectedVersion))
}

func (m *MockRegistrationService) Send(ctx context.Context, id string, emailGuest bool) (*charter.Registration, error) {
	return m.reg(m.Called(ctx, id, emailGuest))
}

func (m *MockRegistrationService) Get(ctx context.Context, id string) (*charter.Registration, error) {
	return m.reg(m.Called(ctx, id))
}

func (m *MockRegistrationService) Detail(ctx context.Context, id string) (*services.RegistrationDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RegistrationDetail), args.Error(1)
}

func (m *MockRegistrationService) GuestView(ctx context.Context, id string, autoPrint bool) (*charter.GuestView, error) {
	args := m.Called(ctx, id, autoPrint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*charter.GuestView), args.Error(1)
}

func (m *MockRegistrationService) SubmitGuestForm(ctx context.Context, id string, answers map[string]interface{}) (*charter.Registration, error) {
	return m.reg(m.Called(ctx, id, answers))
}

func (m *MockRegistrationService) List(ctx context.Context) ([]charter.Registration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]charter.Registration), args.Error(1)
}

func (m *MockRegistrationService) SetAdminSummary(ctx context.Context, id, summary string) error {
	return m.Called(ctx, id, summary).Error(0)
}

func (m *MockRegistrationService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) ListImages(ctx context.Context) ([]models.Image, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Image), args.Error(1)
}

func (m *MockImageService) AddImageByURL(ctx context.Context, rawURL, name, uploadedBy string) (*models.Image, error) {
	args := m.Called(ctx, rawURL, name, uploadedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockImageService) CreateUploadURL(ctx context.Context, filename, contentType string) (*services.UploadTicket, error) {
	args := m.Called(ctx, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UploadTicket), args.Error(1)
}

func (m *MockImageService) ConfirmUpload(ctx context.Context, key, name, uploadedBy string) error {
	return m.Called(ctx, key, name, uploadedBy).Error(0)
}

func (m *MockImageService) RecordUploadedImage(ctx context.Context, key, name, uploadedBy string) (*models.Image, error) {
	args := m.Called(ctx, key, name, uploadedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockImageService) DeleteImage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockImageService) ListGallery(ctx context.Context, gallery models.Gallery) ([]models.GalleryEntry, error) {
	args := m.Called(ctx, gallery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GalleryEntry), args.Error(1)
}

func (m *MockImageService) AddGalleryEntry(ctx context.Context, gallery models.Gallery, rawURL, caption string, order int) (*models.GalleryEntry, error) {
	args := m.Called(ctx, gallery, rawURL, caption, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GalleryEntry), args.Error(1)
}

func (m *MockImageService) RemoveGalleryEntry(ctx context.Context, gallery models.Gallery, id string) error {
	return m.Called(ctx, gallery, id).Error(0)
}

type MockBlogService struct {
	mock.Mock
}

func (m *MockBlogService) post(args mock.Arguments) (*models.BlogPost, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlogPost), args.Error(1)
}

func (m *MockBlogService) posts(args mock.Arguments) ([]models.BlogPost, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BlogPost), args.Error(1)
}

func (m *MockBlogService) ListPublished(ctx context.Context) ([]models.BlogPost, error) {
	return m.posts(m.Called(ctx))
}

func (m *MockBlogService) GetPublished(ctx context.Context, slug string) (*models.BlogPost, error) {
	return m.post(m.Called(ctx, slug))
}

func (m *MockBlogService) ListAll(ctx context.Context) ([]models.BlogPost, error) {
	return m.posts(m.Called(ctx))
}

func (m *MockBlogService) Get(ctx context.Context, id string) (*models.BlogPost, error) {
	return m.post(m.Called(ctx, id))
}

func (m *MockBlogService) Create(ctx context.Context, in services.BlogPostInput) (*models.BlogPost, error) {
	return m.post(m.Called(ctx, in))
}

func (m *MockBlogService) Update(ctx context.Context, id string, in services.BlogPostInput) (*models.BlogPost, error) {
	return m.post(m.Called(ctx, id, in))
}

func (m *MockBlogService) SetPublished(ctx context.Context, id string, published bool) (*models.BlogPost, error) {
	return m.post(m.Called(ctx, id, published))
}

func (m *MockBlogService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockAdminUserService struct {
	mock.Mock
}

func (m *MockAdminUserService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockAdminUserService) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminUser), args.Error(1)
}

func (m *MockAdminUserService) EnsureSeedAdmin(ctx context.Context) error {
	return m.Called(ctx).Error(0)
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
