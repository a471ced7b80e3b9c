package services

import (
	"context"
	"fmt"

	"smartliving/site/internal/charter"
	"smartliving/site/internal/config"
	"smartliving/site/internal/models"
	"smartliving/site/internal/store"
)

const (
	charterInquiriesCollection = "charterInquiries"
	lessonInquiriesCollection  = "lessonInquiries"
)

// CharterInquiryInput is what the public charter form submits.
type CharterInquiryInput struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	CharterDate string `json:"charterDate"`
	PartySize   int    `json:"partySize"`
	Message     string `json:"message"`
}

// LessonInquiryInput is what the public lessons form submits.
type LessonInquiryInput struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone"`
	LessonType     string `json:"lessonType"`
	PreferredDates string `json:"preferredDates"`
	Experience     string `json:"experience"`
	Message        string `json:"message"`
}

// IInquiryService manages charter and lesson inquiries.
type IInquiryService interface {
	CreateCharterInquiry(ctx context.Context, in CharterInquiryInput) (*models.CharterInquiry, error)
	GetCharterInquiry(ctx context.Context, id string) (*models.CharterInquiry, error)
	// ListCharterInquiries returns newest first; an empty status lists all.
	ListCharterInquiries(ctx context.Context, status models.InquiryStatus) ([]models.CharterInquiry, error)
	SetCharterInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) error
	DeleteCharterInquiry(ctx context.Context, id string) error
	CountCharterInquiries(ctx context.Context) (map[models.InquiryStatus]int64, error)
	WatchCharterInquiries(ctx context.Context) (<-chan store.ChangeEvent, error)

	CreateLessonInquiry(ctx context.Context, in LessonInquiryInput) (*models.LessonInquiry, error)
	ListLessonInquiries(ctx context.Context) ([]models.LessonInquiry, error)
	SetLessonInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) error
	DeleteLessonInquiry(ctx context.Context, id string) error
}

type inquiryService struct {
	store store.Store
	cfg   *config.Config
	queue ITaskQueue
}

func NewInquiryService(st store.Store, cfg *config.Config, queue ITaskQueue) IInquiryService {
	return &inquiryService{store: st, cfg: cfg, queue: queue}
}

func (s *inquiryService) CreateCharterInquiry(ctx context.Context, in CharterInquiryInput) (*models.CharterInquiry, error) {
	trimAll(&in.Name, &in.Email, &in.Phone, &in.CharterDate, &in.Message)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if in.PartySize < 0 {
		return nil, invalid("party size cannot be negative")
	}

	inq := &models.CharterInquiry{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		CharterDate: in.CharterDate,
		PartySize:   in.PartySize,
		Message:     in.Message,
		Status:      models.InquiryStatusNew,
	}
	doc, err := store.ToDoc(inq)
	if err != nil {
		return nil, err
	}
	doc["createdAt"] = store.ServerTimestamp{}

	id, err := s.store.Create(ctx, charterInquiriesCollection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to save charter inquiry: %w", err)
	}
	created, err := s.GetCharterInquiry(ctx, id)
	if err != nil {
		return nil, err
	}
	countEvent("charter_inquiry")

	notify(ctx, s.queue, s.cfg.AdminNotifyEmail, "new_charter_inquiry", map[string]interface{}{
		"name":        created.Name,
		"email":       created.Email,
		"phone":       created.Phone,
		"charterDate": created.CharterDate,
		"partySize":   created.PartySize,
		"message":     created.Message,
		"formLink":    s.cfg.SiteURL(charter.NewFormPath(id)),
	})
	return created, nil
}

func (s *inquiryService) GetCharterInquiry(ctx context.Context, id string) (*models.CharterInquiry, error) {
	var inq models.CharterInquiry
	if err := s.store.Get(ctx, charterInquiriesCollection, id, &inq); err != nil {
		return nil, notFound(err, "charter inquiry", id)
	}
	if inq.Status == "" {
		inq.Status = models.InquiryStatusNew
	}
	return &inq, nil
}

func (s *inquiryService) ListCharterInquiries(ctx context.Context, status models.InquiryStatus) ([]models.CharterInquiry, error) {
	q := store.Query{OrderBy: "createdAt", Desc: true}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	// Documents without a status read as new, so "new" is filtered after loading.
	if status != "" && status != models.InquiryStatusNew {
		q.Filter = map[string]interface{}{"status": string(status)}
	}
	var all []models.CharterInquiry
	if err := s.store.Find(ctx, charterInquiriesCollection, q, &all); err != nil {
		return nil, fmt.Errorf("failed to list charter inquiries: %w", err)
	}
	out := all[:0]
	for _, inq := range all {
		if inq.Status == "" {
			inq.Status = models.InquiryStatusNew
		}
		if status == "" || inq.Status == status {
			out = append(out, inq)
		}
	}
	return out, nil
}

func (s *inquiryService) SetCharterInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) error {
	return s.setStatus(ctx, charterInquiriesCollection, "charter inquiry", id, status)
}

func (s *inquiryService) DeleteCharterInquiry(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, charterInquiriesCollection, id); err != nil {
		return notFound(err, "charter inquiry", id)
	}
	return nil
}

// CountCharterInquiries returns a count for every status, zero included.
// Inquiries stored without a status are counted as new.
func (s *inquiryService) CountCharterInquiries(ctx context.Context) (map[models.InquiryStatus]int64, error) {
	total, err := s.store.Count(ctx, charterInquiriesCollection, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count inquiries: %w", err)
	}
	counts := make(map[models.InquiryStatus]int64, len(models.InquiryStatuses()))
	rest := total
	for _, status := range models.InquiryStatuses() {
		if status == models.InquiryStatusNew {
			continue
		}
		n, err := s.store.Count(ctx, charterInquiriesCollection, map[string]interface{}{"status": string(status)})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s inquiries: %w", status, err)
		}
		counts[status] = n
		rest -= n
	}
	counts[models.InquiryStatusNew] = rest
	return counts, nil
}

func (s *inquiryService) WatchCharterInquiries(ctx context.Context) (<-chan store.ChangeEvent, error) {
	return s.store.Subscribe(ctx, charterInquiriesCollection)
}

func (s *inquiryService) CreateLessonInquiry(ctx context.Context, in LessonInquiryInput) (*models.LessonInquiry, error) {
	trimAll(&in.Name, &in.Email, &in.Phone, &in.LessonType, &in.PreferredDates, &in.Experience, &in.Message)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	doc, err := store.ToDoc(&models.LessonInquiry{
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		LessonType:     in.LessonType,
		PreferredDates: in.PreferredDates,
		Experience:     in.Experience,
		Message:        in.Message,
		Status:         models.InquiryStatusNew,
	})
	if err != nil {
		return nil, err
	}
	doc["createdAt"] = store.ServerTimestamp{}

	id, err := s.store.Create(ctx, lessonInquiriesCollection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to save lesson inquiry: %w", err)
	}
	var created models.LessonInquiry
	if err := s.store.Get(ctx, lessonInquiriesCollection, id, &created); err != nil {
		return nil, notFound(err, "lesson inquiry", id)
	}
	countEvent("lesson_inquiry")

	notify(ctx, s.queue, s.cfg.AdminNotifyEmail, "new_lesson_inquiry", map[string]interface{}{
		"name":           created.Name,
		"email":          created.Email,
		"phone":          created.Phone,
		"lessonType":     created.LessonType,
		"preferredDates": created.PreferredDates,
		"experience":     created.Experience,
		"message":        created.Message,
	})
	return &created, nil
}

func (s *inquiryService) ListLessonInquiries(ctx context.Context) ([]models.LessonInquiry, error) {
	var out []models.LessonInquiry
	if err := s.store.Find(ctx, lessonInquiriesCollection, store.Query{OrderBy: "createdAt", Desc: true}, &out); err != nil {
		return nil, fmt.Errorf("failed to list lesson inquiries: %w", err)
	}
	return out, nil
}

func (s *inquiryService) SetLessonInquiryStatus(ctx context.Context, id string, status models.InquiryStatus) error {
	return s.setStatus(ctx, lessonInquiriesCollection, "lesson inquiry", id, status)
}

func (s *inquiryService) DeleteLessonInquiry(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, lessonInquiriesCollection, id); err != nil {
		return notFound(err, "lesson inquiry", id)
	}
	return nil
}

func (s *inquiryService) setStatus(ctx context.Context, collection, what, id string, status models.InquiryStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var existing models.Base
	if err := s.store.Get(ctx, collection, id, &existing); err != nil {
		return notFound(err, what, id)
	}
	if err := s.store.Set(ctx, collection, id, store.Doc{"status": string(status)}, store.Merge()); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", what, id, err)
	}
	return nil
}
