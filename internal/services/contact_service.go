package services

import (
	"context"
	"fmt"

	"smartliving/site/internal/config"
	"smartliving/site/internal/models"
	"smartliving/site/internal/store"
)

const contactMessagesCollection = "contactMessages"

type ContactMessageInput struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

type IContactService interface {
	Create(ctx context.Context, in ContactMessageInput) (*models.ContactMessage, error)
	List(ctx context.Context) ([]models.ContactMessage, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type contactService struct {
	store store.Store
	cfg   *config.Config
	queue ITaskQueue
}

func NewContactService(st store.Store, cfg *config.Config, queue ITaskQueue) IContactService {
	return &contactService{store: st, cfg: cfg, queue: queue}
}

func (s *contactService) Create(ctx context.Context, in ContactMessageInput) (*models.ContactMessage, error) {
	trimAll(&in.Name, &in.Email, &in.Phone, &in.Subject, &in.Message)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	doc, err := store.ToDoc(&models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Subject: in.Subject,
		Message: in.Message,
		Status:  models.ContactStatusNew,
	})
	if err != nil {
		return nil, err
	}
	doc["createdAt"] = store.ServerTimestamp{}

	id, err := s.store.Create(ctx, contactMessagesCollection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}
	var msg models.ContactMessage
	if err := s.store.Get(ctx, contactMessagesCollection, id, &msg); err != nil {
		return nil, notFound(err, "contact message", id)
	}
	countEvent("contact_message")

	notify(ctx, s.queue, s.cfg.AdminNotifyEmail, "new_contact_message", map[string]interface{}{
		"name":    msg.Name,
		"email":   msg.Email,
		"phone":   msg.Phone,
		"subject": msg.Subject,
		"message": msg.Message,
	})
	return &msg, nil
}

func (s *contactService) List(ctx context.Context) ([]models.ContactMessage, error) {
	var out []models.ContactMessage
	if err := s.store.Find(ctx, contactMessagesCollection, store.Query{OrderBy: "createdAt", Desc: true}, &out); err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	for i := range out {
		if out[i].Status == "" {
			out[i].Status = models.ContactStatusNew
		}
	}
	return out, nil
}

func (s *contactService) MarkRead(ctx context.Context, id string) error {
	var existing models.Base
	if err := s.store.Get(ctx, contactMessagesCollection, id, &existing); err != nil {
		return notFound(err, "contact message", id)
	}
	if err := s.store.Set(ctx, contactMessagesCollection, id, store.Doc{"status": string(models.ContactStatusRead)}, store.Merge()); err != nil {
		return fmt.Errorf("failed to mark contact message %s read: %w", id, err)
	}
	return nil
}

func (s *contactService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, contactMessagesCollection, id); err != nil {
		return notFound(err, "contact message", id)
	}
	return nil
}
