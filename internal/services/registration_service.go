package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"smartliving/site/internal/charter"
	"smartliving/site/internal/config"
	"smartliving/site/internal/store"
)

const registrationsCollection = "charterRegistrations"

// RegistrationDetail is the admin view of one registration.
type RegistrationDetail struct {
	*charter.Registration
	Merged        charter.Fields        `json:"mergedView"`
	Summary       []charter.SummaryLine `json:"summary"`
	AdminLinkPath string                `json:"adminLinkPath"`
	CustomerLink  string                `json:"customerLink,omitempty"`
}

// IRegistrationService persists the charter registration workflow.
type IRegistrationService interface {
	// PrepareFromInquiry returns an unsaved draft seeded from the inquiry.
	PrepareFromInquiry(ctx context.Context, inquiryID string) (*charter.Registration, error)
	Create(ctx context.Context, inquiryID string, form map[string]interface{}) (*charter.Registration, error)
	// Save replaces the captain-defined fields. A non-nil expectedVersion
	// must match the stored version or ErrStaleWrite is returned.
	Save(ctx context.Context, id string, form map[string]interface{}, expectedVersion *int64) (*charter.Registration, error)
	// Send marks the form sent, records the guest link and, when emailGuest
	// is set, emails the link to the guest.
	Send(ctx context.Context, id string, emailGuest bool) (*charter.Registration, error)
	Get(ctx context.Context, id string) (*charter.Registration, error)
	Detail(ctx context.Context, id string) (*RegistrationDetail, error)
	GuestView(ctx context.Context, id string, autoPrint bool) (*charter.GuestView, error)
	SubmitGuestForm(ctx context.Context, id string, answers map[string]interface{}) (*charter.Registration, error)
	List(ctx context.Context) ([]charter.Registration, error)
	SetAdminSummary(ctx context.Context, id, summary string) error
	Delete(ctx context.Context, id string) error
}

type registrationService struct {
	store     store.Store
	cfg       *config.Config
	inquiries IInquiryService
	queue     ITaskQueue
}

func NewRegistrationService(st store.Store, cfg *config.Config, inquiries IInquiryService, queue ITaskQueue) IRegistrationService {
	return &registrationService{store: st, cfg: cfg, inquiries: inquiries, queue: queue}
}

func (s *registrationService) PrepareFromInquiry(ctx context.Context, inquiryID string) (*charter.Registration, error) {
	inq, err := s.inquiries.GetCharterInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	return charter.CreateFromInquiry(inq), nil
}

func (s *registrationService) Create(ctx context.Context, inquiryID string, form map[string]interface{}) (*charter.Registration, error) {
	if inquiryID != "" {
		if _, err := s.inquiries.GetCharterInquiry(ctx, inquiryID); err != nil {
			return nil, err
		}
	}
	reg := &charter.Registration{
		InquiryID: inquiryID,
		GuestData: charter.Fields{},
		Status:    charter.StatusDraft,
		Version:   1,
	}
	if err := charter.ApplyForm(reg, form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doc, err := store.ToDoc(reg)
	if err != nil {
		return nil, err
	}
	doc["createdAt"] = store.ServerTimestamp{}
	doc["updatedAt"] = store.ServerTimestamp{}

	id, err := s.store.Create(ctx, registrationsCollection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create charter registration: %w", err)
	}
	countEvent("registration_created")
	return s.Get(ctx, id)
}

func (s *registrationService) Save(ctx context.Context, id string, form map[string]interface{}, expectedVersion *int64) (*charter.Registration, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != reg.Version {
		return nil, ErrStaleWrite
	}
	if err := charter.ApplyForm(reg, form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var opts []store.SetOption
	if expectedVersion != nil {
		opts = append(opts, store.IfVersion(*expectedVersion))
	}
	if err := s.write(ctx, reg, opts...); err != nil {
		return nil, err
	}
	countEvent("registration_saved")
	return s.Get(ctx, id)
}

// write replaces the whole registration document and bumps its version.
func (s *registrationService) write(ctx context.Context, reg *charter.Registration, opts ...store.SetOption) error {
	reg.Version++
	doc, err := store.ToDoc(reg)
	if err != nil {
		return err
	}
	doc["updatedAt"] = store.ServerTimestamp{}
	err = s.store.Set(ctx, registrationsCollection, reg.ID, doc, opts...)
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		return ErrStaleWrite
	case err != nil:
		return fmt.Errorf("failed to save charter registration %s: %w", reg.ID, err)
	}
	return nil
}

func (s *registrationService) Send(ctx context.Context, id string, emailGuest bool) (*charter.Registration, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := charter.Send(reg); err != nil {
		return nil, err
	}

	// Status first, then the link path, as two writes. A failure between
	// them leaves a sent form without a recorded link; the caller is told.
	err = s.store.Set(ctx, registrationsCollection, id, store.Doc{
		"status":     string(reg.Status),
		"guestEmail": reg.GuestEmail,
		"updatedAt":  store.ServerTimestamp{},
		"version":    reg.Version + 1,
	}, store.Merge())
	if err != nil {
		return nil, fmt.Errorf("failed to mark charter registration %s sent: %w", id, err)
	}
	err = s.store.Set(ctx, registrationsCollection, id, store.Doc{
		"customerLinkPath": reg.CustomerLinkPath,
	}, store.Merge())
	if err != nil {
		return nil, fmt.Errorf("charter registration %s marked sent but link path not recorded: %w", id, err)
	}
	countEvent("registration_sent")

	if emailGuest {
		notify(ctx, s.queue, reg.GuestEmail, "charter_form_link", map[string]interface{}{
			"name": reg.LockedFields.Text("fullName"),
			"link": s.cfg.SiteURL(reg.CustomerLinkPath),
		})
	}
	return s.Get(ctx, id)
}

func (s *registrationService) Get(ctx context.Context, id string) (*charter.Registration, error) {
	var reg charter.Registration
	if err := s.store.Get(ctx, registrationsCollection, id, &reg); err != nil {
		return nil, notFound(err, "charter registration", id)
	}
	reg.Normalize()
	return &reg, nil
}

func (s *registrationService) Detail(ctx context.Context, id string) (*RegistrationDetail, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &RegistrationDetail{
		Registration:  reg,
		Merged:        charter.MergedView(reg),
		Summary:       charter.Summary(reg),
		AdminLinkPath: charter.AdminLinkPath(reg.ID),
	}
	if reg.CustomerLinkPath != "" {
		d.CustomerLink = s.cfg.SiteURL(reg.CustomerLinkPath)
	}
	return d, nil
}

func (s *registrationService) GuestView(ctx context.Context, id string, autoPrint bool) (*charter.GuestView, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := charter.NewGuestView(reg, autoPrint)
	return &view, nil
}

func (s *registrationService) SubmitGuestForm(ctx context.Context, id string, answers map[string]interface{}) (*charter.Registration, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	accepted, err := charter.SubmitGuestForm(reg, answers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	guestData := store.Doc{}
	for k, v := range accepted {
		guestData[k] = v
	}
	err = s.store.Set(ctx, registrationsCollection, id, store.Doc{
		"guestData": guestData,
		"status":    string(reg.Status),
		"updatedAt": store.ServerTimestamp{},
		"version":   reg.Version + 1,
	}, store.Merge())
	if err != nil {
		return nil, fmt.Errorf("failed to store guest answers for %s: %w", id, err)
	}
	countEvent("registration_completed")

	notify(ctx, s.queue, s.cfg.AdminNotifyEmail, "charter_form_completed", map[string]interface{}{
		"name":    charter.MergedView(reg).Text("fullName"),
		"email":   reg.GuestEmail,
		"link":    s.cfg.SiteURL(charter.AdminLinkPath(id)),
		"summary": charter.Describe(reg),
	})
	return s.Get(ctx, id)
}

func (s *registrationService) List(ctx context.Context) ([]charter.Registration, error) {
	var out []charter.Registration
	if err := s.store.Find(ctx, registrationsCollection, store.Query{OrderBy: "createdAt", Desc: true}, &out); err != nil {
		return nil, fmt.Errorf("failed to list charter registrations: %w", err)
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

func (s *registrationService) SetAdminSummary(ctx context.Context, id, summary string) error {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.store.Set(ctx, registrationsCollection, id, store.Doc{
		"adminSummary": summary,
		"updatedAt":    store.ServerTimestamp{},
		"version":      reg.Version + 1,
	}, store.Merge())
	if err != nil {
		return fmt.Errorf("failed to save summary for %s: %w", id, err)
	}
	return nil
}

func (s *registrationService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, registrationsCollection, id); err != nil {
		return notFound(err, "charter registration", id)
	}
	log.Printf("services: charter registration %s deleted", id)
	return nil
}
