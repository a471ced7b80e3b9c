package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"smartliving/site/internal/models"
	"smartliving/site/internal/storage"
	"smartliving/site/internal/store"
)

const (
	imagesCollection = "images"
	imageFolder      = "images"
)

// ErrStorageUnavailable is returned for upload operations when no bucket is configured.
var ErrStorageUnavailable = errors.New("image storage is not configured")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// UploadTicket is what the admin client needs to PUT a file into the bucket.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
}

// IImageService manages the image library and the public galleries.
type IImageService interface {
	ListImages(ctx context.Context) ([]models.Image, error)
	AddImageByURL(ctx context.Context, rawURL, name, uploadedBy string) (*models.Image, error)
	CreateUploadURL(ctx context.Context, filename, contentType string) (*UploadTicket, error)
	// ConfirmUpload queues normalisation of an uploaded object; the library
	// entry is recorded by the worker once the object is processed.
	ConfirmUpload(ctx context.Context, key, name, uploadedBy string) error
	RecordUploadedImage(ctx context.Context, key, name, uploadedBy string) (*models.Image, error)
	DeleteImage(ctx context.Context, id string) error

	ListGallery(ctx context.Context, gallery models.Gallery) ([]models.GalleryEntry, error)
	AddGalleryEntry(ctx context.Context, gallery models.Gallery, rawURL, caption string, order int) (*models.GalleryEntry, error)
	RemoveGalleryEntry(ctx context.Context, gallery models.Gallery, id string) error
}

type imageService struct {
	store   store.Store
	storage storage.IS3Storage
	queue   ITaskQueue
}

// NewImageService builds the image service. bucket may be nil, in which case
// only URL-based images are available.
func NewImageService(st store.Store, bucket storage.IS3Storage, queue ITaskQueue) IImageService {
	return &imageService{store: st, storage: bucket, queue: queue}
}

func (s *imageService) ListImages(ctx context.Context) ([]models.Image, error) {
	var out []models.Image
	if err := s.store.Find(ctx, imagesCollection, store.Query{OrderBy: "uploadedAt", Desc: true}, &out); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return out, nil
}

func (s *imageService) AddImageByURL(ctx context.Context, rawURL, name, uploadedBy string) (*models.Image, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !isHTTPURL(rawURL) {
		return nil, invalid("image url must be an absolute http(s) URL")
	}
	if name = strings.TrimSpace(name); name == "" {
		name = rawURL[strings.LastIndex(rawURL, "/")+1:]
	}
	return s.addImage(ctx, &models.Image{URL: rawURL, Name: name, UploadedBy: uploadedBy})
}

func (s *imageService) addImage(ctx context.Context, img *models.Image) (*models.Image, error) {
	doc, err := store.ToDoc(img)
	if err != nil {
		return nil, err
	}
	doc["uploadedAt"] = store.ServerTimestamp{}
	id, err := s.store.Create(ctx, imagesCollection, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	var saved models.Image
	if err := s.store.Get(ctx, imagesCollection, id, &saved); err != nil {
		return nil, notFound(err, "image", id)
	}
	return &saved, nil
}

func (s *imageService) CreateUploadURL(ctx context.Context, filename, contentType string) (*UploadTicket, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !allowedImageTypes[contentType] {
		return nil, invalid("unsupported image type %q", contentType)
	}
	uploadURL, key, err := s.storage.GeneratePresignedPutURL(ctx, imageFolder, filename, contentType)
	if err != nil {
		return nil, err
	}
	return &UploadTicket{UploadURL: uploadURL, Key: key, PublicURL: s.storage.PublicURL(key)}, nil
}

func (s *imageService) ConfirmUpload(ctx context.Context, key, name, uploadedBy string) error {
	if s.storage == nil {
		return ErrStorageUnavailable
	}
	if !strings.HasPrefix(key, imageFolder+"/") {
		return invalid("unknown upload key")
	}
	if s.queue == nil {
		return errors.New("no task queue configured")
	}
	if err := s.queue.EnqueueImageProcess(ctx, key, strings.TrimSpace(name), uploadedBy); err != nil {
		return fmt.Errorf("failed to queue processing of %s: %w", key, err)
	}
	return nil
}

func (s *imageService) RecordUploadedImage(ctx context.Context, key, name, uploadedBy string) (*models.Image, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if name == "" {
		name = key[strings.LastIndex(key, "/")+1:]
	}
	img, err := s.addImage(ctx, &models.Image{
		URL:        s.storage.PublicURL(key),
		Name:       name,
		Key:        key,
		UploadedBy: uploadedBy,
	})
	if err != nil {
		return nil, err
	}
	countEvent("image_uploaded")
	return img, nil
}

// DeleteImage removes the library entry and, for bucket images, the object.
// A failed object delete is logged; the entry is removed regardless.
func (s *imageService) DeleteImage(ctx context.Context, id string) error {
	var img models.Image
	if err := s.store.Get(ctx, imagesCollection, id, &img); err != nil {
		return notFound(err, "image", id)
	}
	if err := s.store.Delete(ctx, imagesCollection, id); err != nil {
		return notFound(err, "image", id)
	}
	if img.Key != "" && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, img.Key); err != nil {
			log.Printf("services: image %s deleted but object %s remains: %v", id, img.Key, err)
		}
	}
	return nil
}

func (s *imageService) ListGallery(ctx context.Context, gallery models.Gallery) ([]models.GalleryEntry, error) {
	coll := gallery.Collection()
	if coll == "" {
		return nil, invalid("unknown gallery %q", gallery)
	}
	q := store.Query{OrderBy: "order"}
	if gallery == models.GalleryHeadshots {
		q = store.Query{OrderBy: "addedAt", Desc: true, Limit: 1}
	}
	var out []models.GalleryEntry
	if err := s.store.Find(ctx, coll, q, &out); err != nil {
		return nil, fmt.Errorf("failed to list %s gallery: %w", gallery, err)
	}
	return out, nil
}

func (s *imageService) AddGalleryEntry(ctx context.Context, gallery models.Gallery, rawURL, caption string, order int) (*models.GalleryEntry, error) {
	coll := gallery.Collection()
	if coll == "" {
		return nil, invalid("unknown gallery %q", gallery)
	}
	rawURL = strings.TrimSpace(rawURL)
	if !isHTTPURL(rawURL) {
		return nil, invalid("image url must be an absolute http(s) URL")
	}
	doc, err := store.ToDoc(&models.GalleryEntry{URL: rawURL, Caption: strings.TrimSpace(caption), Order: order})
	if err != nil {
		return nil, err
	}
	doc["addedAt"] = store.ServerTimestamp{}
	id, err := s.store.Create(ctx, coll, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to add to %s gallery: %w", gallery, err)
	}
	var entry models.GalleryEntry
	if err := s.store.Get(ctx, coll, id, &entry); err != nil {
		return nil, notFound(err, "gallery entry", id)
	}
	return &entry, nil
}

func (s *imageService) RemoveGalleryEntry(ctx context.Context, gallery models.Gallery, id string) error {
	coll := gallery.Collection()
	if coll == "" {
		return invalid("unknown gallery %q", gallery)
	}
	if err := s.store.Delete(ctx, coll, id); err != nil {
		return notFound(err, "gallery entry", id)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
