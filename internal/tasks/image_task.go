package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"

	"smartliving/site/internal/storage"
)

// ImageTaskPayload is the payload of TypeImageProcess.
type ImageTaskPayload struct {
	S3Key      string `json:"s3_key"`
	Name       string `json:"name,omitempty"`
	UploadedBy string `json:"uploaded_by,omitempty"`
}

func NewImageTask(key, name, uploadedBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: key, Name: name, UploadedBy: uploadedBy})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload), nil
}

// HandleImageProcessTask shrinks an uploaded image to the configured
// bounds, writes it back under the same key and records it in the library.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return err
	}
	if p.storageService == nil {
		return fmt.Errorf("image storage is not configured: %w", asynq.SkipRetry)
	}
	log.Printf("tasks: processing image %s", payload.S3Key)

	data, contentType, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("uploaded object %s missing: %w", payload.S3Key, asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(data)) > maxSizeBytes {
		p.discard(ctx, payload.S3Key)
		return fmt.Errorf("image %s exceeds %d bytes: %w", payload.S3Key, maxSizeBytes, asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		p.discard(ctx, payload.S3Key)
		return fmt.Errorf("unsupported or corrupt image %s: %w", payload.S3Key, asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	if maxDim > 0 && (uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim) {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode %s: %w", payload.S3Key, err)
		}
		log.Printf("tasks: resized %s %s from %dx%d to %dx%d", format, payload.S3Key,
			img.Bounds().Dx(), img.Bounds().Dy(), resized.Bounds().Dx(), resized.Bounds().Dy())
		data, contentType = buf.Bytes(), "image/jpeg"
		if err := p.storageService.PutObject(ctx, payload.S3Key, data, contentType); err != nil {
			return err
		}
	}

	if _, err := p.imageService.RecordUploadedImage(ctx, payload.S3Key, payload.Name, payload.UploadedBy); err != nil {
		return fmt.Errorf("failed to record image %s: %w", payload.S3Key, err)
	}
	log.Printf("tasks: image %s (%s) added to library", payload.S3Key, contentType)
	return nil
}

func (p *TaskProcessor) discard(ctx context.Context, key string) {
	if err := p.storageService.DeleteObject(ctx, key); err != nil {
		log.Printf("tasks: could not delete rejected upload %s: %v", key, err)
	}
}
