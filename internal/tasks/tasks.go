package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"smartliving/site/internal/config"
	"smartliving/site/internal/email"
	"smartliving/site/internal/services"
	"smartliving/site/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueImages   = "images"
)

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Queue enqueues tasks on Redis for the bg and img workers.
type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) EnqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	task, err := NewEmailTask(to, templateID, data)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueCritical), asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeEmailDelivery, err)
	}
	log.Printf("tasks: queued %s email to %s (%s)", templateID, to, info.ID)
	return nil
}

func (q *Queue) EnqueueImageProcess(ctx context.Context, key, name, uploadedBy string) error {
	task, err := NewImageTask(key, name, uploadedBy)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueImages), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeImageProcess, err)
	}
	log.Printf("tasks: queued image processing for %s (%s)", key, info.ID)
	return nil
}

// InlineQueue runs task handlers in the calling goroutine. It stands in for
// Queue when the site runs without Redis.
type InlineQueue struct {
	processor *TaskProcessor
}

func NewInlineQueue() *InlineQueue {
	return &InlineQueue{}
}

// SetProcessor completes the wiring; the processor depends on services that
// themselves hold the queue.
func (q *InlineQueue) SetProcessor(p *TaskProcessor) {
	q.processor = p
}

func (q *InlineQueue) EnqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	task, err := NewEmailTask(to, templateID, data)
	if err != nil {
		return err
	}
	if q.processor == nil {
		return fmt.Errorf("inline queue has no processor for %s", task.Type())
	}
	return q.run(ctx, task, q.processor.HandleEmailDeliveryTask)
}

func (q *InlineQueue) EnqueueImageProcess(ctx context.Context, key, name, uploadedBy string) error {
	task, err := NewImageTask(key, name, uploadedBy)
	if err != nil {
		return err
	}
	if q.processor == nil {
		return fmt.Errorf("inline queue has no processor for %s", task.Type())
	}
	return q.run(ctx, task, q.processor.HandleImageProcessTask)
}

func (q *InlineQueue) run(ctx context.Context, task *asynq.Task, h asynq.HandlerFunc) error {
	if err := h(ctx, task); err != nil {
		return fmt.Errorf("inline %s: %w", task.Type(), err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	storageService storage.IS3Storage
	imageService   services.IImageService
	templates      services.IEmailTemplateService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	imageService services.IImageService,
	templates services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		storageService: storageService,
		imageService:   imageService,
		templates:      templates,
	}
}

// SetupServer configures an asynq server and the mux for the requested
// worker kinds. It returns nil when neither kind is requested.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		log.Println("tasks: no worker kind requested, task server not created")
		return nil, nil
	}

	queues := map[string]int{}
	mux := asynq.NewServeMux()
	if isBgWorker {
		queues[QueueCritical] = 6
		queues[QueueDefault] = 3
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		log.Println("tasks: registered email delivery handler")
	}
	if isImageWorker {
		queues[QueueImages] = 5
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("tasks: registered image processing handler")
	}

	srv := asynq.NewServer(redisOpt(rdb), asynq.Config{
		Queues: queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("tasks: %s failed: %v (payload %s)", task.Type(), err, task.Payload())
		}),
	})
	return srv, mux
}

func unmarshalPayload(t *asynq.Task, out interface{}) error {
	if err := json.Unmarshal(t.Payload(), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}
