package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/observability"
)

// EmailTask is one queued delivery.
type EmailTask struct {
	Recipients []string
	Kind       mail.TemplateKind
	Data       map[string]any
}

// EmailWorker drains a buffered queue of email tasks on a single
// goroutine. Enqueue never blocks the caller: when the queue is full the
// task is dropped and counted. Delivery failures are logged, never
// propagated.
type EmailWorker struct {
	gateway mail.Gateway
	logger  *zap.Logger
	metrics *observability.Metrics
	queue   chan EmailTask
	stop    chan struct{}
	done    sync.WaitGroup
}

// NewEmailWorker builds a worker with the given queue capacity.
func NewEmailWorker(gateway mail.Gateway, logger *zap.Logger, metrics *observability.Metrics, queueSize int) *EmailWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &EmailWorker{
		gateway: gateway,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan EmailTask, queueSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (w *EmailWorker) Start() {
	w.done.Add(1)
	go w.run()
}

// Enqueue hands a task to the worker without blocking.
func (w *EmailWorker) Enqueue(task EmailTask) {
	select {
	case w.queue <- task:
		w.metrics.EmailQueued()
	default:
		w.metrics.EmailDropped()
		w.logger.Warn("email queue full, dropping task",
			zap.String("template", string(task.Kind)),
			zap.Int("recipients", len(task.Recipients)))
	}
}

// Stop drains remaining tasks and waits for the goroutine to exit.
func (w *EmailWorker) Stop() {
	close(w.stop)
	w.done.Wait()
}

func (w *EmailWorker) run() {
	defer w.done.Done()
	for {
		select {
		case task := <-w.queue:
			w.deliver(task)
		case <-w.stop:
			for {
				select {
				case task := <-w.queue:
					w.deliver(task)
				default:
					return
				}
			}
		}
	}
}

func (w *EmailWorker) deliver(task EmailTask) {
	if len(task.Recipients) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.gateway.Send(ctx, task.Recipients, task.Kind, task.Data); err != nil {
		w.logger.Error("email delivery failed",
			zap.String("template", string(task.Kind)),
			zap.Error(err))
	}
}
