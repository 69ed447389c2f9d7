package worker_test

import (
	"context"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/worker"
)

type recordingGateway struct {
	mu    sync.Mutex
	sends []mail.TemplateKind
}

func (g *recordingGateway) Send(_ context.Context, _ []string, kind mail.TemplateKind, _ map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends = append(g.sends, kind)
	return nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

func TestEmailWorkerDeliversAndDrains(t *testing.T) {
	gateway := &recordingGateway{}
	w := worker.NewEmailWorker(gateway, zap.NewNop(), observability.NewMetrics(), 8)
	w.Start()

	for i := 0; i < 5; i++ {
		w.Enqueue(worker.EmailTask{
			Recipients: []string{"someone@example.com"},
			Kind:       mail.TemplateTicketCreated,
			Data:       map[string]any{"n": i},
		})
	}

	// Stop blocks until the queue is drained
	w.Stop()
	gt.Value(t, gateway.count()).Equal(5)
}

func TestEmailWorkerSkipsEmptyRecipients(t *testing.T) {
	gateway := &recordingGateway{}
	w := worker.NewEmailWorker(gateway, zap.NewNop(), observability.NewMetrics(), 8)
	w.Start()

	w.Enqueue(worker.EmailTask{Kind: mail.TemplateTicketUpdated})
	w.Stop()

	gt.Value(t, gateway.count()).Equal(0)
}

func TestEmailWorkerDropsWhenFull(t *testing.T) {
	gateway := &recordingGateway{}
	metrics := observability.NewMetrics()
	w := worker.NewEmailWorker(gateway, zap.NewNop(), metrics, 2)
	// not started: the queue only fills

	for i := 0; i < 5; i++ {
		w.Enqueue(worker.EmailTask{
			Recipients: []string{"someone@example.com"},
			Kind:       mail.TemplateTicketCreated,
		})
	}

	w.Start()
	w.Stop()
	gt.Value(t, gateway.count()).Equal(2)
}
