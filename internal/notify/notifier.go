package notify

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/domain"
)

// SyncNotifier renders and dispatches inside the caller's goroutine.
type SyncNotifier struct {
	dispatcher *Dispatcher
}

var _ checkout.Notifier = (*SyncNotifier)(nil)

func NewSyncNotifier(d *Dispatcher) *SyncNotifier {
	return &SyncNotifier{dispatcher: d}
}

func (n *SyncNotifier) OrderPlaced(ctx context.Context, order *domain.OrderUser, lines []checkout.DetailLine) {
	notifyOrder(ctx, n.dispatcher, order, lines)
}

func notifyOrder(ctx context.Context, d *Dispatcher, order *domain.OrderUser, lines []checkout.DetailLine) []Result {
	text, err := RenderOrder(order, lines)
	if err != nil {
		zap.L().Error("render order message failed",
			zap.String("namespace", "notify"), zap.Int64("order_id", order.ID), zap.Error(err))
		return nil
	}
	return d.Dispatch(ctx, text)
}

// AsyncNotifier dispatches on a bounded goroutine pool so the HTTP response
// does not wait for outbound calls. The request context is not carried over.
type AsyncNotifier struct {
	dispatcher *Dispatcher
	pool       *ants.Pool
	wg         sync.WaitGroup
}

var _ checkout.Notifier = (*AsyncNotifier)(nil)

func NewAsyncNotifier(d *Dispatcher, workers int) (*AsyncNotifier, error) {
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("notify worker panic: %v", p)
	}))
	if err != nil {
		return nil, err
	}
	return &AsyncNotifier{dispatcher: d, pool: pool}, nil
}

func (n *AsyncNotifier) OrderPlaced(_ context.Context, order *domain.OrderUser, lines []checkout.DetailLine) {
	n.wg.Add(1)
	err := n.pool.Submit(func() {
		defer n.wg.Done()
		notifyOrder(context.Background(), n.dispatcher, order, lines)
	})
	if err != nil {
		n.wg.Done()
		zap.L().Error("queue order notification failed",
			zap.String("namespace", "notify"), zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// Wait blocks until every queued notification has finished.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}

// Release waits for queued work and frees the pool.
func (n *AsyncNotifier) Release() {
	n.wg.Wait()
	n.pool.Release()
}
