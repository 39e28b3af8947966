package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/sheets"
)

const TopicSheetMirror = "sheet_mirror"

type Store interface {
	Get(ctx context.Context, id int64) (*models.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause string) error
	Pending(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]int64, error)
}

type Sink interface {
	Append(ctx context.Context, rows []sheets.Row) error
}

type Options struct {
	MaxAttempts   int
	SweepInterval time.Duration
	PopTimeout    time.Duration
	SweepBatch    int
}

// Relay mirrors committed submissions into the spreadsheet. Delivery is at least
// once: a failed entry stays undelivered and the sweeper queues it again on its
// next pass until the attempt budget runs out.
type Relay struct {
	store Store
	sink  Sink
	queue *Queue
	log   *slog.Logger
	opts  Options
	now   func() time.Time
}

func NewRelay(store Store, sink Sink, queue *Queue, log *slog.Logger, opts Options) *Relay {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 2 * time.Second
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = 100
	}
	return &Relay{store: store, sink: sink, queue: queue, log: log, opts: opts, now: time.Now}
}

// Run consumes the queue and sweeps on a ticker until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := r.Sweep(ctx); err != nil {
					r.log.Error("outbox sweep failed", "err", err)
				} else if n > 0 {
					r.log.Info("outbox sweep requeued entries", "count", n)
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		id, ok, err := r.queue.Pop(ctx, r.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Error("outbox pop failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		if err := r.Deliver(ctx, id); err != nil {
			r.log.Warn("outbox delivery failed", "outbox_id", id, "err", err)
		}
	}
}

// Deliver pushes one entry to the sink. Entries already delivered or out of
// attempts are skipped.
func (r *Relay) Deliver(ctx context.Context, id int64) error {
	entry, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		r.log.Warn("outbox entry vanished", "outbox_id", id)
		return nil
	}
	if entry.DeliveredAt != nil {
		return nil
	}
	if entry.Attempts >= r.opts.MaxAttempts {
		r.log.Error("outbox entry out of attempts", "outbox_id", id, "attempts", entry.Attempts, "last_error", entry.LastError)
		return nil
	}

	if err := r.send(ctx, entry); err != nil {
		if markErr := r.store.MarkFailed(ctx, id, err.Error()); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}
	if err := r.store.MarkDelivered(ctx, id); err != nil {
		return err
	}
	r.log.Info("outbox entry delivered", "outbox_id", id, "aggregate_id", entry.AggregateID)
	return nil
}

func (r *Relay) send(ctx context.Context, entry *models.OutboxEntry) error {
	switch entry.Topic {
	case TopicSheetMirror:
		var rows []sheets.Row
		if err := json.Unmarshal(entry.Payload, &rows); err != nil {
			return fmt.Errorf("decode sheet rows: %w", err)
		}
		return r.sink.Append(ctx, rows)
	default:
		return fmt.Errorf("unknown outbox topic %q", entry.Topic)
	}
}

// Sweep queues undelivered entries older than one sweep interval. It covers pushes
// lost between commit and enqueue as well as failed deliveries.
func (r *Relay) Sweep(ctx context.Context) (int, error) {
	return r.requeue(ctx, r.now().Add(-r.opts.SweepInterval))
}

// Replay queues every undelivered entry regardless of age.
func (r *Relay) Replay(ctx context.Context) (int, error) {
	return r.requeue(ctx, r.now().Add(time.Second))
}

func (r *Relay) requeue(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := r.store.Pending(ctx, cutoff, r.opts.MaxAttempts, r.opts.SweepBatch)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := r.queue.Push(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// BuildRows converts a submission group into sheet rows.
func BuildRows(subs []*models.Submission, loc *time.Location) []sheets.Row {
	rows := make([]sheets.Row, 0, len(subs))
	for _, s := range subs {
		ts := s.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		rows = append(rows, sheets.Row{
			Timestamp:      ts.In(loc).Format(time.RFC3339),
			Name:           s.Name,
			Email:          s.Email,
			Phone:          s.Phone,
			Age:            s.Age,
			PoemTitle:      s.PoemTitle,
			Tier:           string(s.Tier),
			Amount:         s.Price,
			PoemFileURL:    s.PoemFileURL,
			PhotoURL:       s.PhotoURL,
			SubmissionUUID: s.SubmissionUUID,
			PoemIndex:      s.PoemIndex,
		})
	}
	return rows
}
