package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "textforward/internal/adapters/email"
	mailStore "textforward/internal/adapters/storage/mailrequest"
	mailDomain "textforward/internal/domain/mailrequest"
)

// MailDispatcher turns a mail request into exactly one outbound send attempt.
// It never retries, never marks the record, and has no dead-letter path: a
// transport failure is logged and dropped. Invoking it twice with the same
// request sends duplicate mail.
type MailDispatcher struct {
	Sender  emailAdapter.Sender
	From    string // fixed outbound identity
	ReplyTo string
}

// Dispatch sends one mail for the given request and logs the outcome.
// PRE: req has been validated at enqueue time
// POST: transport invoked exactly once; record untouched either way
func (d *MailDispatcher) Dispatch(ctx context.Context, req mailDomain.Request) error {
	_, err := d.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{req.To},
		From:    d.From,
		Subject: req.Template.Subject,
		Text:    req.Template.Text,
		ReplyTo: d.ReplyTo,
	})
	if err != nil {
		slog.Error("mail_dispatch_failed", "mail_id", req.ID, "correlation_id", req.CorrelationID, "to", req.To, "error", err.Error())
		return fmt.Errorf("dispatch mail %s: %w", req.ID, err)
	}
	slog.Info("mail_dispatched", "mail_id", req.ID, "correlation_id", req.CorrelationID, "to", req.To)
	return nil
}

// MailWatcher delivers creation events from the mail-request collection to
// the dispatcher. It keeps an in-memory high-water mark (the append sequence),
// so each request is observed once per process lifetime; the mark is not
// persisted, and a restart replays the whole collection. That gives the
// at-least-once delivery the trigger contract promises — duplicate sends on
// replay are accepted.
type MailWatcher struct {
	store      mailStore.Store
	dispatcher *MailDispatcher
	batchSize  int
	lastSeq    int64
}

// NewMailWatcher creates a watcher over the mail-request collection.
func NewMailWatcher(store mailStore.Store, dispatcher *MailDispatcher) *MailWatcher {
	return &MailWatcher{
		store:      store,
		dispatcher: dispatcher,
		batchSize:  50,
	}
}

// Poll observes requests appended since the last poll and dispatches each
// once. Dispatch failures do not stop the batch and do not hold the mark
// back: the record is never retried.
// PRE: Context is valid
// POST: high-water mark advanced past every observed request
func (w *MailWatcher) Poll(ctx context.Context) error {
	observed, err := w.store.ListAfter(ctx, w.lastSeq, w.batchSize)
	if err != nil {
		return fmt.Errorf("list mail requests: %w", err)
	}

	for _, o := range observed {
		// Outcome already logged by the dispatcher; nothing further to do.
		_ = w.dispatcher.Dispatch(ctx, o.Request)
		w.lastSeq = o.Seq
	}
	return nil
}

// StartMailWatcher runs the watcher in a background goroutine until stopCh is
// closed. Polls are independently scheduled per tick; ordering between
// dispatches of distinct records is not guaranteed or required.
// PRE: stopCh is provided to signal shutdown
// POST: Watcher runs until stopCh is closed
func StartMailWatcher(w *MailWatcher, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := w.Poll(ctx); err != nil {
					slog.Error("mail_watcher_poll_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("mail_watcher_stopped")
				return
			}
		}
	}()
}
