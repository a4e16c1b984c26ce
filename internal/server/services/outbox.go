package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/documo/documo/internal/dbx"
	"github.com/documo/documo/internal/logging"
	"github.com/documo/documo/internal/server/mail"
	"github.com/documo/documo/internal/server/repositories/repomanager"
)

const outboxBatchSize = 20

// OutboxDispatcher delivers queued invalidation notices. It runs outside the
// lifecycle transactions on purpose: a mail-provider outage delays delivery
// but can never roll back a committed invalidation.
type OutboxDispatcher struct {
	db          *sql.DB
	repos       repomanager.RepositoryManager
	notifier    mail.Notifier
	logger      logging.Logger
	interval    time.Duration
	maxAttempts int

	now func() time.Time
}

func NewOutboxDispatcher(db *sql.DB, repos repomanager.RepositoryManager, notifier mail.Notifier, logger logging.Logger, interval time.Duration, maxAttempts int) *OutboxDispatcher {
	return &OutboxDispatcher{
		db:          db,
		repos:       repos,
		notifier:    notifier,
		logger:      logger.With("component", "outbox"),
		interval:    interval,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Run polls the outbox until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error(ctx, "outbox dispatch failed", "error", err)
			}
		}
	}
}

// DispatchOnce sends one batch of pending notices and returns how many were
// delivered. Each row's send outcome is recorded individually; one bad
// recipient does not block the batch.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	sent := 0

	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := d.repos.Outbox(tx)

		pending, err := repo.SelectPending(ctx, outboxBatchSize)
		if err != nil {
			return err
		}

		for _, item := range pending {
			err := d.notifier.SendDocumentInvalidated(ctx, mail.InvalidationEmail{
				To:        item.Recipient,
				Reason:    item.Reason,
				UploadURL: item.UploadURL,
			})
			if err == nil {
				if err := repo.MarkSent(ctx, item.ID, d.now()); err != nil {
					return err
				}
				sent++
				continue
			}

			d.logger.Warn(ctx, "notice delivery failed",
				"outbox_id", item.ID, "recipient", item.Recipient, "error", err)

			attempts := item.Attempts + 1
			if attempts >= d.maxAttempts {
				if err := repo.Abandon(ctx, item.ID, err.Error()); err != nil {
					return err
				}
				continue
			}
			if err := repo.MarkFailed(ctx, item.ID, attempts, err.Error()); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return sent, err
	}

	return sent, nil
}
