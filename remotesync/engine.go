package remotesync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/models"
	"github.com/Aman-CU/gstbilling/utils"
)

const moduleName = "remotesync"

// Engine owns the push-then-park write path and the outbox drain. The local
// store is already updated by the time the engine sees a write, so every
// remote failure degrades to a queued retry, never to a lost record.
type Engine struct {
	logger  *logrus.Logger
	client  *Client
	monitor Monitor

	// drainMu serializes drains so concurrent triggers (timer, connectivity
	// transition, manual endpoint) cannot replay the same entry twice.
	drainMu sync.Mutex
	started atomic.Bool
}

func NewEngine(client *Client, monitor Monitor, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Engine{logger: logger, client: client, monitor: monitor}
}

// Start registers the connectivity hook and kicks off the startup drain.
// Calling it again is a no-op.
func (e *Engine) Start(ctx context.Context) {
	if e.started.Swap(true) {
		return
	}
	e.monitor.OnOnline(func() {
		e.Drain(ctx)
	})
	go e.Drain(ctx)
}

func (e *Engine) Online() bool {
	return e.monitor.Online()
}

// PendingCount reports how many outbox entries await replay.
func (e *Engine) PendingCount(ctx context.Context) (int64, error) {
	return models.CountOutbox(ctx)
}

// PushShop attempts the remote upsert and parks it in the outbox on any
// failure. The returned flag is true only when the remote accepted the write.
func (e *Engine) PushShop(ctx context.Context, shop *models.ShopProfile) bool {
	if !e.monitor.Online() {
		e.enqueue(ctx, models.OutboxOpShopUpsert, shop)
		return false
	}
	if _, err := e.client.CreateShop(ctx, shop); err != nil {
		e.logger.WithFields(logrus.Fields{
			"module": moduleName, "op": models.OutboxOpShopUpsert, "shop_id": shop.ID,
		}).Warn("remote shop upsert failed, queued: ", err)
		e.enqueue(ctx, models.OutboxOpShopUpsert, shop)
		return false
	}
	return true
}

// PushInvoice attempts the remote create. On success the remote-assigned
// invoice number is adopted into the local record.
func (e *Engine) PushInvoice(ctx context.Context, invoice *models.Invoice) bool {
	if !e.monitor.Online() {
		e.enqueue(ctx, models.OutboxOpInvoiceCreate, invoice)
		return false
	}
	remote, err := e.client.CreateInvoice(ctx, invoice)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"module": moduleName, "op": models.OutboxOpInvoiceCreate, "invoice_id": invoice.ID,
		}).Warn("remote invoice create failed, queued: ", err)
		e.enqueue(ctx, models.OutboxOpInvoiceCreate, invoice)
		return false
	}
	e.adoptInvoiceNumber(ctx, invoice.ID, remote)
	return true
}

// PushInvoiceDelete attempts the remote delete. A missing remote record is a
// success: the intended end state already holds.
func (e *Engine) PushInvoiceDelete(ctx context.Context, id string) bool {
	ref := models.DeleteInvoicePayload{ID: id}
	if !e.monitor.Online() {
		e.enqueue(ctx, models.OutboxOpInvoiceDelete, ref)
		return false
	}
	if err := e.client.DeleteInvoice(ctx, id); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Kind == KindNotFound {
			return true
		}
		e.logger.WithFields(logrus.Fields{
			"module": moduleName, "op": models.OutboxOpInvoiceDelete, "invoice_id": id,
		}).Warn("remote invoice delete failed, queued: ", err)
		e.enqueue(ctx, models.OutboxOpInvoiceDelete, ref)
		return false
	}
	return true
}

// Drain replays the outbox oldest first. Entries that succeed, or whose
// failure proves the remote already holds the intended state, are removed;
// everything else stays put for the next drain.
func (e *Engine) Drain(ctx context.Context) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	if config.GetDB() == nil {
		return
	}
	entries, err := models.ListOutbox(ctx)
	if err != nil {
		config.LogError(e.logger, moduleName, "Drain", "list outbox", nil, err)
		return
	}
	if len(entries) == 0 {
		return
	}

	e.logger.WithFields(logrus.Fields{
		"module": moduleName, "pending": len(entries),
	}).Info("draining outbox")

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if err := e.replay(ctx, entry); err != nil {
			e.logger.WithFields(logrus.Fields{
				"module": moduleName, "entry_id": entry.ID, "op": entry.OpType,
			}).Warn("outbox entry kept for retry: ", err)
			continue
		}
		if err := models.RemoveOutbox(ctx, entry.ID); err != nil {
			config.LogError(e.logger, moduleName, "Drain", "remove outbox entry", entry.ID, err)
			return
		}
	}
}

// replay returns nil when the entry is settled and may be removed.
func (e *Engine) replay(ctx context.Context, entry *models.OutboxEntry) error {
	switch entry.OpType {
	case models.OutboxOpShopUpsert:
		var shop models.ShopProfile
		if err := utils.UnmarshalFromJSON(entry.Payload, &shop); err != nil {
			e.dropMalformed(entry, err)
			return nil
		}
		_, err := e.client.CreateShop(ctx, &shop)
		return err

	case models.OutboxOpInvoiceCreate:
		var invoice models.Invoice
		if err := utils.UnmarshalFromJSON(entry.Payload, &invoice); err != nil {
			e.dropMalformed(entry, err)
			return nil
		}
		remote, err := e.client.CreateInvoice(ctx, &invoice)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Kind == KindConflict {
				// The remote already holds this invoice.
				return nil
			}
			return err
		}
		e.adoptInvoiceNumber(ctx, invoice.ID, remote)
		return nil

	case models.OutboxOpInvoiceDelete:
		var ref models.DeleteInvoicePayload
		if err := utils.UnmarshalFromJSON(entry.Payload, &ref); err != nil {
			e.dropMalformed(entry, err)
			return nil
		}
		if err := e.client.DeleteInvoice(ctx, ref.ID); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Kind == KindNotFound {
				return nil
			}
			return err
		}
		return nil

	default:
		e.logger.WithFields(logrus.Fields{
			"module": moduleName, "entry_id": entry.ID, "op": entry.OpType,
		}).Warn("dropping outbox entry with unknown operation type")
		return nil
	}
}

func (e *Engine) dropMalformed(entry *models.OutboxEntry, err error) {
	e.logger.WithFields(logrus.Fields{
		"module": moduleName, "entry_id": entry.ID, "op": entry.OpType,
	}).Warn("dropping outbox entry with malformed payload: ", err)
}

func (e *Engine) enqueue(ctx context.Context, opType models.OutboxOpType, payload any) {
	if err := models.AppendOutbox(ctx, nil, opType, payload); err != nil {
		config.LogError(e.logger, moduleName, "enqueue", "append outbox", opType, err)
	}
}

func (e *Engine) adoptInvoiceNumber(ctx context.Context, localID string, remote *models.Invoice) {
	if remote == nil || remote.InvoiceNumber == nil {
		return
	}
	if err := models.SetInvoiceNumber(ctx, localID, *remote.InvoiceNumber); err != nil {
		config.LogError(e.logger, moduleName, "adoptInvoiceNumber", "update invoice number", localID, err)
	}
}
