package models

import (
	"context"
	"time"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/utils"
	"gorm.io/gorm"
)

type OutboxOpType string

const (
	OutboxOpShopUpsert    OutboxOpType = "shop.upsert"
	OutboxOpInvoiceCreate OutboxOpType = "invoice.create"
	OutboxOpInvoiceDelete OutboxOpType = "invoice.delete"
)

// OutboxEntry is one not-yet-acknowledged mutation. The autoincrement id is
// the replay order: entries must drain FIFO so a delete never overtakes the
// create it depends on.
type OutboxEntry struct {
	ID        uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	OpType    OutboxOpType `gorm:"size:30;not null;index" json:"op_type"`
	Payload   []byte       `gorm:"type:blob;not null" json:"payload"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (OutboxEntry) TableName() string {
	return "outbox_entries"
}

// DeleteInvoicePayload is the minimal reference an invoice.delete entry needs.
type DeleteInvoicePayload struct {
	ID string `json:"id"`
}

// AppendOutbox records a pending mutation. Passing the caller's transaction
// keeps the entry atomic with the data write it describes; a nil tx uses the
// shared connection.
func AppendOutbox(ctx context.Context, tx *gorm.DB, opType OutboxOpType, payload any) error {
	body, err := utils.MarshalToJSON(payload)
	if err != nil {
		return err
	}
	entry := OutboxEntry{
		OpType:  opType,
		Payload: body,
	}
	if tx == nil {
		tx = config.GetDB()
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

// ListOutbox returns every pending entry in replay (FIFO) order.
func ListOutbox(ctx context.Context) ([]*OutboxEntry, error) {
	db := config.GetDB()
	entries := make([]*OutboxEntry, 0)
	if err := db.WithContext(ctx).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func CountOutbox(ctx context.Context) (int64, error) {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).
		Model(&OutboxEntry{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RemoveOutbox acknowledges an entry after the remote confirmed it (or
// reported it already applied).
func RemoveOutbox(ctx context.Context, id uint) error {
	db := config.GetDB()
	return db.WithContext(ctx).Where("id = ?", id).Delete(&OutboxEntry{}).Error
}
