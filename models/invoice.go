package models

import (
	"context"
	"errors"
	"time"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func init() {
	// The remote API speaks bare JSON numbers; keep decimals unquoted so
	// payloads stay wire-compatible.
	decimal.MarshalJSONWithoutQuotes = true
}

// CustomerDetails is captured into the invoice as a snapshot, never stored as
// its own row.
type CustomerDetails struct {
	Name    string  `json:"name" binding:"required"`
	Mobile  string  `json:"mobile" binding:"required"`
	Address *string `json:"address"`
	State   *string `json:"state"`
}

// Invoice is the header row. Shop and customer are embedded JSON snapshots so
// the document stays historically accurate when the live profile changes
// later. InvoiceNumber is assigned by the remote authority and stays nil while
// the record waits in the outbox.
type Invoice struct {
	ID            string  `gorm:"primaryKey;size:64" json:"id"`
	InvoiceNumber *string `gorm:"size:50;index" json:"invoice_number"`

	// Stored as TEXT so invoice search can LIKE-match inside the snapshot.
	ShopSnapshot     string `gorm:"column:shop_details;type:text;not null" json:"-"`
	CustomerSnapshot string `gorm:"column:customer_details;type:text;not null" json:"-"`

	ShopDetails     ShopProfile     `gorm:"-" json:"shop_details"`
	CustomerDetails CustomerDetails `gorm:"-" json:"customer_details"`

	Products []InvoiceItem `gorm:"foreignKey:InvoiceId;references:ID;constraint:OnDelete:CASCADE" json:"products"`

	ReverseCharge bool    `gorm:"not null;default:false" json:"reverse_charge"`
	QrCodeBase64  *string `gorm:"type:text" json:"qr_code_base64"`

	TotalTaxableValue decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_taxable_value"`
	TotalCgst         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_cgst"`
	TotalSgst         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_sgst"`
	TotalTax          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_tax"`
	RoundOff          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"round_off"`
	FinalAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"final_amount"`
	AmountInWords     string          `gorm:"size:255" json:"amount_in_words"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem rows have no life of their own: they are written and deleted as
// a set with their parent invoice. LineNo preserves the order the user entered.
type InvoiceItem struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	InvoiceId string `gorm:"size:64;not null;index" json:"-"`
	LineNo    int    `gorm:"not null" json:"-"`

	Name               string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Quantity           int             `gorm:"not null" json:"quantity" binding:"required,gt=0"`
	UnitRate           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_rate"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	GstRate            decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"gst_rate"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// NewInvoice mirrors the remote POST /api/invoices payload.
type NewInvoice struct {
	ShopDetails     ShopProfile     `json:"shop_details" binding:"required"`
	CustomerDetails CustomerDetails `json:"customer_details" binding:"required"`
	Products        []InvoiceItem   `json:"products" binding:"required,min=1,dive"`
	ReverseCharge   bool            `json:"reverse_charge"`
	QrCodeBase64    *string         `json:"qr_code_base64"`
}

func (input *NewInvoice) validate() error {
	if input.ShopDetails.Name == "" {
		return errors.New("shop details are required")
	}
	if input.CustomerDetails.Name == "" || input.CustomerDetails.Mobile == "" {
		return errors.New("customer name and mobile are required")
	}
	if len(input.Products) == 0 {
		return errors.New("at least one product is required")
	}
	for _, item := range input.Products {
		if item.Name == "" {
			return errors.New("product name is required")
		}
		if item.Quantity <= 0 {
			return errors.New("product quantity must be positive")
		}
		if !item.UnitRate.IsPositive() {
			return errors.New("product unit rate must be positive")
		}
		if item.DiscountPercentage.IsNegative() || item.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("discount percentage must be between 0 and 100")
		}
		if !utils.IsValidGstRate(item.GstRate) {
			return errors.New("gst rate must be one of 5, 12, 18, 28")
		}
	}
	return nil
}

// CreateInvoice computes the tax breakdown, snapshots shop and customer, and
// persists the header with its full item set atomically. The record is the
// UI's source of truth from this point; syncing it remotely is someone else's
// problem.
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	lines := make([]utils.TaxableLine, 0, len(input.Products))
	for _, item := range input.Products {
		lines = append(lines, utils.TaxableLine{
			Quantity:           item.Quantity,
			UnitRate:           item.UnitRate,
			DiscountPercentage: item.DiscountPercentage,
			GstRate:            item.GstRate,
		})
	}
	totals := utils.CalculateInvoiceTotals(lines)

	invoice := &Invoice{
		ID:                uuid.NewString(),
		ShopDetails:       input.ShopDetails,
		CustomerDetails:   input.CustomerDetails,
		Products:          input.Products,
		ReverseCharge:     input.ReverseCharge,
		QrCodeBase64:      input.QrCodeBase64,
		TotalTaxableValue: totals.TotalTaxableValue,
		TotalCgst:         totals.TotalCgst,
		TotalSgst:         totals.TotalSgst,
		TotalTax:          totals.TotalTax,
		RoundOff:          totals.RoundOff,
		FinalAmount:       totals.FinalAmount,
		AmountInWords:     utils.AmountInWords(totals.FinalAmount),
	}

	if err := SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	return GetInvoice(ctx, invoice.ID)
}

// SaveInvoice inserts or fully replaces an invoice: the header is upserted and
// the item set is replaced wholesale in one transaction. Either both land or
// neither does.
func SaveInvoice(ctx context.Context, invoice *Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	if err := EncodeInvoiceSnapshots(invoice); err != nil {
		return err
	}

	items := invoice.Products
	for i := range items {
		items[i].ID = 0
		items[i].InvoiceId = invoice.ID
		items[i].LineNo = i + 1
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Products").
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(invoice).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).
			Delete(&InvoiceItem{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	db := config.GetDB()
	var invoice Invoice
	err := db.WithContext(ctx).
		Preload("Products", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("line_no ASC")
		}).
		Where("id = ?", id).
		Take(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if err := DecodeInvoiceSnapshots(&invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListInvoices returns fully hydrated invoices, newest first.
func ListInvoices(ctx context.Context, limit int) ([]*Invoice, error) {
	if limit <= 0 || limit > 500 {
		limit = config.SearchLimit
	}

	db := config.GetDB()
	invoices := make([]*Invoice, 0)
	err := db.WithContext(ctx).
		Preload("Products", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("line_no ASC")
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	for _, invoice := range invoices {
		if err := DecodeInvoiceSnapshots(invoice); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// SearchInvoices matches the customer name, customer mobile, or invoice number
// against the query, case-insensitively, newest first.
func SearchInvoices(ctx context.Context, query string) ([]*Invoice, error) {
	db := config.GetDB()
	pattern := "%" + query + "%"
	invoices := make([]*Invoice, 0)
	err := db.WithContext(ctx).
		Preload("Products", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("line_no ASC")
		}).
		Where("customer_details LIKE ? OR invoice_number LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(config.SearchLimit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	results := make([]*Invoice, 0, len(invoices))
	for _, invoice := range invoices {
		if err := DecodeInvoiceSnapshots(invoice); err != nil {
			return nil, err
		}
		results = append(results, invoice)
	}
	return results, nil
}

// DeleteInvoice removes the item rows and then the header inside one
// transaction. Deleting an absent invoice is a no-op, which keeps replayed
// deletes harmless.
func DeleteInvoice(ctx context.Context, id string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Invoice{}).Error
	})
}

// SetInvoiceNumber stamps the remote-assigned invoice number onto the local
// record. Updating an invoice that was deleted in the meantime is a no-op.
func SetInvoiceNumber(ctx context.Context, id string, number string) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&Invoice{}).
		Where("id = ?", id).
		Update("invoice_number", number).Error
}
