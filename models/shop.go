package models

import (
	"context"
	"errors"
	"time"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShopProfile is the seller identity printed on every invoice. The store
// permits several profiles but the UI treats the most recent one as active.
type ShopProfile struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text;not null" json:"address" binding:"required"`
	GstNumber string    `gorm:"size:15" json:"gst_number"`
	State     string    `gorm:"size:50;not null" json:"state" binding:"required"`
	Phone     *string   `gorm:"size:20" json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ShopProfile) TableName() string {
	return "shops"
}

type NewShop struct {
	Name      string  `json:"name" binding:"required"`
	Address   string  `json:"address" binding:"required"`
	GstNumber string  `json:"gst_number"`
	State     string  `json:"state" binding:"required"`
	Phone     *string `json:"phone"`
}

func (input *NewShop) validate() error {
	if !utils.IsValidGSTNumber(input.GstNumber) {
		return errors.New("gst number must be 15 alphanumeric characters")
	}
	if input.Phone != nil && *input.Phone != "" {
		if err := utils.ValidatePhoneNumber(*input.Phone, utils.CountryCode); err != nil {
			return errors.New("phone number is not valid")
		}
	}
	return nil
}

// UpsertShop inserts or fully replaces the profile keyed by id, assigning an
// id when the caller has none yet.
func UpsertShop(ctx context.Context, input *NewShop, id string) (*ShopProfile, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	shop := &ShopProfile{
		ID:        id,
		Name:      input.Name,
		Address:   input.Address,
		GstNumber: input.GstNumber,
		State:     input.State,
		Phone:     input.Phone,
	}
	if shop.ID == "" {
		shop.ID = uuid.NewString()
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(shop).Error; err != nil {
		return nil, err
	}
	return GetShopById(ctx, shop.ID)
}

func GetShopById(ctx context.Context, id string) (*ShopProfile, error) {
	db := config.GetDB()
	var shop ShopProfile
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &shop, nil
}

// ListShops returns every profile, most recent first. An empty store yields an
// empty slice, not an error.
func ListShops(ctx context.Context) ([]*ShopProfile, error) {
	db := config.GetDB()
	shops := make([]*ShopProfile, 0)
	if err := db.WithContext(ctx).
		Order("created_at DESC").
		Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}
