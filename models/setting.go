package models

import (
	"context"
	"errors"
	"time"

	"github.com/Aman-CU/gstbilling/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppSetting is a singleton-per-key value, e.g. the default payment QR image.
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AppSetting) TableName() string {
	return "app_settings"
}

// GetSetting returns the stored value, or the empty string when the key was
// never set.
func GetSetting(ctx context.Context, key string) (string, error) {
	db := config.GetDB()
	var setting AppSetting
	err := db.WithContext(ctx).Where("key = ?", key).Take(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

// SetSetting upserts the value; an empty value clears the key.
func SetSetting(ctx context.Context, key string, value string) error {
	db := config.GetDB()
	if value == "" {
		return db.WithContext(ctx).Where("key = ?", key).Delete(&AppSetting{}).Error
	}
	setting := AppSetting{Key: key, Value: value}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&setting).Error
}
