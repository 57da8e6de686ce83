package models

import (
	"log"

	"github.com/Aman-CU/gstbilling/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&ShopProfile{},
		&Invoice{}, &InvoiceItem{},
		&OutboxEntry{},
		&AppSetting{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
