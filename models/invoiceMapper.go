package models

import (
	"fmt"

	"github.com/Aman-CU/gstbilling/utils"
)

// Snapshot serialization for the invoice header. The nested shop and customer
// shapes used by the UI and the remote API are flattened into JSON columns on
// the header row; these helpers are the only place that translation happens.

func EncodeInvoiceSnapshots(invoice *Invoice) error {
	shopJSON, err := utils.MarshalToJSON(invoice.ShopDetails)
	if err != nil {
		return err
	}
	customerJSON, err := utils.MarshalToJSON(invoice.CustomerDetails)
	if err != nil {
		return err
	}
	invoice.ShopSnapshot = string(shopJSON)
	invoice.CustomerSnapshot = string(customerJSON)
	return nil
}

// DecodeInvoiceSnapshots hydrates the nested shapes from the persisted JSON.
// A snapshot that no longer parses is a hard error: surfacing it beats handing
// the user a blank shop block on a legal document.
func DecodeInvoiceSnapshots(invoice *Invoice) error {
	if err := utils.UnmarshalFromJSON([]byte(invoice.ShopSnapshot), &invoice.ShopDetails); err != nil {
		return fmt.Errorf("%w: invoice %s shop_details: %v", utils.ErrorCorruptSnapshot, invoice.ID, err)
	}
	if err := utils.UnmarshalFromJSON([]byte(invoice.CustomerSnapshot), &invoice.CustomerDetails); err != nil {
		return fmt.Errorf("%w: invoice %s customer_details: %v", utils.ErrorCorruptSnapshot, invoice.ID, err)
	}
	return nil
}
