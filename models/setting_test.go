package models_test

import (
	"context"
	"testing"

	"github.com/Aman-CU/gstbilling/models"
)

func TestSettings_SetGetClear(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	value, err := models.GetSetting(ctx, "default_qr")
	if err != nil {
		t.Fatalf("GetSetting unset: %v", err)
	}
	if value != "" {
		t.Fatalf("unset value = %q, want empty", value)
	}

	if err := models.SetSetting(ctx, "default_qr", "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := models.SetSetting(ctx, "default_qr", "data:image/png;base64,BBBB"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}

	value, err = models.GetSetting(ctx, "default_qr")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if value != "data:image/png;base64,BBBB" {
		t.Fatalf("value = %q, want latest write", value)
	}

	if err := models.SetSetting(ctx, "default_qr", ""); err != nil {
		t.Fatalf("SetSetting clear: %v", err)
	}
	value, err = models.GetSetting(ctx, "default_qr")
	if err != nil {
		t.Fatalf("GetSetting after clear: %v", err)
	}
	if value != "" {
		t.Fatalf("cleared value = %q, want empty", value)
	}
}
