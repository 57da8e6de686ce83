package remotesync_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/models"
	"github.com/Aman-CU/gstbilling/remotesync"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
		sqlDB.SetMaxOpenConns(1)
	}

	previous := config.GetDB()
	config.SetDB(conn)
	t.Cleanup(func() {
		if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
		config.SetDB(previous)
	})

	models.MigrateTable()
}

// stubMonitor lets tests flip connectivity without a probe loop.
type stubMonitor struct {
	mu     sync.Mutex
	online bool
	subs   []func()
}

func (m *stubMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *stubMonitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *stubMonitor) subCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

func createLocalInvoice(t *testing.T, ctx context.Context) *models.Invoice {
	t.Helper()
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ShopDetails: models.ShopProfile{
			ID:      "shop-1",
			Name:    "Sharma Traders",
			Address: "14 MG Road, Pune",
			State:   "Maharashtra",
		},
		CustomerDetails: models.CustomerDetails{
			Name:   "Ravi Kumar",
			Mobile: "9123456780",
		},
		Products: []models.InvoiceItem{
			{Name: "Cement Bag", Quantity: 2, UnitRate: dec("500"), DiscountPercentage: dec("10"), GstRate: dec("18")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return invoice
}

func pendingCount(t *testing.T, ctx context.Context) int64 {
	t.Helper()
	count, err := models.CountOutbox(ctx)
	if err != nil {
		t.Fatalf("CountOutbox: %v", err)
	}
	return count
}

func TestEngine_PushInvoiceOfflineParksEntry(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(""), &stubMonitor{online: false}, config.GetLogger())

	invoice := createLocalInvoice(t, ctx)
	if engine.PushInvoice(ctx, invoice) {
		t.Fatalf("offline push reported synced")
	}
	if got := pendingCount(t, ctx); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
}

func TestEngine_PushShopFailureParksEntry(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())

	shop := &models.ShopProfile{ID: "shop-1", Name: "Sharma Traders", Address: "Pune", State: "Maharashtra"}
	if engine.PushShop(ctx, shop) {
		t.Fatalf("failed push reported synced")
	}
	if got := pendingCount(t, ctx); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
}

func TestEngine_DrainReplaysFIFOAndClears(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"remote","invoice_number":"INV-1"}`))
	}))
	defer srv.Close()

	invoice := createLocalInvoice(t, ctx)
	shop := &models.ShopProfile{ID: "shop-1", Name: "Sharma Traders", Address: "Pune", State: "Maharashtra"}
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpShopUpsert, shop); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceCreate, invoice); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceDelete, models.DeleteInvoicePayload{ID: "gone"}); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	engine.Drain(ctx)

	if got := pendingCount(t, ctx); got != 0 {
		t.Fatalf("pending after drain = %d, want 0", got)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"POST /api/shop",
		"POST /api/invoices",
		"DELETE /api/invoices/gone",
	}
	if len(paths) != len(want) {
		t.Fatalf("requests = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("request %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestEngine_DrainAdoptsRemoteInvoiceNumber(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"remote","invoice_number":"INV-2026-0007"}`))
	}))
	defer srv.Close()

	invoice := createLocalInvoice(t, ctx)
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceCreate, invoice); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	engine.Drain(ctx)

	loaded, err := models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if loaded.InvoiceNumber == nil || *loaded.InvoiceNumber != "INV-2026-0007" {
		t.Fatalf("invoice number = %v, want INV-2026-0007", loaded.InvoiceNumber)
	}
}

// A duplicate-create rejection proves the remote already holds the invoice;
// the entry must clear instead of retrying forever.
func TestEngine_DrainTreatsConflictAsApplied(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"already exists"}`))
	}))
	defer srv.Close()

	invoice := createLocalInvoice(t, ctx)
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceCreate, invoice); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	engine.Drain(ctx)

	if got := pendingCount(t, ctx); got != 0 {
		t.Fatalf("pending = %d, want 0", got)
	}
}

func TestEngine_DrainTreatsNotFoundDeleteAsApplied(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Invoice not found"}`))
	}))
	defer srv.Close()

	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceDelete, models.DeleteInvoicePayload{ID: "gone"}); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	engine.Drain(ctx)

	if got := pendingCount(t, ctx); got != 0 {
		t.Fatalf("pending = %d, want 0", got)
	}
}

func TestEngine_DrainKeepsEntryOnTransientFailure(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()

	invoice := createLocalInvoice(t, ctx)
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceCreate, invoice); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}
	if err := models.AppendOutbox(ctx, nil, models.OutboxOpInvoiceDelete, models.DeleteInvoicePayload{ID: "gone"}); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	engine.Drain(ctx)

	// Both entries stay: a stuck head must not block later entries from being
	// attempted, but nothing clears until the remote accepts.
	if got := pendingCount(t, ctx); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}
}

func TestEngine_DrainDropsUnknownOpType(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request for unknown op: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	if err := models.AppendOutbox(ctx, nil, models.OutboxOpType("price.update"), models.DeleteInvoicePayload{ID: "x"}); err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	engine.Drain(ctx)

	if got := pendingCount(t, ctx); got != 0 {
		t.Fatalf("pending = %d, want 0", got)
	}
}

// Entries survive a process restart: a fresh engine over the same store picks
// them up on its next drain.
func TestEngine_DrainAfterRestartStillReplays(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"remote"}`))
	}))
	defer srv.Close()

	shop := &models.ShopProfile{ID: "shop-1", Name: "Sharma Traders", Address: "Pune", State: "Maharashtra"}
	first := remotesync.NewEngine(remotesync.NewClientWithBaseURL(""), &stubMonitor{online: false}, config.GetLogger())
	if first.PushShop(ctx, shop) {
		t.Fatalf("offline push reported synced")
	}

	second := remotesync.NewEngine(remotesync.NewClientWithBaseURL(srv.URL), &stubMonitor{online: true}, config.GetLogger())
	second.Drain(ctx)

	if got := pendingCount(t, ctx); got != 0 {
		t.Fatalf("pending = %d, want 0", got)
	}
}

func TestEngine_StartIsIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	monitor := &stubMonitor{online: false}
	engine := remotesync.NewEngine(remotesync.NewClientWithBaseURL(""), monitor, config.GetLogger())

	engine.Start(ctx)
	engine.Start(ctx)

	if got := monitor.subCount(); got != 1 {
		t.Fatalf("online subscriptions = %d, want 1", got)
	}
}
