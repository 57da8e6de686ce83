package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/models"
	"github.com/Aman-CU/gstbilling/remotesync"
	"github.com/Aman-CU/gstbilling/reports"
	"github.com/Aman-CU/gstbilling/utils"
)

const defaultPort = "8080"

const syncStatusHeader = "X-Sync-Status"

func envSeconds(name string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the UI shell can reach /healthz. Until the
	// DB is ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// The UI shell runs on localhost; allow all unless an allowlist is set.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", syncStatusHeader)

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect the local store after the port is open.
	config.ConnectDatabase()
	models.MigrateTable()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// Sync plumbing: probe monitor feeds the engine, gocron runs the
	// periodic safety-net drain.
	client := remotesync.NewClient()
	monitor := remotesync.NewProbeMonitor(client, envSeconds("CONNECTIVITY_PROBE_SECONDS", 30*time.Second))
	engine := remotesync.NewEngine(client, monitor, logger)
	monitor.Start(sigCtx)
	engine.Start(sigCtx)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(envSeconds("SYNC_INTERVAL_SECONDS", 5*time.Minute)),
		gocron.NewTask(engine.Drain, sigCtx),
		gocron.WithName("outbox-drain"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Fatalf("failed to schedule outbox drain: %v", err)
	}
	scheduler.Start()

	api := r.Group("/api")
	api.GET("/", rootHandler)

	api.GET("/shop", listShopsHandler)
	api.POST("/shop", upsertShopHandler(engine))
	api.GET("/shop/:id", getShopHandler)

	api.GET("/invoices", listInvoicesHandler)
	api.POST("/invoices", createInvoiceHandler(engine))
	api.GET("/invoices/export", exportInvoicesHandler)
	api.GET("/invoices/search/:query", searchInvoicesHandler)
	api.GET("/invoices/:id", getInvoiceHandler)
	api.DELETE("/invoices/:id", deleteInvoiceHandler(engine))
	api.GET("/invoices/:id/pdf", invoicePdfHandler)

	api.GET("/settings/:key", getSettingHandler)
	api.PUT("/settings/:key", putSettingHandler)

	api.GET("/sync/status", syncStatusHandler(engine))
	api.POST("/sync/drain", syncDrainHandler(engine))

	logger.WithFields(logrus.Fields{
		"port": port,
	}).Info("gst billing service listening")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the drain scheduler first so no new replay starts mid-shutdown.
	if err := scheduler.Shutdown(); err != nil {
		logger.WithFields(logrus.Fields{"field": "scheduler"}).Error("scheduler shutdown failed: " + err.Error())
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "GST Billing API"})
}

func listShopsHandler(c *gin.Context) {
	shops, err := models.ListShops(c.Request.Context())
	if err != nil {
		internalError(c, "listShopsHandler", nil, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

func upsertShopHandler(engine *remotesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewShop
		if err := c.ShouldBindJSON(&input); err != nil {
			bindingError(c, err)
			return
		}
		ctx := c.Request.Context()
		shop, err := models.UpsertShop(ctx, &input, c.Query("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		setSyncStatus(c, engine.PushShop(ctx, shop))
		c.JSON(http.StatusOK, shop)
	}
}

func getShopHandler(c *gin.Context) {
	shop, err := models.GetShopById(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
			return
		}
		internalError(c, "getShopHandler", c.Param("id"), err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func listInvoicesHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	invoices, err := models.ListInvoices(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "listInvoicesHandler", limit, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func createInvoiceHandler(engine *remotesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			bindingError(c, err)
			return
		}
		ctx := c.Request.Context()
		invoice, err := models.CreateInvoice(ctx, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		setSyncStatus(c, engine.PushInvoice(ctx, invoice))
		c.JSON(http.StatusCreated, invoice)
	}
}

func getInvoiceHandler(c *gin.Context) {
	invoice, err := models.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		internalError(c, "getInvoiceHandler", c.Param("id"), err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func deleteInvoiceHandler(engine *remotesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		if err := models.DeleteInvoice(ctx, id); err != nil {
			internalError(c, "deleteInvoiceHandler", id, err)
			return
		}
		setSyncStatus(c, engine.PushInvoiceDelete(ctx, id))
		c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
	}
}

func searchInvoicesHandler(c *gin.Context) {
	invoices, err := models.SearchInvoices(c.Request.Context(), c.Param("query"))
	if err != nil {
		internalError(c, "searchInvoicesHandler", c.Param("query"), err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func invoicePdfHandler(c *gin.Context) {
	invoice, err := models.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		internalError(c, "invoicePdfHandler", c.Param("id"), err)
		return
	}
	pdfBytes, err := reports.RenderInvoicePDF(invoice)
	if err != nil {
		internalError(c, "invoicePdfHandler", invoice.ID, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="invoice-`+invoice.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func exportInvoicesHandler(c *gin.Context) {
	invoices, err := models.ListInvoices(c.Request.Context(), 500)
	if err != nil {
		internalError(c, "exportInvoicesHandler", nil, err)
		return
	}
	xlsxBytes, err := reports.ExportInvoiceRegister(invoices)
	if err != nil {
		internalError(c, "exportInvoicesHandler", nil, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsxBytes)
}

func getSettingHandler(c *gin.Context) {
	key := c.Param("key")
	value, err := models.GetSetting(c.Request.Context(), key)
	if err != nil {
		internalError(c, "getSettingHandler", key, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

func putSettingHandler(c *gin.Context) {
	key := c.Param("key")
	var body struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bindingError(c, err)
		return
	}
	if err := models.SetSetting(c.Request.Context(), key, body.Value); err != nil {
		internalError(c, "putSettingHandler", key, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}

func syncStatusHandler(engine *remotesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, err := engine.PendingCount(c.Request.Context())
		if err != nil {
			internalError(c, "syncStatusHandler", nil, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": engine.Online(), "pending": pending})
	}
}

func syncDrainHandler(engine *remotesync.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		engine.Drain(ctx)
		pending, err := engine.PendingCount(ctx)
		if err != nil {
			internalError(c, "syncDrainHandler", nil, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": engine.Online(), "pending": pending})
	}
}

func setSyncStatus(c *gin.Context, synced bool) {
	if synced {
		c.Header(syncStatusHeader, "synced")
	} else {
		c.Header(syncStatusHeader, "pending")
	}
}

func bindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, funcName string, data any, err error) {
	config.LogError(config.GetLogger(), "server.go", funcName, "handler", data, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
