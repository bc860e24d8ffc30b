package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lekka-app/lekka/internal/inventory"
	jobmetrics "github.com/lekka-app/lekka/internal/jobs"
)

// LowStockSource lists low-stock products grouped by owner.
type LowStockSource interface {
	LowStockByOwner(ctx context.Context) ([]inventory.OwnerLowStock, error)
}

// LowStockScanJob emails each owner the products at or below their threshold.
type LowStockScanJob struct {
	Source  LowStockSource
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// Bcc receives a copy of every alert when set.
	Bcc   string
	clock func() time.Time
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(source LowStockSource, mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics, bcc string) *LowStockScanJob {
	return &LowStockScanJob{
		Source:  source,
		Mailer:  mailer,
		Logger:  logger,
		Metrics: metrics,
		Bcc:     bcc,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan. Individual delivery failures are logged and
// counted; the run fails only when the scan itself fails or no alert could be
// delivered.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Source == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.clock()
	logger := j.logger().With(slog.Bool("dry_run", payload.DryRun))
	logger.Info("starting low stock scan")

	owners, err := j.Source.LowStockByOwner(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	sent, failed := 0, 0
	for _, owner := range owners {
		mail := j.buildMail(owner, start)
		if payload.DryRun || j.Mailer == nil {
			logger.Info("low stock alert (not sent)", slog.String("user_id", owner.UserID), slog.Int("products", len(owner.Products)))
			continue
		}
		if err := j.Mailer.Send(ctx, mail); err != nil {
			failed++
			logger.Warn("low stock alert failed", slog.String("user_id", owner.UserID), slog.Any("error", err))
			continue
		}
		sent++
	}
	j.Metrics.AddAlerts("sent", sent)
	j.Metrics.AddAlerts("failed", failed)

	logger.Info("completed low stock scan",
		slog.Int("owners", len(owners)),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	if failed > 0 && sent == 0 {
		return fmt.Errorf("low stock scan: all %d alerts failed", failed)
	}
	return nil
}

func (j *LowStockScanJob) buildMail(owner inventory.OwnerLowStock, now time.Time) Mail {
	shop := owner.ShopName
	if shop == "" {
		shop = "your shop"
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hello,\n\nThese products at %s are running low as of %s:\n\n", shop, now.Format("02 Jan 2006"))
	for _, p := range owner.Products {
		label := "low"
		if p.Status == inventory.StatusOutOfStock {
			label = "OUT OF STOCK"
		}
		fmt.Fprintf(&body, "  - %s: %d left (minimum %d) [%s]\n", p.Name, p.Stock, p.MinStockLevel, label)
	}
	body.WriteString("\nRecord a restock as an Inventory expense to update these counts.\n\nLekka")

	mail := Mail{
		To:      []string{owner.Email},
		Subject: fmt.Sprintf("Low stock: %d product(s) need restocking", len(owner.Products)),
		Text:    body.String(),
	}
	if j.Bcc != "" {
		mail.Bcc = []string{j.Bcc}
	}
	return mail
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
