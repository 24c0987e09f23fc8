// Package purchase simulates asset purchases by appending records to a
// ledger file, pricing each asset via a market-data lookup.
package purchase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/autoinvest/internal/logger"
	"github.com/rewired-gh/autoinvest/internal/models"
)

// Config holds purchaser behavior configuration.
type Config struct {
	LedgerFile      string
	ValidDays       int
	AssetAmounts    []float64
	UniversalAmount float64
	SimulationMode  bool
}

// PriceLookup returns the most recent closing price for a ticker, or the
// sentinel price with an error.
type PriceLookup interface {
	LatestClose(ctx context.Context, ticker string) (float64, error)
}

// Purchaser appends simulated purchase records to an append-only ledger.
// The ledger is opened once at construction and never truncated; rerunning
// with the same assets appends duplicate rows.
type Purchaser struct {
	config Config
	prices PriceLookup
	ledger *os.File
	now    func() time.Time
}

// New creates a purchaser. It fails when neither per-asset amounts nor a
// universal amount is configured, or when simulation mode is disabled (real
// trade execution is not supported).
func New(cfg Config, prices PriceLookup) (*Purchaser, error) {
	if len(cfg.AssetAmounts) == 0 && cfg.UniversalAmount <= 0 {
		return nil, fmt.Errorf("either asset amounts or a universal purchase amount must be specified")
	}
	if !cfg.SimulationMode {
		return nil, fmt.Errorf("only simulation mode is supported")
	}
	if cfg.ValidDays < 1 {
		return nil, fmt.Errorf("valid purchase days must be at least 1")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LedgerFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	ledger, err := os.OpenFile(cfg.LedgerFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}

	return &Purchaser{
		config: cfg,
		prices: prices,
		ledger: ledger,
		now:    time.Now,
	}, nil
}

// SetNow overrides the clock, for deterministic runs.
func (p *Purchaser) SetNow(now func() time.Time) {
	p.now = now
}

// Close closes the ledger file.
func (p *Purchaser) Close() error {
	return p.ledger.Close()
}

// amounts resolves the per-asset quantity list for the given assets.
func (p *Purchaser) amounts(assets []string) ([]float64, error) {
	if len(p.config.AssetAmounts) > 0 {
		if len(p.config.AssetAmounts) != len(assets) {
			return nil, fmt.Errorf("asset amounts length %d does not match %d assets",
				len(p.config.AssetAmounts), len(assets))
		}
		return p.config.AssetAmounts, nil
	}
	out := make([]float64, len(assets))
	for i := range out {
		out[i] = p.config.UniversalAmount
	}
	return out, nil
}

// PurchaseAssets simulates a purchase of each asset in input order and
// returns the records appended to the ledger. A failed price lookup records
// the sentinel price and continues.
func (p *Purchaser) PurchaseAssets(ctx context.Context, assets []string) ([]models.PurchaseRecord, error) {
	quantities, err := p.amounts(assets)
	if err != nil {
		return nil, err
	}

	expiration := p.now().AddDate(0, 0, p.config.ValidDays)

	records := make([]models.PurchaseRecord, 0, len(assets))
	for i, asset := range assets {
		price, err := p.prices.LatestClose(ctx, asset)
		if err != nil {
			logger.Error("Unable to retrieve price for ticker %s: %v", asset, err)
			price = models.SentinelPrice
		}

		record := models.PurchaseRecord{
			ID:         uuid.New().String(),
			Asset:      asset,
			Price:      price,
			Quantity:   quantities[i],
			Expiration: expiration,
		}
		if err := record.Validate(); err != nil {
			return records, fmt.Errorf("invalid purchase record for %s: %w", asset, err)
		}
		if err := p.append(record); err != nil {
			return records, err
		}
		records = append(records, record)
		logger.Info("Recorded simulated purchase: %s x%s at %s",
			asset, formatFloat(record.Quantity), formatFloat(record.Price))
	}
	return records, nil
}

// append writes one ledger row: asset, price, quantity, expiration.
func (p *Purchaser) append(r models.PurchaseRecord) error {
	line := fmt.Sprintf("%s, %s, %s, %s\n",
		r.Asset,
		formatFloat(r.Price),
		formatFloat(r.Quantity),
		r.Expiration.Format(models.ExpirationLayout),
	)
	if _, err := p.ledger.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	return nil
}

// formatFloat renders a float for the ledger, always keeping a decimal point
// so that quantities like 1000 read as 1000.0.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
