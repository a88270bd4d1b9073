package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kodpazar/backend-api/internal/repo"
)

// Well-known setting keys.
const (
	KeyCommissionRate = "commission_rate"
	KeyTaxRate        = "tax_rate"
	KeySiteName       = "site_name"
	KeySupportEmail   = "support_email"
)

// Querier captures the database methods required by the settings service.
type Querier interface {
	GetSetting(ctx context.Context, key string) (repo.Setting, error)
	UpsertSetting(ctx context.Context, arg repo.UpsertSettingParams) (repo.Setting, error)
	ListSettings(ctx context.Context) ([]repo.Setting, error)
}

// Service reads and writes platform settings stored as key/value rows.
type Service struct {
	Q Querier

	// DefaultCommissionRate applies when no commission_rate row exists,
	// matching the rate pinned onto orders at creation.
	DefaultCommissionRate decimal.Decimal
	DefaultTaxRate        decimal.Decimal
}

// Decimal returns the setting parsed as a decimal, or fallback when the row
// is missing or unparsable.
func (s *Service) Decimal(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	row, err := s.Q.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return fallback, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(row.Value))
	if err != nil {
		return fallback, nil
	}
	return d, nil
}

// CommissionRate resolves the platform commission percentage.
func (s *Service) CommissionRate(ctx context.Context) (decimal.Decimal, error) {
	return s.Decimal(ctx, KeyCommissionRate, s.DefaultCommissionRate)
}

// TaxRate resolves the tax percentage applied to order totals.
func (s *Service) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	return s.Decimal(ctx, KeyTaxRate, s.DefaultTaxRate)
}

// Set stores a setting value.
func (s *Service) Set(ctx context.Context, key, value string) (repo.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return repo.Setting{}, errors.New("setting key is required")
	}
	return s.Q.UpsertSetting(ctx, repo.UpsertSettingParams{Key: key, Value: strings.TrimSpace(value)})
}

// All returns every stored setting.
func (s *Service) All(ctx context.Context) ([]repo.Setting, error) {
	return s.Q.ListSettings(ctx)
}
