package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kodpazar/backend-api/internal/repo"
)

type stubQuerier struct {
	rows map[string]string
	err  error
}

func (s stubQuerier) GetSetting(_ context.Context, key string) (repo.Setting, error) {
	if s.err != nil {
		return repo.Setting{}, s.err
	}
	value, ok := s.rows[key]
	if !ok {
		return repo.Setting{}, pgx.ErrNoRows
	}
	return repo.Setting{Key: key, Value: value}, nil
}

func (s stubQuerier) UpsertSetting(_ context.Context, arg repo.UpsertSettingParams) (repo.Setting, error) {
	return repo.Setting{Key: arg.Key, Value: arg.Value}, nil
}

func (s stubQuerier) ListSettings(context.Context) ([]repo.Setting, error) {
	return nil, nil
}

func TestCommissionRateFromRow(t *testing.T) {
	svc := &Service{
		Q:                     stubQuerier{rows: map[string]string{KeyCommissionRate: "12.5"}},
		DefaultCommissionRate: decimal.NewFromInt(20),
	}

	rate, err := svc.CommissionRate(context.Background())
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("12.5")), "got %s", rate)
}

func TestCommissionRateFallback(t *testing.T) {
	svc := &Service{
		Q:                     stubQuerier{rows: map[string]string{}},
		DefaultCommissionRate: decimal.NewFromInt(20),
	}

	rate, err := svc.CommissionRate(context.Background())
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(20)), "got %s", rate)
}

func TestDecimalUnparsableValueFallsBack(t *testing.T) {
	svc := &Service{
		Q: stubQuerier{rows: map[string]string{KeyTaxRate: "not-a-number"}},
	}

	rate, err := svc.Decimal(context.Background(), KeyTaxRate, decimal.NewFromInt(18))
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(18)), "got %s", rate)
}

func TestDecimalPropagatesQueryError(t *testing.T) {
	svc := &Service{Q: stubQuerier{err: errors.New("connection reset")}}

	rate, err := svc.Decimal(context.Background(), KeyTaxRate, decimal.NewFromInt(18))
	require.Error(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(18)))
}

func TestSetRejectsEmptyKey(t *testing.T) {
	svc := &Service{Q: stubQuerier{}}

	_, err := svc.Set(context.Background(), "   ", "x")
	require.Error(t, err)
}
