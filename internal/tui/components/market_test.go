package components

import (
	"testing"

	"github.com/Veraticus/chainwatch/internal/model"
	tuitest "github.com/Veraticus/chainwatch/internal/tui/testing"
	"github.com/Veraticus/chainwatch/internal/tui/themes"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func decimals(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		values []decimal.Decimal
		width  int
	}{
		{name: "empty", values: nil, width: 10, want: ""},
		{name: "zero width", values: decimals(1, 2), width: 0, want: ""},
		{name: "flat", values: decimals(5, 5, 5), width: 10, want: "▁▁▁"},
		{name: "ramp", values: decimals(0, 7), width: 10, want: "▁█"},
		{name: "keeps latest points", values: decimals(100, 0, 1, 2, 3, 4, 5, 6, 7), width: 8, want: "▁▂▃▄▅▆▇█"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sparkline(tt.values, tt.width))
		})
	}
}

func TestFormatGrouped(t *testing.T) {
	tests := []struct {
		want   string
		value  float64
		places int32
	}{
		{value: 0, places: 2, want: "0.00"},
		{value: 999.5, places: 2, want: "999.50"},
		{value: 1000, places: 2, want: "1,000.00"},
		{value: 64123.456, places: 2, want: "64,123.46"},
		{value: 1234567, places: 0, want: "1,234,567"},
		{value: -12345.6, places: 1, want: "-12,345.6"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatGrouped(decimal.NewFromFloat(tt.value), tt.places))
		})
	}
}

func TestMarketModel_View(t *testing.T) {
	m := NewMarketModel(themes.Default)
	assert.Contains(t, tuitest.StripANSI(m.View()), "Waiting for market data...")

	m.SetData(&model.MarketData{
		Ticker: &model.Ticker{
			LastPrice:          decimal.NewFromFloat(64250.5),
			PriceChangePercent: decimal.NewFromFloat(-1.25),
			Volume:             decimal.NewFromFloat(12345.678),
		},
		PriceChart: []model.Kline{
			{Close: decimal.NewFromInt(1)},
			{Close: decimal.NewFromInt(2)},
		},
	})

	view := tuitest.StripANSI(m.View())
	assert.Contains(t, view, "$64,250.50")
	assert.Contains(t, view, "-1.25%")
	assert.Contains(t, view, "Vol 12,345.68")
	assert.Contains(t, view, "▁█")
}
