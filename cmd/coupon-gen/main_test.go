package main

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

func TestGenerateCodes_SkipsExisting(t *testing.T) {
	filter := newCodeFilter([]string{"easter-aaa-aaaa"}, 2)

	seq := []string{"EASTER-AAA-AAAA", "EASTER-BBB-BBBB", "EASTER-BBB-BBBB", "EASTER-CCC-CCCC"}
	gen := func(prefix string) (string, error) {
		assert.Equal(t, "EASTER", prefix)
		code := seq[0]
		seq = seq[1:]
		return code, nil
	}

	codes, err := generateCodes(filter, "EASTER", 2, gen)
	require.NoError(t, err)
	assert.Equal(t, []string{"EASTER-BBB-BBBB", "EASTER-CCC-CCCC"}, codes)
}

func TestGenerateCodes_GivesUp(t *testing.T) {
	filter := newCodeFilter([]string{"DUP-AAA-AAAA"}, 1)
	gen := func(string) (string, error) { return "DUP-AAA-AAAA", nil }

	_, err := generateCodes(filter, "DUP", 1, gen)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up")
}

func TestGenerateCodes_RealGenerator(t *testing.T) {
	filter := newCodeFilter(nil, 50)
	codes, err := generateCodes(filter, "vip", 50, coupon.GenerateCode)
	require.NoError(t, err)
	require.Len(t, codes, 50)

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		assert.True(t, strings.HasPrefix(code, "VIP-"), code)
		assert.True(t, coupon.IsValidCode(code), code)
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 50)
}

func TestOptionsRule(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	c, err := options{
		count:          10,
		discountType:   "fixed",
		value:          "2500",
		minOrder:       "15000",
		maxUsesPerUser: 1,
		validFor:       48 * time.Hour,
	}.rule(now)
	require.NoError(t, err)
	assert.Equal(t, coupon.DiscountFixed, c.Type)
	assert.True(t, decimal.NewFromInt(2500).Equal(c.Value))
	require.True(t, c.MinOrderValue.Valid)
	assert.True(t, decimal.NewFromInt(15000).Equal(c.MinOrderValue.Decimal))
	require.NotNil(t, c.MaxUsesPerUser)
	assert.Equal(t, 1, *c.MaxUsesPerUser)
	require.NotNil(t, c.ExpiryDate)
	assert.Equal(t, now.Add(48*time.Hour), *c.ExpiryDate)
	assert.True(t, c.IsActive)

	tests := []struct {
		name string
		opts options
	}{
		{name: "zero count", opts: options{count: 0, discountType: "fixed", value: "1"}},
		{name: "unknown type", opts: options{count: 1, discountType: "bogo", value: "1"}},
		{name: "bad value", opts: options{count: 1, discountType: "fixed", value: "ten"}},
		{name: "percentage over 100", opts: options{count: 1, discountType: "percentage", value: "120"}},
		{name: "bad min order", opts: options{count: 1, discountType: "fixed", value: "1", minOrder: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.rule(now)
			require.Error(t, err)
		})
	}
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt.gz")
	codes := []string{"ABC-DEFG", "HJK-MNPQ"}
	require.NoError(t, writeExport(context.Background(), path, codes))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	require.NoError(t, err)
	defer func() { _ = gz.Close() }()

	var got []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, codes, got)
}
