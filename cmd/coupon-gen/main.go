package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
	"github.com/xenking/footwear-cart/internal/storage/postgres"
)

const (
	bloomFPR = 0.001
	// maxAttemptsPerCode bounds generation when the code space around a
	// prefix is crowded.
	maxAttemptsPerCode = 20
)

type options struct {
	databaseURL    string
	count          int
	prefix         string
	discountType   string
	value          string
	minOrder       string
	maxUsesPerUser int
	requiresLogin  bool
	description    string
	validFor       time.Duration
	out            string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&opts.count, "count", 100, "number of codes to generate")
	flag.StringVar(&opts.prefix, "prefix", "", "campaign prefix, e.g. EASTER")
	flag.StringVar(&opts.discountType, "type", string(coupon.DiscountPercentage), "percentage, fixed or free_shipping")
	flag.StringVar(&opts.value, "value", "10", "discount value")
	flag.StringVar(&opts.minOrder, "min-order", "", "minimum subtotal, empty for none")
	flag.IntVar(&opts.maxUsesPerUser, "max-uses-per-user", 1, "per-customer cap, 0 for none")
	flag.BoolVar(&opts.requiresLogin, "requires-login", false, "restrict to signed-in customers")
	flag.StringVar(&opts.description, "description", "", "customer-facing description")
	flag.DurationVar(&opts.validFor, "valid-for", 30*24*time.Hour, "validity window from now, 0 for open-ended")
	flag.StringVar(&opts.out, "out", "coupons.txt.gz", "gzip export of generated codes")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("coupon generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon generation completed successfully")
}

func run(ctx context.Context, opts options) error {
	template, err := opts.rule(time.Now())
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewCouponRepository(pool)

	existing, err := repo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing codes")
	}
	slog.Info("loaded existing codes", slog.Int("count", len(existing)))

	filter := newCodeFilter(existing, opts.count)
	codes, err := generateCodes(filter, opts.prefix, opts.count, coupon.GenerateCode)
	if err != nil {
		return errors.Wrap(err, "generate codes")
	}

	coupons := make([]coupon.Coupon, len(codes))
	for i, code := range codes {
		coupons[i] = template
		coupons[i].Code = code
	}

	// Insert and export concurrently; either failure cancels the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := repo.CopyIn(gctx, coupons)
		if err != nil {
			return errors.Wrap(err, "insert coupons")
		}
		slog.Info("inserted coupons", slog.Int64("count", n))
		return nil
	})
	g.Go(func() error {
		if err := writeExport(gctx, opts.out, codes); err != nil {
			return errors.Wrap(err, "export codes")
		}
		slog.Info("exported codes", slog.String("path", opts.out))
		return nil
	})

	return g.Wait()
}

// rule builds the coupon shared by every generated code.
func (o options) rule(now time.Time) (coupon.Coupon, error) {
	if o.count <= 0 {
		return coupon.Coupon{}, errors.New("count must be positive")
	}

	t := coupon.DiscountType(o.discountType)
	if !t.Valid() {
		return coupon.Coupon{}, errors.Errorf("unknown discount type %q", o.discountType)
	}

	value, err := decimal.NewFromString(o.value)
	if err != nil {
		return coupon.Coupon{}, errors.Wrapf(err, "parse value %q", o.value)
	}
	if value.IsNegative() || (t == coupon.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100))) {
		return coupon.Coupon{}, errors.Errorf("value %s out of range for %s", value, t)
	}

	c := coupon.Coupon{
		Description:   o.description,
		Type:          t,
		Value:         value,
		RequiresLogin: o.requiresLogin,
		IsActive:      true,
		StartDate:     &now,
	}
	if o.minOrder != "" {
		minOrder, err := decimal.NewFromString(o.minOrder)
		if err != nil {
			return coupon.Coupon{}, errors.Wrapf(err, "parse min order %q", o.minOrder)
		}
		c.MinOrderValue = decimal.NewNullDecimal(minOrder)
	}
	if o.maxUsesPerUser > 0 {
		perUser := o.maxUsesPerUser
		c.MaxUsesPerUser = &perUser
	}
	if o.validFor > 0 {
		end := now.Add(o.validFor)
		c.ExpiryDate = &end
	}
	return c, nil
}

// newCodeFilter sizes a bloom filter for the existing codes plus the batch
// about to be generated.
func newCodeFilter(existing []string, batch int) *bloom.BloomFilter {
	filter := bloom.NewWithEstimates(uint(len(existing)+batch), bloomFPR)
	for _, code := range existing {
		filter.AddString(coupon.NormalizeCode(code))
	}
	return filter
}

// generateCodes draws count codes not present in filter. A false positive
// only costs a redraw.
func generateCodes(filter *bloom.BloomFilter, prefix string, count int, gen func(prefix string) (string, error)) ([]string, error) {
	codes := make([]string, 0, count)
	for attempts := 0; len(codes) < count; attempts++ {
		if attempts >= count*maxAttemptsPerCode {
			return nil, errors.Errorf("gave up after %d attempts with %d of %d codes", attempts, len(codes), count)
		}
		code, err := gen(prefix)
		if err != nil {
			return nil, err
		}
		if filter.TestOrAddString(code) {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// writeExport writes one code per line to a gzip file.
func writeExport(ctx context.Context, path string, codes []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	gz := pgzip.NewWriter(f)
	w := bufio.NewWriter(gz)
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.WriteString(code + "\n"); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "close gzip %s", path)
	}
	return nil
}
