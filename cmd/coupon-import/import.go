package main

import (
	"context"
	"log/slog"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// Upserter stores a batch of coupons by code.
type Upserter interface {
	Upsert(ctx context.Context, coupons []coupon.Coupon) error
}

type importStats struct {
	imported   int
	duplicates int
	invalid    int
}

// importFiles streams files in order and upserts valid coupons in batches.
// The first occurrence of a code wins; later ones are dropped. Only codes in
// candidates can repeat, so only they are tracked.
func importFiles(ctx context.Context, repo Upserter, files []string, candidates map[string]struct{}, batchSize int) (importStats, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var (
		stats importStats
		batch = make([]coupon.Coupon, 0, batchSize)
		taken = make(map[string]struct{}, len(candidates))
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := repo.Upsert(ctx, batch); err != nil {
			return err
		}
		stats.imported += len(batch)
		slog.Info("write progress", slog.Int("written", stats.imported))
		batch = batch[:0]
		return nil
	}

	for _, path := range files {
		line := 0
		err := streamLines(ctx, path, func(raw []byte) error {
			line++
			c, err := decodeCoupon(raw)
			if err == nil {
				err = c.Validate()
			}
			if err != nil {
				stats.invalid++
				slog.Warn("skipping invalid coupon",
					slog.String("file", path),
					slog.Int("line", line),
					slog.String("error", err.Error()),
				)
				return nil
			}

			if _, maybe := candidates[c.Code]; maybe {
				if _, dup := taken[c.Code]; dup {
					stats.duplicates++
					return nil
				}
				taken[c.Code] = struct{}{}
			}

			batch = append(batch, c)
			if len(batch) == batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return stats, errors.Wrapf(err, "import %s", path)
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
