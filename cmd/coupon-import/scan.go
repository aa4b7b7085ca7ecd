package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	maxLineBytes  = 1 << 20
)

// findCandidates returns every code that may occur more than once across
// files. Pass 1 builds one bloom filter per file and records in-file repeats;
// pass 2 checks each code against the other files' filters. Bloom filters
// have no false negatives, so a code outside the result is unique.
func findCandidates(ctx context.Context, files []string) (map[string]struct{}, error) {
	filters := make([]*bloom.BloomFilter, len(files))
	repeats := make([]map[string]struct{}, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			seen := make(map[string]struct{})
			var count uint64
			err := streamCodes(gctx, path, func(code string) {
				if filter.TestAndAddString(code) {
					seen[code] = struct{}{}
				}
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.String("file", path), slog.Uint64("codes", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "pass 1 %s", path)
			}
			filters[i], repeats[i] = filter, seen
			slog.Info("pass 1 complete", slog.String("file", path), slog.Uint64("codes", count))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cross := make([]map[string]struct{}, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]struct{})
			err := streamCodes(gctx, path, func(code string) {
				for j, f := range filters {
					if j != i && f.TestString(code) {
						found[code] = struct{}{}
						return
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "pass 2 %s", path)
			}
			cross[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]struct{})
	for _, sets := range [][]map[string]struct{}{repeats, cross} {
		for _, set := range sets {
			for code := range set {
				out[code] = struct{}{}
			}
		}
	}
	return out, nil
}

// streamCodes calls fn with the normalized code of every record in path.
// Lines without a code are skipped here and reported by the import pass.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	return streamLines(ctx, path, func(line []byte) error {
		code, err := decodeCode(line)
		if err != nil || code == "" {
			return nil
		}
		fn(code)
		return nil
	})
}

// streamLines opens a gzip-compressed file and calls fn for each non-empty line.
func streamLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// decodeCode reads only the code field of a record.
func decodeCode(line []byte) (string, error) {
	var code string
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "code" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		code = coupon.NormalizeCode(s)
		return nil
	})
	return code, err
}
