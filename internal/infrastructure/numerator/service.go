// Package numerator provides the PostgreSQL implementation of document
// auto-numbering. It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"facturio/internal/core/id"
	corenumerator "facturio/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering backed by the sys_sequences table.
// Counter rows are keyed by (company_id, key); the strict strategy does a
// single UPSERT ... RETURNING per number so concurrent callers never see
// the same value.
type Service struct {
	querier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// GetNextNumber generates the next document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g. FAC-2026-00001)
func (s *Service) GetNextNumber(ctx context.Context, companyID id.ID, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := buildKey(cfg, period)
	cacheKey := fmt.Sprintf("%s:%s", companyID, key)

	var num int64
	var err error
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, companyID, key, cacheKey, opts)
	case corenumerator.StrategyStrict:
		fallthrough
	default:
		num, err = s.getNextStrict(ctx, companyID, key)
	}
	if err != nil {
		return "", err
	}

	return formatNumber(cfg, period, num), nil
}

// getNextStrict fetches the next number directly from the DB using
// UPSERT + RETURNING.
func (s *Service) getNextStrict(ctx context.Context, companyID id.ID, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (company_id, key, current_val)
        VALUES ($1, $2, 1)
        ON CONFLICT (company_id, key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, companyID, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// getNextCached fetches the next number from memory, refilling from the
// DB when the reserved range is exhausted.
func (s *Service) getNextCached(ctx context.Context, companyID id.ID, dbKey, cacheKey string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[cacheKey]
	if !exists {
		rng = &cachedRange{}
		s.ranges[cacheKey] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.querier.QueryRow(ctx, `
            INSERT INTO sys_sequences (company_id, key, current_val)
            VALUES ($1, $2, $3)
            ON CONFLICT (company_id, key) DO UPDATE SET current_val = sys_sequences.current_val + $3
            RETURNING current_val
		`, companyID, dbKey, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		// newMax is the end of the reserved range; its start is
		// newMax - size + 1, so current sits one before the first value.
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber sets the counter value (for migrations and imports).
func (s *Service) SetNextNumber(ctx context.Context, companyID id.ID, cfg corenumerator.Config, period time.Time, value int64) error {
	key := buildKey(cfg, period)

	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (company_id, key, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, key) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, companyID, key, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, fmt.Sprintf("%s:%s", companyID, key))
	s.cacheMu.Unlock()

	return err
}

// buildKey creates the sequence key based on config and period.
func buildKey(cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// formatNumber creates the final number string.
func formatNumber(cfg corenumerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric part from a formatted number
// (the segment after the last dash). Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}

// DocumentNumbers adapts the generator to the billing layer's numbering
// contract: one strict PREFIX-YYYY-NNNNN sequence per company and year.
type DocumentNumbers struct {
	generator corenumerator.Generator
}

// NewDocumentNumbers creates the adapter.
func NewDocumentNumbers(generator corenumerator.Generator) *DocumentNumbers {
	return &DocumentNumbers{generator: generator}
}

// NextDocumentNumber implements document.NumberGenerator.
func (n *DocumentNumbers) NextDocumentNumber(ctx context.Context, companyID id.ID, prefix string, issueDate time.Time) (string, error) {
	return n.generator.GetNextNumber(ctx, companyID, corenumerator.DefaultConfig(prefix), corenumerator.DefaultOptions(), issueDate)
}
