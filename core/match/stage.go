package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keymatch/core/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stagingPrefix marks temporary tables owned by the matcher.
const stagingPrefix = "km_"

// dropTimeout bounds the cleanup drop, which runs even after cancellation.
const dropTimeout = 10 * time.Second

// newStagingArea names a fresh staging area mirroring the key columns only.
func newStagingArea(layout *keyLayout) *StagingArea {
	area := &StagingArea{
		Name:    stagingPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Columns: make([]StagingColumn, 0, len(layout.keys)),
	}
	for i, k := range layout.keys {
		area.Columns = append(area.Columns, StagingColumn{
			Name: fmt.Sprintf("k%d", i),
			Type: k.declared,
		})
	}
	return area
}

// effectiveBatchSize caps the configured batch size so that one statement
// stays within the session's bind parameter limit.
func effectiveBatchSize(configured int, s Session, area *StagingArea) int {
	size := configured
	if size <= 0 {
		size = DefaultBatchSize
	}
	if limit := s.MaxBindParams(); limit > 0 {
		perRow := len(area.Columns) + 1
		if size*perRow > limit {
			size = limit / perRow
		}
	}
	if size < 1 {
		size = 1
	}
	return size
}

// withStaging makes sure area is absent, creates it, runs fn, and drops it
// again on every exit path. A failed drop is joined with fn's error.
func (m *Matcher) withStaging(ctx context.Context, s Session, area *StagingArea, fn func() error) (err error) {
	if err := s.DropStaging(ctx, area); err != nil {
		return &StagingError{Area: area.Name, Op: "drop", Err: err}
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dropTimeout)
		defer cancel()
		if dropErr := s.DropStaging(cleanupCtx, area); dropErr != nil {
			m.logger.Warn("Failed to drop staging area",
				zap.String("area", area.Name),
				zap.Error(dropErr),
			)
			err = errors.Join(err, &StagingError{Area: area.Name, Op: "drop", Err: dropErr})
		}
	}()

	if err := s.CreateStaging(ctx, area); err != nil {
		return &StagingError{Area: area.Name, Op: "create", Err: err}
	}

	return fn()
}

// stage writes tuples into area in bounded batches.
func (m *Matcher) stage(ctx context.Context, s Session, area *StagingArea, tuples []KeyTuple) error {
	size := effectiveBatchSize(m.cfg.BatchSize, s, area)
	backend := m.backend.Name()

	for start := 0; start < len(tuples); start += size {
		end := min(start+size, len(tuples))
		if err := s.WriteStaging(ctx, area, tuples[start:end]); err != nil {
			return &StagingError{Area: area.Name, Op: "write", Err: err}
		}

		metrics.StagingBatchesTotal.WithLabelValues(backend).Inc()
		metrics.StagedKeysTotal.WithLabelValues(backend).Add(float64(end - start))
		m.logger.Debug("Staged key batch",
			zap.String("area", area.Name),
			zap.Int("from", start),
			zap.Int("to", end),
		)
	}
	return nil
}
