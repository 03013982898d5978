package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
	"golang.org/x/sync/errgroup"
)

// Verify reads the state of both collections. A collection that cannot be
// read is reported as a warning, not an error.
func (p *Pipeline) Verify(ctx context.Context) ([]CollectionReport, []string) {
	return p.verify(ctx, -1)
}

// verify reports both collections. When expected is not negative, a
// collection holding fewer points than expected is flagged.
func (p *Pipeline) verify(ctx context.Context, expected int) ([]CollectionReport, []string) {
	names := []string{p.tagCollection, p.descCollection}
	reports := make([]CollectionReport, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Go(func() {
			state, err := p.store.Stats(ctx, name)
			if err != nil {
				reports[i] = CollectionReport{Name: name, Error: err.Error()}
				return
			}
			reports[i] = newCollectionReport(state)
		})
	}
	wg.Wait()

	var warnings []string
	for _, r := range reports {
		if r.Error != "" {
			err := fmt.Errorf("%w: %s: %s", ErrVerificationUnavailable, r.Name, r.Error)
			p.logger.Warn("verification unavailable", "collection", r.Name, "err", err)
			warnings = append(warnings, err.Error())
			continue
		}
		p.logger.Info("collection stats", "collection", r.Name, "points", r.PointsCount, "vectors", r.VectorsCount)
		if expected >= 0 && r.PointsCount < uint64(expected) {
			warnings = append(warnings, fmt.Sprintf("%s holds %d points, fewer than the %d imported records", r.Name, r.PointsCount, expected))
		}
	}

	tag, desc := reports[0], reports[1]
	if tag.Error == "" && desc.Error == "" && tag.PointsCount != desc.PointsCount {
		warnings = append(warnings, fmt.Sprintf("point count mismatch: %s has %d, %s has %d",
			tag.Name, tag.PointsCount, desc.Name, desc.PointsCount))
	}

	if p.deepVerify {
		warnings = append(warnings, p.verifyIdentifiers(ctx, reports)...)
	}
	return reports, warnings
}

// verifyIdentifiers lists points present in only one of the collections.
func (p *Pipeline) verifyIdentifiers(ctx context.Context, reports []CollectionReport) []string {
	lister, ok := p.store.(storage.PointLister)
	if !ok {
		return []string{"deep verification not supported by this store"}
	}

	var tagIDs, descIDs []core.PointID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tagIDs, err = lister.PointIDs(gctx, p.tagCollection)
		return err
	})
	g.Go(func() error {
		var err error
		descIDs, err = lister.PointIDs(gctx, p.descCollection)
		return err
	})
	if err := g.Wait(); err != nil {
		return []string{fmt.Errorf("%w: listing identifiers: %w", ErrVerificationUnavailable, err).Error()}
	}

	tagOnly, descOnly := Orphans(tagIDs, descIDs)
	reports[0].Orphans = len(tagOnly)
	reports[1].Orphans = len(descOnly)

	var warnings []string
	for _, id := range tagOnly {
		warnings = append(warnings, fmt.Sprintf("orphan point %s in %s", id, p.tagCollection))
	}
	for _, id := range descOnly {
		warnings = append(warnings, fmt.Sprintf("orphan point %s in %s", id, p.descCollection))
	}
	return warnings
}

// Orphans returns the identifiers present only in a and only in b.
func Orphans(a, b []core.PointID) (onlyA, onlyB []core.PointID) {
	inA := make(map[core.PointID]struct{}, len(a))
	for _, id := range a {
		inA[id] = struct{}{}
	}
	inB := make(map[core.PointID]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
		if _, ok := inA[id]; !ok {
			onlyB = append(onlyB, id)
		}
	}
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			onlyA = append(onlyA, id)
		}
	}
	return onlyA, onlyB
}

// Clear removes every point from both collections. Collections that do not
// exist are created empty.
func (p *Pipeline) Clear(ctx context.Context) error {
	for _, name := range []string{p.tagCollection, p.descCollection} {
		if _, err := p.store.Ensure(ctx, name); err != nil {
			return p.setupErr(ctx, "ensure", name, err)
		}
		if err := p.store.Clear(ctx, name); err != nil {
			return p.setupErr(ctx, "clear", name, err)
		}
		p.logger.Info("collection cleared", "collection", name)
	}
	return nil
}
