package offlineresolver

import (
	"context"
	"fmt"

	"github.com/nerveband/amp-resolver/offlinestore"
)

var cascadeLevels = []offlinestore.CascadeLevel{
	offlinestore.LevelExact,
	offlinestore.LevelPrefix,
	offlinestore.LevelContains,
	offlinestore.LevelReverseContains,
}

func rowLimitFor(cfg *MatchingConfig, hasAlbumHint bool) int {
	if hasAlbumHint {
		return offlinestore.AlbumHintRowLimit
	}
	if cfg.Mode == ModeHighAccuracy {
		return offlinestore.HighAccuracyRowLimit
	}
	return offlinestore.DefaultRowLimit
}

// cascadeResult carries the rows selected by the cascade plus whether they
// came from COLD only (no HOT hits at all), the "obscure artist" signal.
type cascadeResult struct {
	rows       []offlinestore.Row
	obscure    bool
	levelFired offlinestore.CascadeLevel
}

// runCascade tries exact, then prefix, then contains, then reverse-contains,
// stopping at the first level with a non-empty result. HOT is tried before
// COLD and short-circuits COLD — except when an album hint is present, in
// which case HOT and COLD are unioned before scoring (spec.md §4.C
// rationale: the canonical release is often low-score and lives in COLD).
func runCascade(ctx context.Context, store *offlinestore.Store, cleanTitle, artistHintClean, albumHintClean string, cfg *MatchingConfig) (*cascadeResult, error) {
	limit := rowLimitFor(cfg, albumHintClean != "")

	for _, level := range cascadeLevels {
		hotRows, err := store.Search(ctx, offlinestore.TableHot, level, cleanTitle, artistHintClean, albumHintClean, limit)
		if err != nil {
			return nil, fmt.Errorf("offline cascade HOT/%s: %w", level, err)
		}

		if albumHintClean != "" {
			coldRows, err := store.Search(ctx, offlinestore.TableCold, level, cleanTitle, artistHintClean, albumHintClean, limit)
			if err != nil {
				return nil, fmt.Errorf("offline cascade COLD/%s: %w", level, err)
			}
			union := append(append([]offlinestore.Row(nil), hotRows...), coldRows...)
			if len(union) > 0 {
				return &cascadeResult{rows: union, obscure: len(hotRows) == 0, levelFired: level}, nil
			}
			continue
		}

		if len(hotRows) > 0 {
			return &cascadeResult{rows: hotRows, obscure: false, levelFired: level}, nil
		}

		coldRows, err := store.Search(ctx, offlinestore.TableCold, level, cleanTitle, artistHintClean, "", limit)
		if err != nil {
			return nil, fmt.Errorf("offline cascade COLD/%s: %w", level, err)
		}
		if len(coldRows) > 0 {
			return &cascadeResult{rows: coldRows, obscure: true, levelFired: level}, nil
		}
	}

	return &cascadeResult{}, nil
}
