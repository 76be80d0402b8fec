// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/metrics"
	"github.com/tomtom215/tabularium/internal/remote"
)

// generation is one upload family member set: a daily log file, an
// archive with its checksum sidecar, or a dashboard render batch.
type generation struct {
	key     string
	updated time.Time
	objects []remote.Object
}

// generationKey reduces an object name to its generation. The first
// path segment after the scope identifies the generation; a .sha256
// sidecar belongs to the archive it checksums.
func generationKey(scope, name string) string {
	rest := strings.TrimPrefix(name, scope+"/")
	rest = strings.TrimSuffix(rest, ".sha256")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// groupGenerations buckets scope objects by generation, newest first.
// Order follows the store listing convention: update time descending,
// generation key descending on ties.
func groupGenerations(scope string, objects []remote.Object) []generation {
	byKey := make(map[string]*generation)
	for _, obj := range objects {
		key := generationKey(scope, obj.Name)
		gen, ok := byKey[key]
		if !ok {
			gen = &generation{key: key}
			byKey[key] = gen
		}
		gen.objects = append(gen.objects, obj)
		if obj.Updated.After(gen.updated) {
			gen.updated = obj.Updated
		}
	}

	generations := make([]generation, 0, len(byKey))
	for _, gen := range byKey {
		generations = append(generations, *gen)
	}
	sort.Slice(generations, func(i, j int) bool {
		if !generations[i].updated.Equal(generations[j].updated) {
			return generations[i].updated.After(generations[j].updated)
		}
		return generations[i].key > generations[j].key
	})
	return generations
}

// PruneRemote deletes scope generations beyond the keep count, newest
// kept. It returns the number of objects removed; individual delete
// failures are logged and skipped so one stuck object cannot wedge the
// whole sweep.
func PruneRemote(ctx context.Context, store remote.Store, scope string, keep int, logger zerolog.Logger) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("remote retention: keep must be at least 1, got %d", keep)
	}

	objects, err := store.List(ctx, scope+"/")
	if err != nil {
		return 0, fmt.Errorf("remote retention: list %s: %w", scope, err)
	}

	generations := groupGenerations(scope, objects)
	if len(generations) <= keep {
		return 0, nil
	}

	deleted := 0
	for _, gen := range generations[keep:] {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		for _, obj := range gen.objects {
			if err := store.Delete(ctx, obj.Name); err != nil {
				logger.Warn().Err(err).Str("object", obj.Name).Msg("Failed to delete remote object")
				continue
			}
			deleted++
			metrics.RetentionDeletions.WithLabelValues("remote").Inc()
		}
	}

	if deleted > 0 {
		logger.Info().
			Str("scope", scope).
			Int("deleted", deleted).
			Int("kept", keep).
			Msg("Remote retention applied")
	}
	return deleted, nil
}
