package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"surface-tracker/internal/logging"
	"surface-tracker/internal/surface"
)

const lastReplacedKey = "surfaces_last_replaced"

// ListSurfaces returns all definitions in their stored order.
func (s *SurfaceStore) ListSurfaces(ctx context.Context) (defs []surface.Definition, err error) {
	start := time.Now()
	defer func() { recordQuery("list_surfaces", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
	SELECT uid, name, real_world_width, real_world_height, heatmap_smoothness, min_markers
	FROM surfaces ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byUID := make(map[uuid.UUID]int)
	for rows.Next() {
		var def surface.Definition
		var uid string
		if err := rows.Scan(&uid, &def.Name, &def.RealWorldSize[0], &def.RealWorldSize[1], &def.HeatmapSmoothness, &def.MinMarkers); err != nil {
			return nil, err
		}
		if def.UID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("surface %q: %w", def.Name, err)
		}
		def.RegisteredMarkers = make(map[int]surface.RegisteredMarker)
		byUID[def.UID] = len(defs)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := s.db.QueryContext(ctx, "SELECT surface_uid, marker_id, verts FROM registered_markers")
	if err != nil {
		return nil, err
	}
	defer mrows.Close()

	for mrows.Next() {
		var uid, verts string
		var m surface.RegisteredMarker
		if err := mrows.Scan(&uid, &m.ID, &verts); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(uid)
		if err != nil {
			return nil, err
		}
		i, ok := byUID[id]
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(verts), &m.Verts); err != nil {
			return nil, fmt.Errorf("marker %d of %q: %w", m.ID, defs[i].Name, err)
		}
		defs[i].RegisteredMarkers[m.ID] = m
	}
	return defs, mrows.Err()
}

// ReplaceSurfaces rewrites every definition in one transaction.
func (s *SurfaceStore) ReplaceSurfaces(ctx context.Context, defs []surface.Definition) (err error) {
	start := time.Now()
	defer func() { recordQuery("replace_surfaces", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM registered_markers"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM surfaces"); err != nil {
			return err
		}

		for pos, def := range defs {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO surfaces (uid, name, position, real_world_width, real_world_height, heatmap_smoothness, min_markers)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			`, def.UID.String(), def.Name, pos, def.RealWorldSize[0], def.RealWorldSize[1], def.HeatmapSmoothness, def.MinMarkers)
			if err != nil {
				return fmt.Errorf("insert surface %q: %w", def.Name, err)
			}

			for _, m := range def.RegisteredMarkers {
				verts, err := json.Marshal(m.Verts)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO registered_markers (surface_uid, marker_id, verts) VALUES (?, ?, ?)",
					def.UID.String(), m.ID, string(verts),
				); err != nil {
					return fmt.Errorf("insert marker %d of %q: %w", m.ID, def.Name, err)
				}
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, lastReplacedKey, time.Now().UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return err
	}

	logging.Debug("Saved %d surface definitions to %s", len(defs), s.dbPath)
	return nil
}
