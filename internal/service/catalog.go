package service

import "context"

// ChampionCatalog lists the champion ids a draft may reference. Timed-out
// picks are auto-filled from this list.
type ChampionCatalog interface {
	ChampionIDs(ctx context.Context) ([]string, error)
}

// StaticCatalog is a fixed in-memory catalog, used in tests and as a
// fallback when no external champion source is configured.
type StaticCatalog []string

func (c StaticCatalog) ChampionIDs(ctx context.Context) ([]string, error) {
	return c, nil
}
