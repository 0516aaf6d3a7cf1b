package cache

import (
	"context"

	"github.com/sniperleonid/Calc-sub001/internal/tables"
	"github.com/sniperleonid/Calc-sub001/internal/weapons"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// WeaponCache memoizes weapon profiles by id in front of a provider.
type WeaponCache struct {
	source weapons.Provider
	memo   *Memo[string, core.WeaponProfile]
}

func NewWeaponCache(source weapons.Provider) *WeaponCache {
	return &WeaponCache{
		source: source,
		memo:   NewMemo[string, core.WeaponProfile](func(id string) string { return id }),
	}
}

func (c *WeaponCache) Weapon(ctx context.Context, id string) (core.WeaponProfile, error) {
	return c.memo.GetOrLoad(ctx, id, func(ctx context.Context) (core.WeaponProfile, error) {
		return c.source.Weapon(ctx, id)
	})
}

// Reset drops every cached profile.
func (c *WeaponCache) Reset() { c.memo.Reset() }

type tableKey struct {
	weaponID string
	paths    core.TablePaths
}

// TableCache memoizes parsed tables per weapon and table paths.
type TableCache struct {
	source tables.Provider
	memo   *Memo[tableKey, tables.Set]
}

func NewTableCache(source tables.Provider) *TableCache {
	return &TableCache{
		source: source,
		memo: NewMemo[tableKey, tables.Set](func(k tableKey) string {
			return k.weaponID + ":" + k.paths.Direct + "|" + k.paths.Low + "|" + k.paths.High
		}),
	}
}

func (c *TableCache) Tables(ctx context.Context, weaponID string, paths core.TablePaths) (tables.Set, error) {
	key := tableKey{weaponID: weaponID, paths: paths}
	return c.memo.GetOrLoad(ctx, key, func(ctx context.Context) (tables.Set, error) {
		return c.source.Tables(ctx, weaponID, paths)
	})
}

// Reset drops every cached table set.
func (c *TableCache) Reset() { c.memo.Reset() }
