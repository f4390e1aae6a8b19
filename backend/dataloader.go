package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/lib/pq"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

var errProfileNotFound = errors.New("profile not found")

// DataLoaders holds the per-request loaders
type DataLoaders struct {
	ProfileLoader *dataloader.Loader[int, *Profile]
}

// NewDataLoaders creates new dataloaders with the database connection
func NewDataLoaders(db *sql.DB) *DataLoaders {
	return &DataLoaders{
		ProfileLoader: dataloader.NewBatchedLoader(profileBatchFn(db), dataloader.WithWait[int, *Profile](16*time.Millisecond)),
	}
}

// GetDataLoadersFromContext retrieves dataloaders from context
func GetDataLoadersFromContext(ctx context.Context) *DataLoaders {
	if dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders); ok {
		return dl
	}
	return nil
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

// profileBatchFn loads full profiles for a batch of user ids. Guardian blocks
// are left in place; handlers apply disclosure per viewer.
func profileBatchFn(db *sql.DB) dataloader.BatchFunc[int, *Profile] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*Profile] {
		results := make([]*dataloader.Result[*Profile], len(keys))

		// userID -> positions in results; the same key may be requested twice
		keyMap := make(map[int][]int)
		for i, key := range keys {
			keyMap[key] = append(keyMap[key], i)
			results[i] = &dataloader.Result[*Profile]{}
		}

		if len(keys) == 0 {
			return results
		}

		rows, err := db.QueryContext(ctx,
			`SELECT `+profileColumns+` FROM profiles p WHERE p.user_id = ANY($1)`,
			pq.Array(keys),
		)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				for i := range results {
					if results[i].Data == nil && results[i].Error == nil {
						results[i].Error = err
					}
				}
				return results
			}
			for _, idx := range keyMap[p.ID] {
				// each position gets its own copy so disclosure edits don't leak
				cp := *p
				results[idx].Data = &cp
			}
		}

		for i := range results {
			if results[i].Data == nil && results[i].Error == nil {
				results[i].Error = errProfileNotFound
			}
		}
		return results
	}
}

// loadProfiles resolves ids through the request's loader, or directly when
// the request carries none. Missing profiles are skipped.
func loadProfiles(ctx context.Context, db *sql.DB, ids []int) (map[int]*Profile, error) {
	dl := GetDataLoadersFromContext(ctx)
	if dl == nil {
		dl = NewDataLoaders(db)
	}
	thunk := dl.ProfileLoader.LoadMany(ctx, ids)
	profiles, errs := thunk()

	out := make(map[int]*Profile, len(ids))
	for i, p := range profiles {
		if len(errs) > i && errs[i] != nil {
			if errors.Is(errs[i], errProfileNotFound) {
				continue
			}
			return nil, errs[i]
		}
		if p != nil {
			out[p.ID] = p
		}
	}
	return out, nil
}
