package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"plantfinder/config"
	"plantfinder/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.Default().Database
	cfg.Driver = "sqlite3"
	cfg.Path = filepath.Join(t.TempDir(), "plants.db")

	store, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate())
	return store
}

func strPtr(s string) *string { return &s }

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Migrate())
}

func TestMigrateLogsAppliedVersion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	cfg := config.Default().Database
	cfg.Driver = "sqlite3"
	cfg.Path = filepath.Join(t.TempDir(), "plants.db")

	store, err := Open(cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate())

	applied := logs.FilterMessage("Database migration was run successfully").All()
	require.Len(t, applied, 1)
	assert.Equal(t, uint64(1), applied[0].ContextMap()["version"])
	assert.Equal(t, false, applied[0].ContextMap()["dirty"])
	assert.Zero(t, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestEachCandidateSkipsPlantsWithoutImage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertPlant(ctx, types.Plant{Name: "Tulsi", Image: []byte{1, 2, 3}})
	require.NoError(t, err)
	_, err = store.InsertPlant(ctx, types.Plant{Name: "Imageless"})
	require.NoError(t, err)
	_, err = store.InsertPlant(ctx, types.Plant{Name: "Neem", Image: []byte{4, 5}, CommonNames: strPtr("Margosa,Indian lilac")})
	require.NoError(t, err)

	var names []string
	err = store.EachCandidate(ctx, func(p types.Plant) error {
		names = append(names, p.Name)
		assert.NotEmpty(t, p.Image)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tulsi", "Neem"}, names, "candidates stream in id order")
}

func TestEachCandidateStopsOnCallbackError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := store.InsertPlant(ctx, types.Plant{Name: name, Image: []byte{1}})
		require.NoError(t, err)
	}

	stop := errors.New("stop")
	seen := 0
	err := store.EachCandidate(ctx, func(types.Plant) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestGetPlantByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertPlant(ctx, types.Plant{
		Name:                "Aloe vera",
		ScientificName:      strPtr("Aloe barbadensis miller"),
		MedicinalProperties: strPtr("Soothes burns"),
		Image:               []byte{9, 9, 9},
	})
	require.NoError(t, err)

	plant, err := store.GetPlantByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Aloe vera", plant.Name)
	assert.Equal(t, "Aloe barbadensis miller", *plant.ScientificName)
	assert.Nil(t, plant.Precautions)
	assert.Nil(t, plant.Image, "details do not carry the image blob")

	_, err = store.GetPlantByID(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPlants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("x", 150)
	_, err := store.InsertPlant(ctx, types.Plant{Name: "Tulsi", MedicinalProperties: strPtr(long)})
	require.NoError(t, err)
	_, err = store.InsertPlant(ctx, types.Plant{Name: "Ashwagandha"})
	require.NoError(t, err)
	_, err = store.InsertPlant(ctx, types.Plant{Name: "Brahmi", MedicinalProperties: strPtr("Memory")})
	require.NoError(t, err)

	plants, err := store.ListPlants(ctx, 2)
	require.NoError(t, err)
	require.Len(t, plants, 2)
	assert.Equal(t, "Ashwagandha", plants[0].Name)
	assert.Nil(t, plants[0].ShortDescription)
	assert.Equal(t, "Brahmi", plants[1].Name)
	assert.Equal(t, "Memory...", *plants[1].ShortDescription)

	all, err := store.ListPlants(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, strings.Repeat("x", 100)+"...", *all[2].ShortDescription)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO plants (name) VALUES ('ghost')`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stats, err := store.GetPlantStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPlants)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO plants (name) VALUES ('ghost')`)
			panic("kaboom")
		})
	})

	stats, err := store.GetPlantStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPlants)
}

func TestGetPlantStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertPlant(ctx, types.Plant{Name: "Tulsi", Image: []byte{1}})
	require.NoError(t, err)
	_, err = store.InsertPlant(ctx, types.Plant{Name: "Neem"})
	require.NoError(t, err)

	stats, err := store.GetPlantStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPlants)
	assert.Equal(t, 1, stats.PlantsWithImage)
}

func TestFindAndUpdatePlant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.FindPlantIDByName(ctx, "Tulsi")
	require.NoError(t, err)
	assert.False(t, found)

	id, err := store.InsertPlant(ctx, types.Plant{Name: "Tulsi", Image: []byte{1}})
	require.NoError(t, err)

	got, found, err := store.FindPlantIDByName(ctx, "Tulsi")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, got)

	err = store.UpdatePlant(ctx, id, types.Plant{Name: "Tulsi", Precautions: strPtr("None known"), Image: []byte{2}})
	require.NoError(t, err)

	plant, err := store.GetPlantByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, plant.Precautions)
	assert.Equal(t, "None known", *plant.Precautions)

	err = store.UpdatePlant(ctx, id+100, types.Plant{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}
