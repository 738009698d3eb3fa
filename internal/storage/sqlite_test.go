package storage_test

import (
	"context"
	"math"
	"testing"

	"github.com/Veraticus/ha-outliers/internal/config"
	"github.com/Veraticus/ha-outliers/internal/model"
	"github.com/Veraticus/ha-outliers/internal/storage"
	"github.com/Veraticus/ha-outliers/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStorage_ListSources(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	temp := db.AddEntity("sensor.living_room_temperature")
	db.AddStates(temp, "21.5", "22.0", "unavailable")
	power := db.AddEntity("input_number.target_power")
	db.AddStates(power, "100")
	db.AddEntity("sensor.never_reported")
	light := db.AddEntity("light.kitchen")
	db.AddStates(light, "on")
	// "_" must not act as a LIKE wildcard.
	decoy := db.AddEntity("inputXnumber.decoy")
	db.AddStates(decoy, "1")

	sources, err := db.Storage.ListSources(ctx, []string{"sensor.", "input_number."})
	require.NoError(t, err)
	require.Len(t, sources, 3)

	byEntity := make(map[string]model.CandidateSource)
	for _, s := range sources {
		byEntity[s.EntityID] = s
	}

	assert.Equal(t, "100", byEntity["input_number.target_power"].RecentState)
	assert.Equal(t, "22.0", byEntity["sensor.living_room_temperature"].RecentState, "sentinel states are skipped")
	assert.Equal(t, temp, byEntity["sensor.living_room_temperature"].SourceID)
	assert.Equal(t, "", byEntity["sensor.never_reported"].RecentState)
	assert.NotContains(t, byEntity, "light.kitchen")
	assert.NotContains(t, byEntity, "inputXnumber.decoy")
}

func TestSQLStorage_ListSourcesValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := db.Storage.ListSources(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrEmptySlice)

	_, err = db.Storage.ListSources(context.Background(), []string{" "})
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}

func TestSQLStorage_SourceStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.power")
	db.AddValues(id, 2, 4, 4, 4, 5, 5, 7, 9)
	db.AddStates(id, "unknown", "", "unavailable")

	stats, err := db.Storage.SourceStats(ctx, model.CandidateSource{SourceID: id, EntityID: "sensor.power"})
	require.NoError(t, err)

	assert.Equal(t, int64(8), stats.SampleCount)
	assert.InDelta(t, 5.0, stats.Mean, 1e-9)
	assert.InDelta(t, 2.0, stats.StdDev, 1e-9, "population standard deviation")
	assert.Equal(t, "sensor.power", stats.EntityID)
}

func TestSQLStorage_SourceStatsEmptyAndConstant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	empty := db.AddEntity("sensor.empty")
	stats, err := db.Storage.SourceStats(ctx, model.CandidateSource{SourceID: empty})
	require.NoError(t, err)
	assert.Zero(t, stats.SampleCount)
	assert.False(t, stats.Qualifies(1))

	flat := db.AddEntity("sensor.flat")
	db.AddRepeated(flat, 3.5, 10)
	stats, err = db.Storage.SourceStats(ctx, model.CandidateSource{SourceID: flat})
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.SampleCount)
	assert.Zero(t, stats.StdDev)
	assert.False(t, stats.Qualifies(1))
}

func TestSQLStorage_SamplesOutside(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.temp")
	ids := db.AddValues(id, 20, 14.9, 15, 25, 25.1, 42.3)
	db.AddStates(id, "unavailable")

	samples, err := db.Storage.SamplesOutside(ctx, id, 15, 25)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, ids[1], samples[0].RecordID)
	assert.InDelta(t, 14.9, samples[0].Value, 1e-9)
	assert.Equal(t, ids[4], samples[1].RecordID)
	assert.Equal(t, ids[5], samples[2].RecordID)
	assert.InDelta(t, 42.3, samples[2].Value, 1e-9)
	assert.Equal(t, testutil.BaseTime.Add(6*60e9).Unix(), samples[2].Timestamp.Unix())

	_, err = db.Storage.SamplesOutside(ctx, id, 25, 15)
	assert.ErrorIs(t, err, storage.ErrInvalidRange)

	_, err = db.Storage.SamplesOutside(ctx, id, math.NaN(), 1)
	assert.ErrorIs(t, err, storage.ErrInvalidRange)
}

func TestSQLStorage_UpdateStates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.temp")
	ids := db.AddValues(id, 20, 900, 901, 902, 21)
	targets := ids[1:4]

	affected, err := db.Storage.UpdateStates(ctx, targets, "20.5")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	for _, stateID := range targets {
		value, ok := db.StateValue(stateID)
		require.True(t, ok)
		assert.Equal(t, "20.5", value)
	}
	first, _ := db.StateValue(ids[0])
	last, _ := db.StateValue(ids[4])
	assert.Equal(t, "20", first)
	assert.Equal(t, "21", last)
}

func TestSQLStorage_UpdateStatesValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := db.Storage.UpdateStates(ctx, nil, "1")
	assert.ErrorIs(t, err, storage.ErrEmptySlice)

	_, err = db.Storage.UpdateStates(ctx, []int64{0}, "1")
	assert.ErrorIs(t, err, storage.ErrInvalidID)

	_, err = db.Storage.UpdateStates(ctx, []int64{1}, "")
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}

func TestSQLStorage_UpdateStatesLargeBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.stuck")
	ids := db.AddRepeated(id, 1e6, 1203)

	affected, err := db.Storage.UpdateStates(ctx, ids, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(1203), affected)
}

func TestSQLStorage_DeleteStatesUnlinksBackReferences(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.temp")
	ids := db.AddValues(id, 20, 999, 998, 21, 22)

	// ids[3] points at ids[2]; ids[2] points at ids[1] (which is deleted too).
	require.True(t, db.OldStateID(ids[3]).Valid)

	deleted, err := db.Storage.DeleteStates(ctx, []int64{ids[1], ids[2]})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, ok := db.StateValue(ids[1])
	assert.False(t, ok)
	_, ok = db.StateValue(ids[2])
	assert.False(t, ok)

	assert.False(t, db.OldStateID(ids[3]).Valid, "dangling back-reference must be cleared")
	assert.Equal(t, ids[3], db.OldStateID(ids[4]).Int64, "unrelated links are untouched")
	assert.Equal(t, 3, db.CountStates(id))
}

func TestSQLStorage_DeleteStatesMissingIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.temp")
	ids := db.AddValues(id, 1, 2)

	deleted, err := db.Storage.DeleteStates(ctx, []int64{ids[0], 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "reports exact rows removed")
}

func TestSQLStorage_MutationRollsBackOnFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := db.AddEntity("sensor.temp")
	ids := db.AddValues(id, 1, 2, 3)

	// Make the second statement of the transaction fail.
	_, err := db.DB.Exec(`CREATE TRIGGER block_delete BEFORE DELETE ON states BEGIN SELECT RAISE(ABORT, 'blocked'); END`)
	require.NoError(t, err)

	_, err = db.Storage.DeleteStates(ctx, []int64{ids[0]})
	require.Error(t, err)
	assert.False(t, storage.IsConnectionLost(err))

	assert.True(t, db.OldStateID(ids[1]).Valid, "unlink must be rolled back")
	assert.Equal(t, 3, db.CountStates(id))
}

func TestSQLStorage_SetPoolSize(t *testing.T) {
	file, _ := testutil.SetupFileDB(t)
	file.Storage.SetPoolSize(4)
	assert.Equal(t, 4, file.DB.Stats().MaxOpenConnections)
	file.Storage.SetPoolSize(0)
	assert.Equal(t, 1, file.DB.Stats().MaxOpenConnections)

	mem := testutil.SetupTestDB(t)
	mem.Storage.SetPoolSize(4)
	assert.Equal(t, 1, mem.DB.Stats().MaxOpenConnections, "in-memory database stays on one connection")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("missing sqlite file is not created", func(t *testing.T) {
		profile := config.Profile{Driver: config.DriverSQLite, Path: t.TempDir() + "/missing.db"}
		_, err := storage.Open(ctx, profile, 0)
		assert.Error(t, err)
	})

	t.Run("invalid profile", func(t *testing.T) {
		_, err := storage.Open(ctx, config.Profile{Driver: "oracle"}, 0)
		assert.Error(t, err)
	})
}
