package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "audit.log")
	log := NewLog(path)
	log.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }

	value := 21.5
	require.NoError(t, log.Record(Entry{
		SessionID: "abc",
		Action:    ActionEdit,
		EntityID:  "sensor.temp",
		RecordIDs: []int64{10, 11, 12},
		Value:     &value,
		Affected:  3,
	}))
	require.NoError(t, log.Record(Entry{
		SessionID: "abc",
		Action:    ActionDelete,
		EntityID:  "sensor.temp",
		RecordIDs: []int64{13},
		Affected:  1,
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)

	assert.Equal(t, ActionEdit, entries[0].Action)
	require.NotNil(t, entries[0].Value)
	assert.InDelta(t, 21.5, *entries[0].Value, 1e-9)
	assert.Equal(t, []int64{10, 11, 12}, entries[0].RecordIDs)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), entries[0].Time)

	assert.Equal(t, ActionDelete, entries[1].Action)
	assert.Nil(t, entries[1].Value)
	assert.Equal(t, int64(1), entries[1].Affected)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Record(Entry{}))
}
