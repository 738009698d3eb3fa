package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("HA_OUTLIERS_TEST_DIR", "/srv/ha")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, filepath.Join(home, "db.sqlite"), ExpandPath("~/db.sqlite"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/srv/ha/db", ExpandPath("$HA_OUTLIERS_TEST_DIR/db"))
}

func TestProfileStore_LoadMissingReturnsDefaults(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "profile.toml"))

	profile, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultProfile(), profile)
}

func TestProfileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.toml")
	store := NewProfileStore(path)

	want := Profile{
		Driver:   DriverMySQL,
		Host:     "ha.local",
		Port:     3307,
		User:     "recorder",
		Password: "s3cret",
		Database: "ha",
		Path:     "~/.homeassistant/home-assistant_v2.db",
	}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, found, err := store.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestProfileStore_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \"not a number\""), 0o600))

	_, _, err := NewProfileStore(path).Load()
	assert.Error(t, err)
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Profile) {}},
		{name: "missing host", mutate: func(p *Profile) { p.Host = "" }, wantErr: true},
		{name: "bad port", mutate: func(p *Profile) { p.Port = 70000 }, wantErr: true},
		{name: "sqlite needs path", mutate: func(p *Profile) { p.Driver = DriverSQLite; p.Path = "" }, wantErr: true},
		{name: "sqlite with path", mutate: func(p *Profile) { p.Driver = DriverSQLite }},
		{name: "unknown driver", mutate: func(p *Profile) { p.Driver = "postgres" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfile_Address(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, "localhost:3306", p.Address())

	p.Driver = DriverSQLite
	p.Path = "/data/ha.db"
	assert.Equal(t, "/data/ha.db", p.Address())
}

func TestAcquireSessionLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.lock")

	first, err := AcquireSessionLock(path)
	require.NoError(t, err)

	_, err = AcquireSessionLock(path)
	assert.ErrorIs(t, err, ErrSessionLocked)

	require.NoError(t, first.Release())

	again, err := AcquireSessionLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.InDelta(t, 5.0, v.GetFloat64(KeySigma), 1e-9)
	assert.Equal(t, 200, v.GetInt(KeyMinSamples))
	assert.InDelta(t, 0.01, v.GetFloat64(KeyFrequencyThreshold), 1e-9)
	assert.Equal(t, 25, v.GetInt(KeyPageSize))
	assert.Equal(t, 10*time.Second, v.GetDuration(KeyConnectTimeout))
	assert.Equal(t, []string{"sensor.", "number.", "counter.", "input_number."}, v.GetStringSlice(KeyPrefixes))
}
