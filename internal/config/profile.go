package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DefaultProfilePath is where the connection profile lives unless overridden.
const DefaultProfilePath = "~/.config/ha-outliers/profile.toml"

// Profile describes how to reach the Home Assistant recorder database.
type Profile struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	Path     string `toml:"path"` // SQLite database file
	Port     int    `toml:"port"`
}

// DefaultProfile returns the stock Home Assistant MariaDB add-on settings.
func DefaultProfile() Profile {
	return Profile{
		Driver:   DriverMySQL,
		Host:     "localhost",
		Port:     3306,
		User:     "homeassistant",
		Database: "homeassistant",
		Path:     "~/.homeassistant/home-assistant_v2.db",
	}
}

// Address returns a printable location of the database.
func (p Profile) Address() string {
	if p.Driver == DriverSQLite {
		return ExpandPath(p.Path)
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Validate checks that the profile can be used to open a connection.
func (p Profile) Validate() error {
	switch p.Driver {
	case DriverMySQL:
		if p.Host == "" {
			return errors.New("host is required")
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("port %d out of range", p.Port)
		}
		if p.Database == "" {
			return errors.New("database is required")
		}
	case DriverSQLite:
		if p.Path == "" {
			return errors.New("path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported driver %q", p.Driver)
	}
	return nil
}

// ProfileStore loads and saves the connection profile file.
type ProfileStore struct {
	path string
}

// NewProfileStore creates a store for the profile at path (DefaultProfilePath when empty).
func NewProfileStore(path string) *ProfileStore {
	if path == "" {
		path = DefaultProfilePath
	}
	return &ProfileStore{path: ExpandPath(path)}
}

// Path returns the resolved profile file location.
func (s *ProfileStore) Path() string {
	return s.path
}

// Load reads the saved profile. A missing file yields the defaults and found=false.
func (s *ProfileStore) Load() (Profile, bool, error) {
	profile := DefaultProfile()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return profile, false, nil
		}
		return profile, false, fmt.Errorf("read profile: %w", err)
	}

	if err := toml.Unmarshal(data, &profile); err != nil {
		return DefaultProfile(), false, fmt.Errorf("parse profile %s: %w", s.path, err)
	}

	return profile, true, nil
}

// Save writes the profile with owner-only permissions.
func (s *ProfileStore) Save(profile Profile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := toml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		return fmt.Errorf("chmod profile: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}
	return nil
}
