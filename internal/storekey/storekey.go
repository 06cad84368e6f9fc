// Package storekey manages the 32-character shared secret the bridge and the
// integration platform sign requests with. The key lives in the store's
// options table (site meta on multisite) and is mirrored into a small local
// file so the bridge endpoint can load it without a settings lookup.
package storekey

import (
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"time"

	"bridgeconnector/internal/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// OptionName is the settings-store key the secret is persisted under.
	OptionName = "a2c_bridge_store_key"

	// InstalledOption marks the bridge as installed for this store.
	InstalledOption = "a2c_bridge_installed"

	filePrefix = "A2C_STORE_KEY="
)

// Generate produces a 32-character hex key. Entropy degrades through three
// tiers so installation never fails outright on exotic hosts.
func Generate() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err == nil {
		return fmt.Sprintf("%x", md5.Sum(b))
	}

	if u, err := uuid.NewRandom(); err == nil {
		return fmt.Sprintf("%x", md5.Sum(u[:]))
	}

	seed := fmt.Sprintf("%d.%d", time.Now().UnixNano(), os.Getpid())
	return fmt.Sprintf("%x", md5.Sum([]byte(seed)))
}

// Manager persists the key and keeps the mirror file in sync.
type Manager struct {
	db        *gorm.DB
	prefix    string
	multisite bool
	file      string
	log       *logger.Logger
}

func NewManager(db *gorm.DB, prefix string, multisite bool, file string, log *logger.Logger) *Manager {
	return &Manager{db: db, prefix: prefix, multisite: multisite, file: file, log: log}
}

// Load returns the current key, generating and persisting one on first use.
// A mirror file that disagrees with the settings store is rewritten.
func (m *Manager) Load() (string, error) {
	key, err := m.readOption(OptionName)
	if err != nil {
		return "", err
	}

	if key == "" {
		key = Generate()
		if err := m.writeOption(OptionName, key); err != nil {
			return "", err
		}
		m.log.Info("Generated new store key")
	}

	if fileKey, _ := m.readFile(); fileKey != key {
		if err := m.writeFile(key); err != nil {
			return "", fmt.Errorf("can't update store key file: %w", err)
		}
	}

	return key, nil
}

// Rotate replaces the key everywhere and returns the new value.
func (m *Manager) Rotate() (string, error) {
	key := Generate()
	if err := m.writeOption(OptionName, key); err != nil {
		return "", err
	}
	if err := m.writeFile(key); err != nil {
		return "", fmt.Errorf("can't update store key file: %w", err)
	}
	m.log.Info("Store key rotated")
	return key, nil
}

// Installed reports whether the bridge is marked installed for this store.
func (m *Manager) Installed() bool {
	v, err := m.readOption(InstalledOption)
	return err == nil && v != ""
}

// SetInstalled flips the installed marker.
func (m *Manager) SetInstalled(installed bool) error {
	if installed {
		return m.writeOption(InstalledOption, "1")
	}
	return m.deleteOption(InstalledOption)
}

func (m *Manager) table() string {
	if m.multisite {
		return m.prefix + "sitemeta"
	}
	return m.prefix + "options"
}

func (m *Manager) readOption(name string) (string, error) {
	var value string
	var err error
	if m.multisite {
		err = m.db.Raw(
			"SELECT meta_value FROM "+m.table()+" WHERE site_id = 1 AND meta_key = ? LIMIT 1", name,
		).Scan(&value).Error
	} else {
		err = m.db.Raw(
			"SELECT option_value FROM "+m.table()+" WHERE option_name = ? LIMIT 1", name,
		).Scan(&value).Error
	}
	if err != nil {
		return "", fmt.Errorf("failed to read option %s: %w", name, err)
	}
	return value, nil
}

func (m *Manager) writeOption(name, value string) error {
	var res *gorm.DB
	if m.multisite {
		res = m.db.Exec(
			"UPDATE "+m.table()+" SET meta_value = ? WHERE site_id = 1 AND meta_key = ?", value, name)
		if res.Error == nil && res.RowsAffected == 0 {
			res = m.db.Exec(
				"INSERT INTO "+m.table()+" (site_id, meta_key, meta_value) VALUES (1, ?, ?)", name, value)
		}
	} else {
		res = m.db.Exec(
			"UPDATE "+m.table()+" SET option_value = ? WHERE option_name = ?", value, name)
		if res.Error == nil && res.RowsAffected == 0 {
			res = m.db.Exec(
				"INSERT INTO "+m.table()+" (option_name, option_value, autoload) VALUES (?, ?, 'no')", name, value)
		}
	}
	if res.Error != nil {
		return fmt.Errorf("failed to write option %s: %w", name, res.Error)
	}
	return nil
}

func (m *Manager) deleteOption(name string) error {
	var res *gorm.DB
	if m.multisite {
		res = m.db.Exec("DELETE FROM "+m.table()+" WHERE site_id = 1 AND meta_key = ?", name)
	} else {
		res = m.db.Exec("DELETE FROM "+m.table()+" WHERE option_name = ?", name)
	}
	return res.Error
}

func (m *Manager) readFile() (string, error) {
	data, err := os.ReadFile(m.file)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(data))
	return strings.TrimPrefix(line, filePrefix), nil
}

func (m *Manager) writeFile(key string) error {
	return os.WriteFile(m.file, []byte(filePrefix+key+"\n"), 0o600)
}
