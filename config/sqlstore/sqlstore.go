// Package sqlstore persists the runtime-mutable entities (contacts, ignore
// entries, auto-mode entries, connection-scripts, favourites) with
// gorm.io/gorm and the sqlite driver, grounded on presbrey-pkg's gormoize
// package: gorm.Open(sqlite.Open(dsn), &gorm.Config{}) and AutoMigrate on
// startup, the same stack presbrey-pkg's admin daemon persists through.
package sqlstore

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coldwire/irc/config"
	"github.com/coldwire/irc/watch"
)

// Store implements config.ContactStore, config.IgnoreStore,
// config.AutoModeStore, config.ConnectionScriptStore, and
// config.FavouriteStore backed by a gorm.DB.
type Store struct {
	db *gorm.DB
}

// contactRow, ignoreRow, autoModeRow, scriptRow, and favouriteRow are the
// gorm-mapped table shapes; they mirror the watch/config package's
// in-memory entry shapes field-for-field so Save/load never needs a lossy
// translation.
type contactRow struct {
	gorm.Model
	Name string `gorm:"uniqueIndex"`
	Group string
	ServerKey string
	User string
}

type ignoreRow struct {
	gorm.Model
	ServerKey string
	Mask string
	Kinds int
}

type autoModeRow struct {
	gorm.Model
	ServerKey string
	Mask string
	ChannelPattern string
	Type int
	Data string
}

type scriptRow struct {
	gorm.Model
	ServerKey string
	Nickname string
	Lines string // newline-joined, matching macro.Macro.Lines' own convention
	Enabled bool
}

type favouriteRow struct {
	gorm.Model
	Name string
	ServerID int64
	IdentityID int64
}

// Open opens (creating if necessary) a sqlite database at dsn and migrates
// all five tables this package owns.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&contactRow{}, &ignoreRow{}, &autoModeRow{}, &scriptRow{}, &favouriteRow{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Contacts() ([]*watch.ContactEntry, error) {
	var rows []contactRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*watch.ContactEntry, len(rows))
	for i, r := range rows {
		out[i] = &watch.ContactEntry{Name: r.Name, Group: r.Group, ServerKey: r.ServerKey, User: r.User}
	}
	return out, nil
}

func (s *Store) SaveContact(e *watch.ContactEntry) error {
	row := contactRow{Name: e.Name, Group: e.Group, ServerKey: e.ServerKey, User: e.User}
	return s.db.Where(contactRow{Name: e.Name}).Assign(row).FirstOrCreate(&row).Error
}

func (s *Store) DeleteContact(name string) error {
	return s.db.Where("name = ?", name).Delete(&contactRow{}).Error
}

func (s *Store) IgnoreEntries() ([]watch.IgnoreEntry, error) {
	var rows []ignoreRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]watch.IgnoreEntry, len(rows))
	for i, r := range rows {
		out[i] = watch.IgnoreEntry{ServerKey: r.ServerKey, Mask: r.Mask, Kinds: watch.MatchKind(r.Kinds)}
	}
	return out, nil
}

func (s *Store) SaveIgnore(e watch.IgnoreEntry) error {
	row := ignoreRow{ServerKey: e.ServerKey, Mask: e.Mask, Kinds: int(e.Kinds)}
	return s.db.Where(ignoreRow{ServerKey: e.ServerKey, Mask: e.Mask}).Assign(row).FirstOrCreate(&row).Error
}

func (s *Store) DeleteIgnore(e watch.IgnoreEntry) error {
	return s.db.Where("server_key = ? AND mask = ?", e.ServerKey, e.Mask).Delete(&ignoreRow{}).Error
}

func (s *Store) AutoModeEntries() ([]watch.AutoModeEntry, error) {
	var rows []autoModeRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]watch.AutoModeEntry, len(rows))
	for i, r := range rows {
		out[i] = watch.AutoModeEntry{
			ServerKey: r.ServerKey,
			Mask: r.Mask,
			ChannelPattern: r.ChannelPattern,
			Type: watch.AutoModeType(r.Type),
			Data: r.Data,
		}
	}
	return out, nil
}

func (s *Store) SaveAutoMode(e watch.AutoModeEntry) error {
	row := autoModeRow{ServerKey: e.ServerKey, Mask: e.Mask, ChannelPattern: e.ChannelPattern, Type: int(e.Type), Data: e.Data}
	return s.db.Where(autoModeRow{ServerKey: e.ServerKey, Mask: e.Mask, ChannelPattern: e.ChannelPattern}).
		Assign(row).FirstOrCreate(&row).Error
}

func (s *Store) DeleteAutoMode(e watch.AutoModeEntry) error {
	return s.db.Where("server_key = ? AND mask = ? AND channel_pattern = ?", e.ServerKey, e.Mask, e.ChannelPattern).
		Delete(&autoModeRow{}).Error
}

func (s *Store) ConnectionScripts() ([]*watch.ConnectionScript, error) {
	var rows []scriptRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*watch.ConnectionScript, len(rows))
	for i, r := range rows {
		out[i] = &watch.ConnectionScript{
			ServerKey: r.ServerKey,
			Nickname: r.Nickname,
			Lines: splitLines(r.Lines),
			Enabled: r.Enabled,
		}
	}
	return out, nil
}

func (s *Store) SaveConnectionScript(sc *watch.ConnectionScript) error {
	row := scriptRow{ServerKey: sc.ServerKey, Nickname: sc.Nickname, Lines: joinLines(sc.Lines), Enabled: sc.Enabled}
	return s.db.Where(scriptRow{ServerKey: sc.ServerKey, Nickname: sc.Nickname}).Assign(row).FirstOrCreate(&row).Error
}

func (s *Store) DeleteConnectionScript(serverKey, nickname string) error {
	return s.db.Where("server_key = ? AND nickname = ?", serverKey, nickname).Delete(&scriptRow{}).Error
}

func (s *Store) Favourites() ([]config.Favourite, error) {
	var rows []favouriteRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]config.Favourite, len(rows))
	for i, r := range rows {
		out[i] = config.Favourite{ID: int64(r.ID), Name: r.Name, ServerID: r.ServerID, IdentityID: r.IdentityID}
	}
	return out, nil
}

func (s *Store) SaveFavourite(f config.Favourite) (config.Favourite, error) {
	row := favouriteRow{Name: f.Name, ServerID: f.ServerID, IdentityID: f.IdentityID}
	if f.ID != 0 {
		row.Model.ID = uint(f.ID)
	}
	if err := s.db.Save(&row).Error; err != nil {
		return f, err
	}
	f.ID = int64(row.ID)
	return f, nil
}

func (s *Store) DeleteFavourite(id int64) error {
	return s.db.Delete(&favouriteRow{}, id).Error
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
