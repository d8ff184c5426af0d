// Package config declares the small persisted-entity interfaces 
// calls for (identities, servers, auto-joins, contacts, ignore, auto-mode,
// connection-scripts, macros) without assuming any particular backing
// format -- the engine depends only on these interfaces, never on a
// concrete store, per "read/written by the core's collaborators"
// framing. Two reference adapters ship alongside: config/yamlstore for the
// static, hand-edited entities and config/sqlstore for the entities that
// mutate at runtime.
package config

import (
	"github.com/coldwire/irc/macro"
	"github.com/coldwire/irc/watch"
)

// Identity is one saved identity, : "identities (nickname +
// alternates + real name + user name + invisible?)".
type Identity struct {
	ID int64
	Nickname string
	Alternates []string
	Realname string
	Username string
	Invisible bool
}

// PortRange is an inclusive port range, per "Randomised port
// selection" (see model.FavouritesBridge).
type PortRange struct {
	Low, High int
}

// Server is one saved server/network entry, : "servers
// (network, name, address, port-ranges, password?, tls?)".
type Server struct {
	ID int64
	Network string
	Name string
	Address string
	PortRanges []PortRange
	Password string
	TLS bool
}

// IdentityStore persists Identity rows.
type IdentityStore interface {
	Identities() ([]Identity, error)
	SaveIdentity(Identity) (Identity, error)
	DeleteIdentity(id int64) error
}

// ServerStore persists Server rows.
type ServerStore interface {
	Servers() ([]Server, error)
	SaveServer(Server) (Server, error)
	DeleteServer(id int64) error
}

// MacroStore persists macro.Macro rows.
type MacroStore interface {
	Macros() ([]macro.Macro, error)
	SaveMacro(macro.Macro) error
	DeleteMacro(name string) error
}

// AutoJoinStore persists watch.AutoJoinEntry rows.
type AutoJoinStore interface {
	AutoJoins() ([]watch.AutoJoinEntry, error)
	SaveAutoJoin(watch.AutoJoinEntry) error
	DeleteAutoJoin(watch.AutoJoinEntry) error
}

// ContactStore persists watch.ContactEntry rows.
type ContactStore interface {
	Contacts() ([]*watch.ContactEntry, error)
	SaveContact(*watch.ContactEntry) error
	DeleteContact(name string) error
}

// IgnoreStore persists watch.IgnoreEntry rows.
type IgnoreStore interface {
	IgnoreEntries() ([]watch.IgnoreEntry, error)
	SaveIgnore(watch.IgnoreEntry) error
	DeleteIgnore(watch.IgnoreEntry) error
}

// AutoModeStore persists watch.AutoModeEntry rows.
type AutoModeStore interface {
	AutoModeEntries() ([]watch.AutoModeEntry, error)
	SaveAutoMode(watch.AutoModeEntry) error
	DeleteAutoMode(watch.AutoModeEntry) error
}

// ConnectionScriptStore persists watch.ConnectionScript rows.
type ConnectionScriptStore interface {
	ConnectionScripts() ([]*watch.ConnectionScript, error)
	SaveConnectionScript(*watch.ConnectionScript) error
	DeleteConnectionScript(serverKey, nickname string) error
}

// Favourite is one saved favourite-server shortcut, per 
// favourites bridge: an identity plus a server, ready to hand to the
// connection manager.
type Favourite struct {
	ID int64
	Name string
	ServerID int64
	IdentityID int64
}

// FavouriteStore persists Favourite rows.
type FavouriteStore interface {
	Favourites() ([]Favourite, error)
	SaveFavourite(Favourite) (Favourite, error)
	DeleteFavourite(id int64) error
}
