package model

import (
	"fmt"
	"math/rand"

	"github.com/coldwire/irc/config"
)

// FavouriteRequest is what a UI hands the bridge when the user opens a
// favourite: the favourite's saved (server, identity) pair plus, for a
// channel favourite, the channel to join once registered.
type FavouriteRequest struct {
	Favourite config.Favourite
	Server config.Server
	Identity config.Identity
	Channel string // empty for a plain-connect favourite
}

// ResolvedConnect is a ready-to-dial tuple: an address with one concrete
// port chosen from the server's configured ranges, plus the identity and
// optional password to register with.
type ResolvedConnect struct {
	Address string
	Port int
	Identity config.Identity
	Password string
	Channel string
}

// FavouritesBridge turns a FavouriteRequest into a ResolvedConnect, per
// supplemented favourites-bridge feature, grounded on
// favourite_requester.cpp's random port selection from a server's
// inclusive port ranges.
type FavouritesBridge struct {
	rand *rand.Rand
}

// NewFavouritesBridge constructs a bridge using src for port selection
// (pass a seeded *rand.Rand for deterministic tests).
func NewFavouritesBridge(src rand.Source) *FavouritesBridge {
	return &FavouritesBridge{rand: rand.New(src)}
}

// Resolve picks a random port from req.Server's configured ranges and
// returns the tuple a connection manager needs to dial it, per
// favourite_requester.cpp's add_request: a favourite names a server and
// identity; the bridge is responsible only for turning that into something
// dial-able, not for the queueing/retry policy the connection manager
// itself owns.
func (b *FavouritesBridge) Resolve(req FavouriteRequest) (ResolvedConnect, error) {
	port, err := b.pickPort(req.Server.PortRanges)
	if err != nil {
		return ResolvedConnect{}, err
	}
	return ResolvedConnect{
		Address: req.Server.Address,
		Port: port,
		Identity: req.Identity,
		Password: req.Server.Password,
		Channel: req.Channel,
	}, nil
}

// pickPort chooses uniformly at random among every port across all of
// ranges, matching the original's "count candidates, then pick the Nth"
// two-pass approach rather than weighting by range width.
func (b *FavouritesBridge) pickPort(ranges []config.PortRange) (int, error) {
	total := 0
	for _, r := range ranges {
		if r.High < r.Low {
			continue
		}
		total += r.High - r.Low + 1
	}
	if total == 0 {
		return 0, fmt.Errorf("model: server has no usable port ranges")
	}
	n := b.rand.Intn(total)
	for _, r := range ranges {
		if r.High < r.Low {
			continue
		}
		width := r.High - r.Low + 1
		if n < width {
			return r.Low + n, nil
		}
		n -= width
	}
	panic("unreachable")
}
