package model

import (
	"math/rand"
	"testing"

	"github.com/coldwire/irc/config"
)

func TestFavouritesBridgeResolvesWithinRange(t *testing.T) {
	b := NewFavouritesBridge(rand.NewSource(1))
	req := FavouriteRequest{
		Server: config.Server{
			Address: "irc.example.org",
			PortRanges: []config.PortRange{{Low: 6660, High: 6669}, {Low: 7000, High: 7000}},
		},
		Identity: config.Identity{Nickname: "bob"},
		Channel: "#go",
	}
	for i := 0; i < 50; i++ {
		rc, err := b.Resolve(req)
		if err != nil {
			t.Fatal(err)
		}
		inFirst := rc.Port >= 6660 && rc.Port <= 6669
		inSecond := rc.Port == 7000
		if !inFirst && !inSecond {
			t.Fatalf("port %d out of configured ranges", rc.Port)
		}
		if rc.Channel != "#go" || rc.Identity.Nickname != "bob" {
			t.Fatalf("unexpected resolved connect: %+v", rc)
		}
	}
}

func TestFavouritesBridgeNoPortRanges(t *testing.T) {
	b := NewFavouritesBridge(rand.NewSource(1))
	_, err := b.Resolve(FavouriteRequest{Server: config.Server{Address: "irc.example.org"}})
	if err == nil {
		t.Fatal("expected an error when no port ranges are configured")
	}
}
