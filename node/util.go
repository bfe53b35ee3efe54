package node

import (
	"time"

	"github.com/gopicocoin/pico/chain"
	"github.com/gopicocoin/pico/identity"
	"github.com/gopicocoin/pico/netp"
	"github.com/gopicocoin/pico/serial"
)

const chainVersion = "1"

// nowUTC stamps a block or transaction with the current time in the wire
// format spec §6 names ("YYYY-MM-DD HH:MM:SS.ffffff").
func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05.000000")
}

func pyFloat(v float64) serial.PyFloat {
	return serial.PyFloat(v)
}

func loadOrCreateIdentity(path, password string) (*identity.Identity, error) {
	var id identity.Identity
	found, err := loadJSON(path, &id)
	if err != nil {
		return nil, err
	}
	if found {
		if err := identity.CheckPassword(&id, password); err != nil {
			return nil, err
		}
		return &id, nil
	}
	created, err := identity.Create(password)
	if err != nil {
		return nil, err
	}
	if err := saveJSON(path, created); err != nil {
		return nil, err
	}
	return created, nil
}

func loadOrCreateChain(path string) (*chain.Blockchain, error) {
	var bc chain.Blockchain
	found, err := loadJSON(path, &bc)
	if err != nil {
		return nil, err
	}
	if found {
		bc.AfterLoad()
		return &bc, nil
	}
	created, err := chain.New(chainVersion)
	if err != nil {
		return nil, err
	}
	if err := saveJSON(path, created); err != nil {
		return nil, err
	}
	return created, nil
}

// defaultSeedPeers mirrors the reference implementation's two literal
// IPv6 seeds (SPEC_FULL.md §C.3), giving a freshly started node something
// to gossip to before any peer file exists.
var defaultSeedPeers = []netp.Peer{
	{IPv6: "2001:4860:4860::8888", Port: 10000},
	{IPv6: "2001:4860:4860::8844", Port: 10000},
}

func loadOrCreatePeers(path string, self netp.Peer) ([]netp.Peer, error) {
	var peers []netp.Peer
	found, err := loadJSON(path, &peers)
	if err != nil {
		return nil, err
	}
	if found {
		return peers, nil
	}
	seeded := make([]netp.Peer, 0, len(defaultSeedPeers))
	for _, p := range defaultSeedPeers {
		if p != self {
			seeded = append(seeded, p)
		}
	}
	if err := saveJSON(path, seeded); err != nil {
		return nil, err
	}
	return seeded, nil
}
