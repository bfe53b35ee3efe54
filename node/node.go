package node

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gopicocoin/pico/block"
	"github.com/gopicocoin/pico/chain"
	"github.com/gopicocoin/pico/identity"
	"github.com/gopicocoin/pico/miner"
	"github.com/gopicocoin/pico/netp"
	"github.com/gopicocoin/pico/pow"
	"github.com/gopicocoin/pico/tx"
)

// Config holds one field per picocoind flag (spec §6 "CLI surface",
// SPEC_FULL.md §C.1): the reference CLI's flags, with its `--trans to act
// args` triple split into three fields, plus Port.
type Config struct {
	UsrPath   string
	ChainPath string
	PeersPath string
	Mining    bool
	Adr       string // listen host override; defaults to discovered self IPv6
	Port      int

	// Bal, when true and Mining is false, prints the caller's balance and
	// exits (spec §6 "--bal").
	Bal bool

	// Trans* populate a one-shot signed transaction broadcast; when
	// TransTo is non-empty and Mining is false, the node sends it and
	// exits (spec §6 "--trans to act args").
	TransTo  string
	TransAct string // one of "ivc", "pay", "msg"
	TransArg string
}

// waitPoll is how often RunMining polls for a submitted block's terminal
// state (accepted or evicted) before moving on to its successor.
const waitPoll = 200 * time.Millisecond

// Node is the C9 orchestrator: identity, chain, net, and the pending
// transaction cache, all behind Mu (spec §5 "a single process-wide
// mutex").
type Node struct {
	Mu sync.Mutex

	Cfg      Config
	Identity *identity.Identity
	Password string
	Chain    *chain.Blockchain
	Net      *netp.Net

	// TransCache holds signed, not-yet-placed transactions a mining node
	// has received or produced; drained into the next block under
	// construction (spec §4.9, §5).
	TransCache []*tx.Transaction

	Factorizer pow.Factorizer
	Log        *zap.Logger
}

// Open loads or creates the identity, chain, and peer list at the paths
// named in cfg, discovering (or using cfg.Adr as) this node's own address
// (spec §4.9, SPEC_FULL.md §C.4 "self-peer registration").
func Open(cfg Config, password string, log *zap.Logger, factorizer pow.Factorizer) (*Node, error) {
	if log == nil {
		log = zap.NewNop()
	}

	id, err := loadOrCreateIdentity(cfg.UsrPath, password)
	if err != nil {
		return nil, err
	}

	bc, err := loadOrCreateChain(cfg.ChainPath)
	if err != nil {
		return nil, err
	}

	selfIPv6 := cfg.Adr
	if selfIPv6 == "" {
		discovered, err := netp.DiscoverSelfIPv6()
		if err != nil {
			log.Warn("self ipv6 discovery failed, falling back to loopback", zap.Error(err))
			discovered = "::1"
		}
		selfIPv6 = discovered
	}
	port := cfg.Port
	if port == 0 {
		port = 10000
	}
	self := netp.Peer{IPv6: selfIPv6, Port: port}

	net := netp.New(self, log)
	peers, err := loadOrCreatePeers(cfg.PeersPath, self)
	if err != nil {
		return nil, err
	}
	net.Peers.Union(peers)
	net.Peers.Union([]netp.Peer{self})

	return &Node{
		Cfg:        cfg,
		Identity:   id,
		Password:   password,
		Chain:      bc,
		Net:        net,
		Factorizer: factorizer,
		Log:        log,
	}, nil
}

func (n *Node) persistChain() error {
	return saveJSON(n.Cfg.ChainPath, n.Chain)
}

func (n *Node) persistPeers() error {
	return saveJSON(n.Cfg.PeersPath, n.Net.Peers.All())
}

// Balance returns this node's own identity's chain balance (spec §6
// "--bal").
func (n *Node) Balance() float64 {
	n.Mu.Lock()
	defer n.Mu.Unlock()
	return n.Chain.Balance(n.Identity.Pub)
}

// SendTransaction builds, signs, and broadcasts a transaction from this
// node's identity to to carrying act, mirroring `--trans to act args`
// (spec §6).
func (n *Node) SendTransaction(to string, act tx.Act) (*tx.Transaction, error) {
	n.Mu.Lock()
	defer n.Mu.Unlock()

	from := n.Identity.Pub
	t, err := tx.New(&from, to, act)
	if err != nil {
		return nil, err
	}
	if err := t.Sign(n.Identity, n.Password); err != nil {
		return nil, err
	}
	n.Net.Send(netp.Envelope{Trans: t})
	return t, nil
}

// HandlePeers implements netp.Dispatcher (spec §4.8 "peers").
func (n *Node) HandlePeers(peers []netp.Peer) {
	n.Mu.Lock()
	defer n.Mu.Unlock()

	if !n.Net.Peers.Union(peers) {
		return
	}
	if err := n.persistPeers(); err != nil {
		n.Log.Fatal("persist peers", zap.Error(err))
		return
	}
	n.Net.Send(netp.Envelope{Peers: n.Net.Peers.All()})
}

// HandleBlock implements netp.Dispatcher (spec §4.8 "block").
func (n *Node) HandleBlock(env netp.Envelope) {
	n.Mu.Lock()
	defer n.Mu.Unlock()
	n.submitBlockLocked(env.Block, true)
}

// submitBlockLocked runs the confirmation protocol for b. When rebroadcast
// is true and the block at least passes check_block, it is re-announced
// to amplify confirmations across the network even before it crosses the
// acceptance threshold (spec §4.8 "re-broadcast to amplify confirmations").
func (n *Node) submitBlockLocked(b *block.Block, rebroadcast bool) (accepted bool, err error) {
	accepted, confirms, err := n.Chain.AddBlock(b)
	if err != nil {
		if !chain.IsAccepted(err) {
			n.Log.Warn("block rejected", zap.String("hash", shortHash(b.Hash)), zap.Error(err))
		}
		return false, err
	}
	n.Log.Info("block confirmed", zap.String("hash", shortHash(b.Hash)), zap.Int("confirms", confirms))
	if rebroadcast {
		n.Net.Send(netp.Envelope{Block: b})
	}
	if accepted {
		if err := n.persistChain(); err != nil {
			n.Log.Fatal("persist chain", zap.Error(err))
		}
	}
	return accepted, nil
}

// HandleTrans implements netp.Dispatcher (spec §4.8 "trans"): queues the
// transaction for inclusion in this mining node's next block.
func (n *Node) HandleTrans(env netp.Envelope) {
	n.Mu.Lock()
	defer n.Mu.Unlock()
	if !n.Cfg.Mining {
		return
	}
	if hashOK, _ := env.Trans.VerifySelf(); !hashOK {
		n.Log.Debug("dropping trans with bad hash", zap.String("hash", shortHash(env.Trans.Hash)))
		return
	}
	n.TransCache = append(n.TransCache, env.Trans)
}

// RunMining drives the mining loop until ctx is cancelled (spec §4.9, §5
// "MineThread (tight PoW loop)"). Every iteration builds atop the chain's
// current tip, drains TransCache into the draft block under Mu, then
// drops Mu across the factoring-bound Mine call so inbound network
// handling is never stalled by it (spec §5).
func (n *Node) RunMining(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		draft, err := n.startDraftLocked()
		if err != nil {
			return err
		}

		if err := miner.Mine(ctx, draft, n.Factorizer); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.Log.Error("mining round failed", zap.Error(err))
			continue
		}

		n.finishDraftLocked(draft)
		n.waitForTerminal(ctx, draft.Prev, draft.Hash)
	}
}

func (n *Node) startDraftLocked() (*block.Block, error) {
	n.Mu.Lock()
	defer n.Mu.Unlock()

	var prev *string
	if last := n.Chain.LastBlock(); last != nil {
		h := last.Hash
		prev = &h
	}
	hDiff := n.Chain.ExpectedHDiff(prev)
	draft, err := block.New(prev, hDiff, n.Identity.Pub, nowUTC())
	if err != nil {
		return nil, err
	}
	for _, t := range n.TransCache {
		if err := draft.AddTrans(t); err != nil {
			return nil, err
		}
	}
	n.TransCache = nil
	return draft, nil
}

func (n *Node) finishDraftLocked(draft *block.Block) {
	n.Mu.Lock()
	defer n.Mu.Unlock()

	accepted, err := n.submitBlockLocked(draft, true)
	if err != nil && !chain.IsAccepted(err) {
		return
	}
	_ = accepted

	reward := block.RewardFor(draft.HDiff)
	rewardTx, err := tx.New(nil, n.Identity.Pub, tx.Reward{Rew: pyFloat(reward), Blk: draft.Hash})
	if err != nil {
		n.Log.Error("build reward transaction", zap.Error(err))
		return
	}
	n.TransCache = append(n.TransCache, rewardTx)
	n.Net.Send(netp.Envelope{Trans: rewardTx})
}

func (n *Node) waitForTerminal(ctx context.Context, prev *string, hash string) {
	for {
		n.Mu.Lock()
		_, accepted := n.Chain.GetBlock(hash)
		confirms := n.Chain.GetBlockConfirms(prev, hash)
		n.Mu.Unlock()

		if accepted || confirms == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(waitPoll):
		}
	}
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
