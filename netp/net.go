package netp

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// dialTimeout bounds outbound connects (spec §4.8 "Connect timeout is 5 s").
const dialTimeout = 5 * time.Second

// readTimeout bounds how long reading an inbound connection's whole frame
// may take, counted from accept, before the connection is dropped; absent
// from the reference implementation, added here to
// avoid zombie peers (spec §9 open question).
const readTimeout = 10 * time.Second

// Dispatcher reacts to a received Envelope's fields. Handlers run in the
// fixed order peers, block, trans (spec §4.8 "matching handlers are
// invoked in a deterministic order").
type Dispatcher interface {
	HandlePeers(peers []Peer)
	HandleBlock(env Envelope)
	HandleTrans(env Envelope)
}

// Net is this node's gossip endpoint: its own address, its peer set, and
// the listening socket (spec §3 "Net").
type Net struct {
	Self  Peer
	Peers *PeerSet
	log   *zap.Logger
}

// New returns a Net bound to self with an empty peer set.
func New(self Peer, log *zap.Logger) *Net {
	if log == nil {
		log = zap.NewNop()
	}
	return &Net{Self: self, Peers: NewPeerSet(self), log: log}
}

// DiscoverSelfIPv6 opens a UDP socket toward a well-known public address
// and reads back the local address the OS chose for it, without sending
// any traffic (spec §6 "Self-IPv6 discovered by opening a UDP socket
// toward 2001:4860:4860::8888:80").
func DiscoverSelfIPv6() (string, error) {
	conn, err := net.Dial("udp6", "[2001:4860:4860::8888]:80")
	if err != nil {
		return "", fmt.Errorf("netp: discover self ipv6: %w", err)
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("netp: unexpected local addr type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// Send broadcasts env to every known peer except Self, best-effort: a
// per-peer dial/write failure is logged and swallowed, never propagated
// (spec §4.8 "Per-peer errors... are swallowed").
func (n *Net) Send(env Envelope) {
	frame, err := EncodeFrame(env)
	if err != nil {
		n.log.Error("encode outbound frame", zap.Error(err))
		return
	}
	for _, p := range n.Peers.All() {
		if p == n.Self {
			continue
		}
		n.sendTo(p, frame)
	}
}

func (n *Net) sendTo(p Peer, frame []byte) {
	addr := net.JoinHostPort(p.IPv6, fmt.Sprint(p.Port))
	conn, err := net.DialTimeout("tcp6", addr, dialTimeout)
	if err != nil {
		n.log.Debug("dial peer failed", zap.String("peer", addr), zap.Error(err))
		return
	}
	defer conn.Close()
	if _, err := conn.Write(frame); err != nil {
		n.log.Debug("write to peer failed", zap.String("peer", addr), zap.Error(err))
	}
}

// Listen accepts connections on addr until ctx is cancelled, handling
// each inline on the accepting goroutine (spec §4.8, §5 "NetThread
// (accept loop, per-connection inline handling)").
func (n *Net) Listen(ctx context.Context, addr string, dispatch Dispatcher) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp6", addr)
	if err != nil {
		return fmt.Errorf("netp: listen %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.log.Warn("accept failed", zap.Error(err))
			continue
		}
		n.handleConn(conn, dispatch)
	}
}

func (n *Net) handleConn(conn net.Conn, dispatch Dispatcher) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	env, err := DecodeFrame(conn)
	if err != nil {
		n.log.Debug("drop malformed frame", zap.Error(err))
		return
	}
	n.Dispatch(env, dispatch)
}

// Dispatch invokes dispatch's handlers for whichever of env's fields are
// present, in the fixed peers/block/trans order (spec §4.8).
func (n *Net) Dispatch(env Envelope, dispatch Dispatcher) {
	if len(env.Peers) > 0 {
		dispatch.HandlePeers(env.Peers)
	}
	if env.Block != nil {
		dispatch.HandleBlock(env)
	}
	if env.Trans != nil {
		dispatch.HandleTrans(env)
	}
}
