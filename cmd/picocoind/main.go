// Command picocoind is the thin cobra entrypoint the node orchestrator
// sits behind. Password prompting and other interactive terminal I/O are,
// per spec §1, an out-of-scope external collaborator; this binary reads
// the password from $PICOCOIN_PASSWORD so the core's Config/Node API is
// exercised the same way a richer interactive wrapper would drive it.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vrecan/death/v3"
	"go.uber.org/zap"

	"github.com/gopicocoin/pico/node"
	"github.com/gopicocoin/pico/pow"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg node.Config
	var transTo, transAct, transArg string

	root := &cobra.Command{
		Use:   "picocoind",
		Short: "PicoCoin node: identity, chain, and gossip in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.TransTo, cfg.TransAct, cfg.TransArg = transTo, transAct, transArg
			return run(cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.UsrPath, "usr", "user.json", "path to this node's identity file")
	flags.StringVar(&cfg.ChainPath, "chain", "blockchain.json", "path to the persisted blockchain")
	flags.StringVar(&cfg.PeersPath, "peers", "peers.json", "path to the persisted peer list")
	flags.BoolVar(&cfg.Mining, "mining", false, "run the mining thread")
	flags.StringVar(&cfg.Adr, "adr", "", "listen/self IPv6 address (default: auto-discovered)")
	flags.IntVar(&cfg.Port, "port", 10000, "listen port")
	flags.BoolVar(&cfg.Bal, "bal", false, "print this node's balance and exit (unless --mining)")
	flags.StringVar(&transTo, "trans-to", "", "recipient public key for a one-shot transaction")
	flags.StringVar(&transAct, "trans-act", "", "one-shot transaction act: ivc, pay, or msg")
	flags.StringVar(&transArg, "trans-arg", "", "one-shot transaction act argument")

	return root
}

func run(cfg node.Config) error {
	password := os.Getenv("PICOCOIN_PASSWORD")
	if password == "" {
		return fmt.Errorf("picocoind: PICOCOIN_PASSWORD must be set")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("picocoind: build logger: %w", err)
	}
	defer log.Sync()

	n, err := node.Open(cfg, password, log, pow.TrialFactorizer{})
	if err != nil {
		return fmt.Errorf("picocoind: open node: %w", err)
	}

	// --bal and --trans are one-shot operations: do the thing, then exit
	// unless --mining was also passed (spec §6, SPEC_FULL.md §C.2).
	if cfg.Bal {
		fmt.Printf("%.12f\n", n.Balance())
		if !cfg.Mining {
			return nil
		}
	}
	if cfg.TransTo != "" {
		act, err := node.ParseAct(cfg.TransAct, cfg.TransArg)
		if err != nil {
			return err
		}
		if _, err := n.SendTransaction(cfg.TransTo, act); err != nil {
			return err
		}
		if !cfg.Mining {
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- n.Net.Listen(ctx, fmt.Sprintf("[%s]:%d", cfg.Adr, cfg.Port), n) }()

	if cfg.Mining {
		go func() {
			if err := n.RunMining(ctx); err != nil {
				log.Error("mining loop stopped", zap.Error(err))
			}
		}()
	}

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(func() {
		cancel()
		log.Info("shutting down")
	})

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
