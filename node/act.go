package node

import (
	"fmt"
	"strconv"

	"github.com/gopicocoin/pico/tx"
)

// ParseAct builds the Act payload for `--trans to act args` (spec §6):
// act selects the tag, arg is its single argument rendered as a string
// the way CLI flags always are.
func ParseAct(act, arg string) (tx.Act, error) {
	switch act {
	case "ivc":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("node: --trans ivc wants an integer, got %q: %w", arg, err)
		}
		return tx.Invoice{Ivc: n}, nil
	case "pay":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("node: --trans pay wants an integer, got %q: %w", arg, err)
		}
		return tx.Payment{Pay: n}, nil
	case "msg":
		return tx.Message{Msg: arg}, nil
	default:
		return nil, fmt.Errorf("node: unknown --trans act %q (want ivc, pay, or msg)", act)
	}
}
