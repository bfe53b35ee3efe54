// Package node implements C9: the orchestrator that owns identity, chain,
// net, and (when mining) the mining loop, serializing every state mutation
// behind one mutex (spec §4.9, §5). Persistence mirrors the teacher's
// load-or-create pattern (wallet/wallets.go's LoadFile/SaveFile) but swaps
// gob for pretty-printed JSON and adds the atomic write-replace spec §6
// requires.
package node

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gopicocoin/pico/picoerr"
)

// saveJSON pretty-prints v and writes it to path atomically: write to a
// sibling temp file, then rename over the target (spec §6 "Persisted
// atomically on each mutation (write-replace)"). Persistence failures are
// the one class of error this package lets abort the process (spec §7).
func saveJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("node: %w: encode %s: %w", picoerr.IOError, path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("node: %w: create temp for %s: %w", picoerr.IOError, path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("node: %w: write %s: %w", picoerr.IOError, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("node: %w: close %s: %w", picoerr.IOError, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("node: %w: rename into %s: %w", picoerr.IOError, path, err)
	}
	return nil
}

func loadJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("node: %w: read %s: %w", picoerr.IOError, path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("node: %w: decode %s: %w", picoerr.SerdeError, path, err)
	}
	return true, nil
}
