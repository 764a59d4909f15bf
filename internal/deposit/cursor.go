package deposit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cursor is how far the deposit scan has progressed on one chain.
type Cursor struct {
	ChainID   uint64    `json:"chain_id"`
	LastBlock uint64    `json:"last_block"`
	LastSeq   uint64    `json:"last_seq,omitempty"`
	Deposits  uint64    `json:"deposits"`
	UpdatedAt time.Time `json:"updated_at"`
}

// next returns the cursor after a scanned range that emitted ops with seqs
// up to lastSeq.
func (c Cursor) next(to uint64, emitted int, lastSeq uint64) Cursor {
	c.LastBlock = to
	c.Deposits += uint64(emitted)
	if lastSeq > c.LastSeq {
		c.LastSeq = lastSeq
	}
	return c
}

// CursorFile keeps the cursor in a JSON file. An empty path disables it.
type CursorFile struct {
	Path  string
	Clock clockwork.Clock
}

func (f CursorFile) Load() (Cursor, bool, error) {
	if f.Path == "" {
		return Cursor{}, false, nil
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Cursor{}, false, nil
	}
	if err != nil {
		return Cursor{}, false, fmt.Errorf("read cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, false, fmt.Errorf("parse cursor %s: %w", f.Path, err)
	}
	return c, true, nil
}

func (f CursorFile) Save(c Cursor) error {
	if f.Path == "" {
		return nil
	}
	clock := f.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c.UpdatedAt = clock.Now().UTC()

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create cursor dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return os.Rename(tmp, f.Path)
}
