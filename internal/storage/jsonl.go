package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"poolRewards/internal/model"
)

var (
	_ OperationSink = (*JsonlStorage)(nil)
	_ PayoutSink    = (*JsonlStorage)(nil)
)

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path  string
	clock clockwork.Clock
	mu    sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path, clock: clockwork.NewRealClock()}
}

// WithClock replaces the clock used to stamp payouts.
func (s *JsonlStorage) WithClock(clock clockwork.Clock) *JsonlStorage {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Path returns the file the storage appends to.
func (s *JsonlStorage) Path() string {
	return s.path
}

// PutOperationBatch appends journal operations as JSON lines.
func (s *JsonlStorage) PutOperationBatch(ops []model.Operation) error {
	records := make([]any, 0, len(ops))
	for _, op := range ops {
		records = append(records, op)
	}
	return s.append(records)
}

// PutPayoutBatch appends payouts as JSON lines. Payouts without an id or a
// timestamp get a fresh uuid and the current time.
func (s *JsonlStorage) PutPayoutBatch(payouts []model.Payout) error {
	now := s.clock.Now().UTC()
	records := make([]any, 0, len(payouts))
	for _, payout := range payouts {
		if payout.ID == "" {
			payout.ID = uuid.NewString()
		}
		if payout.PaidAt.IsZero() {
			payout.PaidAt = now
		}
		records = append(records, payout)
	}
	return s.append(records)
}

// PutOperationErrorBatch appends rejected journal operations as JSON lines.
func (s *JsonlStorage) PutOperationErrorBatch(errs []model.OperationError) error {
	records := make([]any, 0, len(errs))
	for _, e := range errs {
		records = append(records, e)
	}
	return s.append(records)
}

func (s *JsonlStorage) append(records []any) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
