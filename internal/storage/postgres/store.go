package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolRewards/internal/model"
	"poolRewards/internal/storage"
)

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Lister = (*Store)(nil)
)

// Store provides Postgres persistence for pools, shares and replay state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadPool reads the pool row and its reward currencies.
func (s *Store) LoadPool(ctx context.Context, pool model.PoolID) (model.PoolInfo, bool, error) {
	var totalShares string
	row := s.pool.QueryRow(ctx, `SELECT total_shares::text FROM reward_pools WHERE pool_id=$1`, string(pool))
	if err := row.Scan(&totalShares); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolInfo{}, false, nil
		}
		return model.PoolInfo{}, false, err
	}

	info := model.NewPoolInfo()
	amount, err := model.ParseAmount(totalShares)
	if err != nil {
		return model.PoolInfo{}, false, fmt.Errorf("pool %s total_shares: %w", pool, err)
	}
	info.TotalShares = amount

	rows, err := s.pool.Query(ctx, `
		SELECT currency, total_reward::text, total_withdrawn::text
		FROM reward_pool_currencies
		WHERE pool_id=$1
	`, string(pool))
	if err != nil {
		return model.PoolInfo{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var currency, total, withdrawn string
		if err := rows.Scan(&currency, &total, &withdrawn); err != nil {
			return model.PoolInfo{}, false, err
		}
		var entry model.RewardEntry
		if entry.Total, err = model.ParseAmount(total); err != nil {
			return model.PoolInfo{}, false, fmt.Errorf("pool %s currency %s total_reward: %w", pool, currency, err)
		}
		if entry.Withdrawn, err = model.ParseAmount(withdrawn); err != nil {
			return model.PoolInfo{}, false, fmt.Errorf("pool %s currency %s total_withdrawn: %w", pool, currency, err)
		}
		info.Rewards[common.HexToAddress(currency)] = entry
	}
	if err := rows.Err(); err != nil {
		return model.PoolInfo{}, false, err
	}
	return info, true, nil
}

// LoadShare reads one account's share and withdrawn offsets.
func (s *Store) LoadShare(ctx context.Context, pool model.PoolID, account common.Address) (model.ShareRecord, bool, error) {
	var share string
	row := s.pool.QueryRow(ctx, `SELECT share::text FROM reward_shares WHERE pool_id=$1 AND account=$2`, string(pool), account.Hex())
	if err := row.Scan(&share); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ShareRecord{}, false, nil
		}
		return model.ShareRecord{}, false, err
	}

	rec := model.NewShareRecord()
	amount, err := model.ParseAmount(share)
	if err != nil {
		return model.ShareRecord{}, false, fmt.Errorf("share %s/%s: %w", pool, account.Hex(), err)
	}
	rec.Share = amount

	rows, err := s.pool.Query(ctx, `
		SELECT currency, withdrawn::text
		FROM reward_share_withdrawn
		WHERE pool_id=$1 AND account=$2
	`, string(pool), account.Hex())
	if err != nil {
		return model.ShareRecord{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var currency, withdrawn string
		if err := rows.Scan(&currency, &withdrawn); err != nil {
			return model.ShareRecord{}, false, err
		}
		amount, err := model.ParseAmount(withdrawn)
		if err != nil {
			return model.ShareRecord{}, false, fmt.Errorf("share %s/%s withdrawn %s: %w", pool, account.Hex(), currency, err)
		}
		rec.Withdrawn[common.HexToAddress(currency)] = amount
	}
	if err := rows.Err(); err != nil {
		return model.ShareRecord{}, false, err
	}
	return rec, true, nil
}

// Apply writes the changeset in one transaction.
func (s *Store) Apply(ctx context.Context, cs storage.Changeset) error {
	if cs.Empty() {
		return nil
	}
	pool := string(cs.Pool)

	batch := &pgx.Batch{}
	if cs.Info != nil {
		batch.Queue(`
			INSERT INTO reward_pools (pool_id, total_shares, created_at, updated_at)
			VALUES ($1, $2::numeric, now(), now())
			ON CONFLICT (pool_id)
			DO UPDATE SET total_shares = EXCLUDED.total_shares, updated_at = now()
		`, pool, model.FormatAmount(cs.Info.TotalShares))
		batch.Queue(`DELETE FROM reward_pool_currencies WHERE pool_id=$1`, pool)
		for _, currency := range cs.Info.Currencies() {
			entry := cs.Info.Rewards[currency]
			batch.Queue(`
				INSERT INTO reward_pool_currencies (pool_id, currency, total_reward, total_withdrawn)
				VALUES ($1, $2, $3::numeric, $4::numeric)
			`, pool, currency.Hex(), model.FormatAmount(entry.Total), model.FormatAmount(entry.Withdrawn))
		}
	}

	for account, rec := range cs.Shares {
		if rec == nil {
			batch.Queue(`DELETE FROM reward_shares WHERE pool_id=$1 AND account=$2`, pool, account.Hex())
			continue
		}
		batch.Queue(`
			INSERT INTO reward_shares (pool_id, account, share, updated_at)
			VALUES ($1, $2, $3::numeric, now())
			ON CONFLICT (pool_id, account)
			DO UPDATE SET share = EXCLUDED.share, updated_at = now()
		`, pool, account.Hex(), model.FormatAmount(rec.Share))
		batch.Queue(`DELETE FROM reward_share_withdrawn WHERE pool_id=$1 AND account=$2`, pool, account.Hex())
		for _, currency := range rec.Currencies() {
			batch.Queue(`
				INSERT INTO reward_share_withdrawn (pool_id, account, currency, withdrawn)
				VALUES ($1, $2, $3, $4::numeric)
			`, pool, account.Hex(), currency.Hex(), model.FormatAmount(rec.Withdrawn[currency]))
		}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		return br.Close()
	})
}

// Pools lists pool ids in ascending order.
func (s *Store) Pools(ctx context.Context) ([]model.PoolID, error) {
	rows, err := s.pool.Query(ctx, `SELECT pool_id FROM reward_pools ORDER BY pool_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PoolID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, model.PoolID(id))
	}
	return out, rows.Err()
}

// Shares returns every share record of a pool.
func (s *Store) Shares(ctx context.Context, pool model.PoolID) (map[common.Address]model.ShareRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.account, s.share::text, w.currency, w.withdrawn::text
		FROM reward_shares s
		LEFT JOIN reward_share_withdrawn w ON w.pool_id = s.pool_id AND w.account = s.account
		WHERE s.pool_id=$1
	`, string(pool))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[common.Address]model.ShareRecord)
	for rows.Next() {
		var account, share string
		var currency, withdrawn *string
		if err := rows.Scan(&account, &share, &currency, &withdrawn); err != nil {
			return nil, err
		}
		addr := common.HexToAddress(account)
		rec, ok := out[addr]
		if !ok {
			rec = model.NewShareRecord()
			if rec.Share, err = model.ParseAmount(share); err != nil {
				return nil, fmt.Errorf("share %s/%s: %w", pool, account, err)
			}
		}
		if currency != nil && withdrawn != nil {
			amount, err := model.ParseAmount(*withdrawn)
			if err != nil {
				return nil, fmt.Errorf("share %s/%s withdrawn %s: %w", pool, account, *currency, err)
			}
			rec.Withdrawn[common.HexToAddress(*currency)] = amount
		}
		out[addr] = rec
	}
	return out, rows.Err()
}

// LoadState returns the last applied journal sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM rewards_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts the last applied journal sequence for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rewards_state (name, last_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, updated_at = now()
	`, name, int64(seq))
	return err
}
