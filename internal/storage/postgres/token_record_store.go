package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// TokenRecordStore implements storage.TokenRecordStore using PostgreSQL.
type TokenRecordStore struct {
	pool *Pool
}

// NewTokenRecordStore creates a new TokenRecordStore.
func NewTokenRecordStore(pool *Pool) *TokenRecordStore {
	return &TokenRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if mint_address exists.
func (s *TokenRecordStore) Insert(ctx context.Context, r *domain.TokenRecord) (err error) {
	defer observeQuery("token_record_insert", time.Now(), &err)

	query := `
		INSERT INTO token_records (
			mint_address, name, symbol, decimals, supply,
			creator_address, creator_token_account, mint_signature,
			mint_authority_none, freeze_authority_none, partial_failure, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		r.MintAddress,
		r.Name,
		r.Symbol,
		int16(r.Decimals),
		int64(r.Supply),
		r.CreatorAddress,
		r.CreatorTokenAccount,
		r.MintSignature,
		r.MintAuthorityNone,
		r.FreezeAuthorityNone,
		r.PartialFailure,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token record: %w", err)
	}
	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByMint(ctx context.Context, mintAddress string) (_ *domain.TokenRecord, err error) {
	defer observeQuery("token_record_get_by_mint", time.Now(), &err)

	query := `
		SELECT mint_address, name, symbol, decimals, supply,
			creator_address, creator_token_account, mint_signature,
			mint_authority_none, freeze_authority_none, partial_failure, created_at
		FROM token_records
		WHERE mint_address = $1
	`

	row := s.pool.QueryRow(ctx, query, mintAddress)
	r, err := scanTokenRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token record by mint: %w", err)
	}
	return r, nil
}

// GetByCreator retrieves all records for a creator wallet, newest first.
func (s *TokenRecordStore) GetByCreator(ctx context.Context, creatorAddress string) (_ []*domain.TokenRecord, err error) {
	defer observeQuery("token_record_get_by_creator", time.Now(), &err)

	query := `
		SELECT mint_address, name, symbol, decimals, supply,
			creator_address, creator_token_account, mint_signature,
			mint_authority_none, freeze_authority_none, partial_failure, created_at
		FROM token_records
		WHERE creator_address = $1
		ORDER BY created_at DESC, mint_address ASC
	`

	rows, err := s.pool.Query(ctx, query, creatorAddress)
	if err != nil {
		return nil, fmt.Errorf("get token records by creator: %w", err)
	}
	defer rows.Close()

	return scanTokenRecords(rows)
}

// scanTokenRecord scans a single row into a TokenRecord.
func scanTokenRecord(row pgx.Row) (*domain.TokenRecord, error) {
	var r domain.TokenRecord
	var decimals int16
	var supply int64

	err := row.Scan(
		&r.MintAddress,
		&r.Name,
		&r.Symbol,
		&decimals,
		&supply,
		&r.CreatorAddress,
		&r.CreatorTokenAccount,
		&r.MintSignature,
		&r.MintAuthorityNone,
		&r.FreezeAuthorityNone,
		&r.PartialFailure,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Decimals = uint8(decimals)
	r.Supply = uint64(supply)
	return &r, nil
}

// scanTokenRecords scans multiple rows into a slice of TokenRecord.
func scanTokenRecords(rows pgx.Rows) ([]*domain.TokenRecord, error) {
	var records []*domain.TokenRecord

	for rows.Next() {
		var r domain.TokenRecord
		var decimals int16
		var supply int64

		err := rows.Scan(
			&r.MintAddress,
			&r.Name,
			&r.Symbol,
			&decimals,
			&supply,
			&r.CreatorAddress,
			&r.CreatorTokenAccount,
			&r.MintSignature,
			&r.MintAuthorityNone,
			&r.FreezeAuthorityNone,
			&r.PartialFailure,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token record row: %w", err)
		}

		r.Decimals = uint8(decimals)
		r.Supply = uint64(supply)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token record rows: %w", err)
	}

	return records, nil
}
