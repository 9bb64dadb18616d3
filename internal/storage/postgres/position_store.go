package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id::text, owner, liquidity::text, tick_lower, tick_upper,
	amount_token::text, amount_base::text, created_at
`

// Insert adds a new position. Returns ErrDuplicateKey if the identifier is
// already registered.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.Owner.IsZero() || p.Liquidity == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (
			position_id, owner, liquidity, tick_lower, tick_upper, amount_token, amount_base, created_at
		) VALUES ($1::numeric, $2, $3::numeric, $4, $5, $6::numeric, $7::numeric, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		positionIDToString(p.ID),
		p.Owner.String(),
		amountToString(p.Liquidity),
		p.TickLower,
		p.TickUpper,
		amountToString(p.AmountToken),
		amountToString(p.AmountBase),
		p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position. Returns ErrNotFound if not registered.
func (s *PositionStore) GetByID(ctx context.Context, positionID uint64) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1::numeric`

	row := s.pool.QueryRow(ctx, query, positionIDToString(positionID))
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetByOwner retrieves all open positions of an owner, ordered by ID ASC.
func (s *PositionStore) GetByOwner(ctx context.Context, owner domain.Address) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE owner = $1 ORDER BY position_id ASC`

	rows, err := s.pool.Query(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("get positions by owner: %w", err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// GetAll retrieves all open positions, ordered by ID ASC.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY position_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// Delete removes a position. Returns ErrNotFound if not registered.
func (s *PositionStore) Delete(ctx context.Context, positionID uint64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE position_id = $1::numeric`, positionIDToString(positionID))
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var (
		id          string
		owner       string
		liquidity   string
		tickLower   int32
		tickUpper   int32
		amountToken string
		amountBase  string
		createdAt   int64
	)
	if err := row.Scan(&id, &owner, &liquidity, &tickLower, &tickUpper, &amountToken, &amountBase, &createdAt); err != nil {
		return nil, err
	}

	liq, err := amountFromString(liquidity)
	if err != nil {
		return nil, err
	}
	amtToken, err := amountFromString(amountToken)
	if err != nil {
		return nil, err
	}
	amtBase, err := amountFromString(amountBase)
	if err != nil {
		return nil, err
	}
	pid, err := positionIDFromString(id)
	if err != nil {
		return nil, err
	}

	return &domain.Position{
		ID:          pid,
		Owner:       domain.Address(owner),
		Liquidity:   liq,
		TickLower:   tickLower,
		TickUpper:   tickUpper,
		AmountToken: amtToken,
		AmountBase:  amtBase,
		CreatedAt:   createdAt,
	}, nil
}

func collectPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var result []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return result, nil
}
