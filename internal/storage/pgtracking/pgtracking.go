package pgtracking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// OutboxTopics enables the transactional outbox: every write also stores the
// matching domain event for the relay.
type OutboxTopics struct {
	Orders    string
	Locations string
}

type Option func(*Storage)

func WithOutbox(topics OutboxTopics) Option {
	return func(s *Storage) {
		s.outbox = &topics
	}
}

type Storage struct {
	db     *pgxpool.Pool
	outbox *OutboxTopics
}

// New connects to PostgreSQL and applies pending migrations.
// connString must be a postgres:// URL.
func New(connString string, opts ...Option) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	for _, opt := range opts {
		opt(s)
	}

	if err := Migrate(connString); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.Ping(ctx), "ping pg")
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// inTx runs fn in a transaction; the connection goes back to the pool on any exit path.
func (s *Storage) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
