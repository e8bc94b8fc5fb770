package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store owns the database handle and is the only place transactions are opened.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// DB returns a handle bound to ctx for reads outside a transaction.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// InTx runs fn in one transaction. Any error rolls everything back.
// Business errors are returned unchanged; anything else is logged under op
// and surfaced as KindUnexpected.
func (s *Store) InTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	return s.wrap(op, err)
}

// wrap converts storage errors of read paths the same way InTx does.
func (s *Store) wrap(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	s.log.Error("storage operation failed", zap.String("op", op), zap.Error(err))
	return Unexpected(err)
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
