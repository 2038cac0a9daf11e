// Package store is the persistence layer over gorm. Every query the chat
// engine and the REST handlers need lives here.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the handle for migrations and data copies.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// SetClock replaces the time source used for booking windows and audit stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Page is a cursor page. StartAfter is the id of the last record of the
// previous page.
type Page struct {
	Limit      int
	StartAfter string
}

func (p Page) size() int {
	switch {
	case p.Limit <= 0:
		return defaultPageSize
	case p.Limit > maxPageSize:
		return maxPageSize
	default:
		return p.Limit
	}
}

func active(db *gorm.DB) *gorm.DB {
	return db.Where("is_active IS NULL OR is_active = ?", true)
}

func available(db *gorm.DB) *gorm.DB {
	return db.Where("is_available IS NULL OR is_available = ?", true)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
