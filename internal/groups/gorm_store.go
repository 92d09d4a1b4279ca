package groups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/db"
	"gorm.io/gorm"
)

const defaultCASAttempts = 8

// GormStore persists room snapshots; members and items live in JSON columns.
type GormStore struct {
	db       *gorm.DB
	attempts int
}

// NewGormStore builds a store bound to conn.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn, attempts: defaultCASAttempts}
}

func (s *GormStore) Create(ctx context.Context, room *Room) error {
	if room.Version == 0 {
		room.Version = 1
	}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *GormStore) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check room code: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) Get(ctx context.Context, code string) (*Room, error) {
	var room Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	room.computeSubtotal()
	return &room, nil
}

func (s *GormStore) Update(ctx context.Context, code string, mutate Mutation) (*Room, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		current, err := s.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		next, err := applyMutation(current, mutate)
		if errors.Is(err, errUnchanged) {
			return current, nil
		}
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = time.Now().UTC()

		res := s.db.WithContext(ctx).
			Model(&Room{}).
			Where("code = ? AND version = ?", code, current.Version).
			Select("*").
			Omit("code", "host_id", "created_at").
			Updates(next)
		if res.Error != nil {
			return nil, fmt.Errorf("update room %s: %w", code, res.Error)
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
	}
	return nil, ErrConcurrentUpdate
}
