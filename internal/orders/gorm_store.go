package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultCASAttempts = 8

// GormStore persists orders through gorm. Transitions use an optimistic
// version check; a lost race re-reads the row and re-runs the mutation so its
// preconditions see the winner's write.
type GormStore struct {
	db       *gorm.DB
	attempts int
}

// NewGormStore builds a store bound to conn.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn, attempts: defaultCASAttempts}
}

func (s *GormStore) Create(ctx context.Context, order *Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Version == 0 {
		order.Version = 1
	}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, code string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", code, err)
	}
	return &order, nil
}

func (s *GormStore) List(ctx context.Context, filter Filter) ([]Order, error) {
	query := s.db.WithContext(ctx).Model(&Order{})
	if filter.AvailableForPickup {
		statuses := make([]string, 0, len(assignable))
		for status := range assignable {
			statuses = append(statuses, string(status))
		}
		query = query.Where("status IN ?", statuses).Where("(driver_id IS NULL OR driver_id = '')")
	}
	if filter.RestaurantID != "" {
		query = query.Where("restaurant_id = ?", filter.RestaurantID)
	}
	if filter.DriverID != "" {
		query = query.Where("driver_id = ?", filter.DriverID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var out []Order
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

func (s *GormStore) Transition(ctx context.Context, code string, mutate Mutation) (*Order, error) {
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
			Model(&Order{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Select("*").
			Omit("id", "code", "created_at").
			Updates(next)
		if res.Error != nil {
			return nil, fmt.Errorf("update order %s: %w", code, res.Error)
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
	}
	return nil, ErrConcurrentUpdate
}
