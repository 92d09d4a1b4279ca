package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders-" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(&Order{}))
	return conn
}

func storeBackends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"gorm":   NewGormStore(setupOrdersTestDB(t)),
	}
}

func sampleOrder(code, restaurantID string) *Order {
	items := []LineItem{{Name: "Pizza", UnitPrice: 299, Quantity: 2}}
	total, _ := ComputeTotal(items)
	return &Order{
		Code:            code,
		RestaurantID:    restaurantID,
		RestaurantName:  "Slice House",
		Items:           items,
		Total:           total,
		Payout:          ComputePayout(total),
		DeliveryAddress: "12 Market St",
		AddressDetails:  map[string]any{"city": "Pune"},
		PaymentMethod:   enums.PaymentMethodCash,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		CreatedAt:       fixedNow(),
	}
}

func TestStoreCreateGetAndDuplicate(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, sampleOrder("ORD-1", "r1")))

			got, err := store.Get(ctx, "ORD-1")
			require.NoError(t, err)
			assert.Equal(t, 598, got.Total)
			assert.Equal(t, 60, got.Payout)
			assert.Equal(t, "Pizza", got.Items[0].Name)
			assert.Equal(t, "Pune", got.AddressDetails["city"])
			assert.Equal(t, int64(1), got.Version)

			err = store.Create(ctx, sampleOrder("ORD-1", "r2"))
			assert.True(t, errors.Is(err, ErrDuplicateCode), "got %v", err)

			_, err = store.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStoreListAvailableForPickup(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			driver := "d1"

			pending := sampleOrder("ORD-A", "r1")
			preparing := sampleOrder("ORD-B", "r1")
			preparing.Status = enums.OrderStatusPreparing
			claimed := sampleOrder("ORD-C", "r2")
			claimed.DriverID = &driver
			ready := sampleOrder("ORD-D", "r2")
			ready.Status = enums.OrderStatusReadyForPickup
			for _, o := range []*Order{pending, preparing, claimed, ready} {
				require.NoError(t, store.Create(ctx, o))
			}

			available, err := store.List(ctx, Filter{AvailableForPickup: true})
			require.NoError(t, err)
			codes := make([]string, 0, len(available))
			for _, o := range available {
				codes = append(codes, o.Code)
			}
			assert.ElementsMatch(t, []string{"ORD-A", "ORD-B"}, codes)

			byRestaurant, err := store.List(ctx, Filter{RestaurantID: "r2"})
			require.NoError(t, err)
			assert.Len(t, byRestaurant, 2)

			all, err := store.List(ctx, Filter{})
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func TestStoreTransitionAppliesAndVersions(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, sampleOrder("ORD-T", "r1")))

			updated, err := store.Transition(ctx, "ORD-T", func(o *Order) error {
				o.Total = 1
				return moveTo(o, enums.OrderStatusConfirmed)
			})
			require.NoError(t, err)
			assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)
			assert.Equal(t, 598, updated.Total, "total is fixed at creation")
			assert.Equal(t, int64(2), updated.Version)

			reloaded, err := store.Get(ctx, "ORD-T")
			require.NoError(t, err)
			assert.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)
			assert.Equal(t, 598, reloaded.Total)
		})
	}
}

func TestStoreTransitionRejectsOffGraphWrites(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, sampleOrder("ORD-X", "r1")))

			_, err := store.Transition(ctx, "ORD-X", func(o *Order) error {
				o.Status = enums.OrderStatusDelivered
				return nil
			})
			require.Error(t, err)

			got, err := store.Get(ctx, "ORD-X")
			require.NoError(t, err)
			assert.Equal(t, enums.OrderStatusPending, got.Status)
		})
	}
}

func TestStoreTransitionMutationErrorPersistsNothing(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, sampleOrder("ORD-E", "r1")))

			boom := errors.New("boom")
			_, err := store.Transition(ctx, "ORD-E", func(o *Order) error {
				o.DeliveryInstructions = "ring twice"
				return boom
			})
			assert.ErrorIs(t, err, boom)

			got, err := store.Get(ctx, "ORD-E")
			require.NoError(t, err)
			assert.Empty(t, got.DeliveryInstructions)
			assert.Equal(t, int64(1), got.Version)

			_, err = store.Transition(ctx, "nope", func(*Order) error { return nil })
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreConcurrentClaimHasOneWinner(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, sampleOrder("ORD-RACE", "r1")))

			claim := func(driver string) error {
				_, err := store.Transition(ctx, "ORD-RACE", func(o *Order) error {
					if !IsAssignable(o.Status) || o.HasDriver() {
						return invalidTransition(o.Status, enums.OrderStatusOutForDelivery)
					}
					o.DriverID = &driver
					return moveTo(o, enums.OrderStatusOutForDelivery)
				})
				return err
			}

			const contenders = 6
			var wg sync.WaitGroup
			results := make(chan error, contenders)
			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results <- claim(uuid.NewString())
				}(i)
			}
			wg.Wait()
			close(results)

			wins := 0
			for err := range results {
				if err == nil {
					wins++
				}
			}
			assert.Equal(t, 1, wins)
		})
	}
}
