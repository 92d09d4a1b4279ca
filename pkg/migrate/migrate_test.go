package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/feastflow-backend/internal/groups"
	"github.com/angelmondragon/feastflow-backend/internal/orders"
	"github.com/angelmondragon/feastflow-backend/pkg/config"
	"github.com/angelmondragon/feastflow-backend/pkg/db"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	"github.com/angelmondragon/feastflow-backend/pkg/migrate"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:migrate-" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestEmbeddedMigrationsMatchModels(t *testing.T) {
	conn := openSQLite(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, migrate.Run(ctx, sqlDB, migrate.DialectFor(db.DriverSQLite), "", "up"))

	orderStore := orders.NewGormStore(conn)
	order := &orders.Order{
		ID:              uuid.New(),
		Code:            "ORD-261001-ABCDEF",
		RestaurantID:    "r1",
		Items:           []orders.LineItem{{Name: "Pizza", UnitPrice: 299, Quantity: 2}},
		Total:           598,
		Payout:          60,
		DeliveryAddress: "1 Main St",
		PaymentMethod:   enums.PaymentMethodCash,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, orderStore.Create(ctx, order))
	require.ErrorIs(t, orderStore.Create(ctx, &orders.Order{
		ID:              uuid.New(),
		Code:            order.Code,
		RestaurantID:    "r1",
		Items:           []orders.LineItem{{Name: "Soda", UnitPrice: 100, Quantity: 1}},
		Total:           100,
		Payout:          30,
		DeliveryAddress: "x",
		PaymentMethod:   enums.PaymentMethodCash,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
	}), orders.ErrDuplicateCode)

	var totals []int
	require.NoError(t, conn.Table("orders").Where("code = ?", order.Code).Pluck("total", &totals).Error)
	require.Equal(t, []int{598}, totals)

	roomStore := groups.NewGormStore(conn)
	room := &groups.Room{
		Code:      "ABC123",
		HostID:    "u-a",
		Status:    enums.RoomStatusOpen,
		Members:   []groups.Member{{ActorID: "u-a", Name: "A", IsHost: true}},
		Items:     []groups.Item{},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, roomStore.Create(ctx, room))
	exists, err := roomStore.Exists(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, migrate.Run(ctx, sqlDB, migrate.DialectFor(db.DriverSQLite), "", "down"))
	require.NoError(t, migrate.Run(ctx, sqlDB, migrate.DialectFor(db.DriverSQLite), "", "down"))
	require.False(t, conn.Migrator().HasTable("orders"))
}

func TestMaybeRunAutoMigratesSQLite(t *testing.T) {
	conn := openSQLite(t)
	client := db.NewFromConn(conn, db.DriverSQLite)
	cfg := &config.Config{
		App:      config.AppConfig{Env: config.AppEnvDev},
		Features: config.FeatureFlagsConfig{AutoMigrate: true},
	}

	require.NoError(t, migrate.MaybeRun(context.Background(), cfg, nil, client, &orders.Order{}, &groups.Room{}))
	require.True(t, conn.Migrator().HasTable("orders"))
	require.True(t, conn.Migrator().HasTable("group_rooms"))
}

func TestMaybeRunDisabled(t *testing.T) {
	conn := openSQLite(t)
	client := db.NewFromConn(conn, db.DriverSQLite)
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvDev}}

	require.NoError(t, migrate.MaybeRun(context.Background(), cfg, nil, client, &orders.Order{}))
	require.False(t, conn.Migrator().HasTable("orders"))
}

func TestMigrationFilesAreValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))

	data, err := os.ReadFile(filepath.Join("migrations", "20261001090000_create_orders.sql"))
	require.NoError(t, err)
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS orders", "idx_orders_code", "DROP TABLE IF EXISTS orders"} {
		require.True(t, strings.Contains(string(data), want), want)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	require.NoError(t, err)
	require.Regexp(t, `\d{14}_add_order_notes\.sql$`, path)
	require.NoError(t, migrate.ValidateDir(dir))

	second, err := migrate.CreateSQLMigration(dir, "add order notes")
	require.NoError(t, err)
	require.NotEqual(t, path, second)
	require.Less(t, filepath.Base(path), filepath.Base(second))

	_, err = migrate.CreateSQLMigration(dir, "  ")
	require.Error(t, err)
}

func TestValidateDirRejectsBrokenFiles(t *testing.T) {
	cases := map[string]string{
		"20261001090000_bad.sql":  "-- +goose Up\nSELECT 1;\n",
		"20261001090000_flip.sql": "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n",
		"20261001090000_open.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"not_a_version.sql":       "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}
}
