package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/openshelf/circulation-backend/pkg/config"
	"gorm.io/gorm"
)

type row struct {
	ID    string `gorm:"primaryKey"`
	Value string
}

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:db_client_" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	client, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&row{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestPing(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestWithTxCommits(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&row{ID: "a", Value: "committed"}).Error
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	var got row
	if err := client.DB().First(&got, "id = ?", "a").Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if got.Value != "committed" {
		t.Fatalf("unexpected value %q", got.Value)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row{ID: "b", Value: "doomed"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	if err := client.DB().Model(&row{}).Where("id = ?", "b").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}
