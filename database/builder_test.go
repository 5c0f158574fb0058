package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Text string
}

func TestBuilderSqlite(t *testing.T) {
	builder := NewBuilder()
	builder.AddSqlite("default", ":memory:", func(opts *DatabaseOptions) {
		opts.AutoMigrate = []any{&note{}}
	})

	factory, err := builder.Build(nil)
	require.NoError(t, err)
	require.NotNil(t, factory)
	defer factory.Close()

	var db *gorm.DB
	factory.Each(func(name string, d *gorm.DB) {
		if name == "default" {
			db = d
		}
	})
	require.NotNil(t, db)

	require.NoError(t, db.Create(&note{Text: "hello"}).Error)

	var got note
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "hello", got.Text)
}

func TestBuilderRejectsDuplicateName(t *testing.T) {
	builder := NewBuilder()
	builder.AddSqlite("db", ":memory:", nil)
	builder.AddSqlite("db", ":memory:", nil)

	_, err := builder.Build(nil)
	require.Error(t, err)
}

func TestBuilderEmptyIsNoop(t *testing.T) {
	factory, err := NewBuilder().Build(nil)
	require.NoError(t, err)
	assert.Nil(t, factory)
}
