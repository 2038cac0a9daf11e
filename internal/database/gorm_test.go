package database

import (
	"testing"

	"hospital-chat/internal/config"
	"hospital-chat/internal/models"
	"hospital-chat/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestSyncConfigPrefersStoredValues(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, db.Create(&models.SystemSetting{Key: "WHATSAPP_TOKEN", Value: "from-db"}).Error)

	cfg := &config.Config{WhatsAppToken: "from-env", PhoneNumberID: "123"}
	SyncConfig(db, cfg, logging.Nop())

	assert.Equal(t, "from-db", cfg.WhatsAppToken)
	assert.Equal(t, "123", cfg.PhoneNumberID)

	var seeded models.SystemSetting
	require.NoError(t, db.Where("key = ?", "PHONE_NUMBER_ID").First(&seeded).Error)
	assert.Equal(t, "123", seeded.Value)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"}, logging.Nop())
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(&config.Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "h", DBPort: "5432", DBSSLMode: "disable"})
	assert.Equal(t, "host=db user=u password=p dbname=h port=5432 sslmode=disable", dsn)
}
