package datastore

import (
	"fmt"

	"github.com/tphakala/speciesnet-go/internal/conf"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	mysqlConf := settings.Datastore.MySQL
	if mysqlConf.Host == "" || mysqlConf.Database == "" || mysqlConf.Username == "" {
		return fmt.Errorf("mysql host, database and username must not be empty")
	}
	return nil
}

// Open sets up the MySQL database connection and runs migrations.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		store.Settings.Datastore.MySQL.Username, store.Settings.Datastore.MySQL.Password,
		store.Settings.Datastore.MySQL.Host, store.Settings.Datastore.MySQL.Port,
		store.Settings.Datastore.MySQL.Database)

	newLogger := createGormLogger(store.Settings.Debug)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL",
		fmt.Sprintf("%s:%s/%s", store.Settings.Datastore.MySQL.Host,
			store.Settings.Datastore.MySQL.Port, store.Settings.Datastore.MySQL.Database))
}
