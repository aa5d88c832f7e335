// Package app wires configuration, the database, and the stores into a
// ready-to-use application core for any presentation layer.
package app

import (
	"context"
	"fmt"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/config"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/db"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/session"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/store"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App bundles the shared session and the three stores over one database
// connection.
type App struct {
	Conn       *gorm.DB
	Session    *session.Session
	Users      *store.UserStore
	Activities *store.ActivityStore
	Archive    *store.ArchiveStore
}

// Migrate opens the database and reconciles the schema, without booting the
// rest of the application.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dbPath, err := config.LoadDatabasePath(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// Setup opens the database, reconciles the schema, and initializes the
// stores. Migration problems are logged and do not block startup; an
// unopenable database does.
func Setup(ctx context.Context, cfg config.AppConfig) (*App, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dbPath, err := config.LoadDatabasePath(configPath)
	if err != nil {
		return nil, err
	}

	conn, errOpen := db.Open(dbPath)
	if errOpen != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errs.ErrStorageUnavailable, dbPath, errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.WithError(errMigrate).Warn("schema reconciliation incomplete, continuing")
	}

	sess := session.New()
	application := &App{
		Conn:       conn,
		Session:    sess,
		Users:      store.NewUserStore(conn, sess),
		Activities: store.NewActivityStore(conn, sess),
		Archive:    store.NewArchiveStore(conn, sess),
	}
	if errInit := application.Users.Init(ctx); errInit != nil {
		return nil, fmt.Errorf("initialize user store: %w", errInit)
	}

	log.Infof("application ready, database=%s", dbPath)
	return application, nil
}
