// Package app wires the configured storage backend for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/config"
	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/database"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
)

// Stores holds one repository per aggregate. DB is nil for the memory backend.
type Stores struct {
	Leads    entity.LeadRepositoryInterface
	Ledger   entity.LedgerRepositoryInterface
	Webinars entity.WebinarRepositoryInterface
	Courses  entity.CourseRepositoryInterface
	DB       *sql.DB
}

func (s *Stores) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// OpenStores opens the backend named by cfg.Store.Backend. For postgres the
// schema is applied first when migrate_on_start is set.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Store.Backend {
	case "memory":
		logger.Warn("using in-memory store, data is lost on exit")
		st := memory.NewStore()
		return &Stores{
			Leads:    st.Leads(),
			Ledger:   st.Ledger(),
			Webinars: st.Webinars(),
			Courses:  st.Courses(),
		}, nil

	case "postgres":
		db, err := database.NewDBConnection(cfg.Database.Driver, cfg.Database.URL, database.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("database connected", zap.String("driver", cfg.Database.Driver))

		if cfg.Database.MigrateOnStart {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
			logger.Info("schema applied")
		}

		tx := database.NewTxRunner(db, cfg.Database.RetryBudget, cfg.Database.RetryBackoff())
		return &Stores{
			Leads:    database.NewLeadRepository(db, tx),
			Ledger:   database.NewLedgerRepository(db, tx),
			Webinars: database.NewWebinarRepository(db),
			Courses:  database.NewCourseRepository(db),
			DB:       db,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Normalizer builds the identity normalizer from the leads settings.
func Normalizer(cfg *config.Config) entity.IdentityNormalizer {
	return entity.NewIdentityNormalizer(cfg.Leads.CountryCode, cfg.Leads.NationalLength, cfg.Leads.MinDigits)
}
