package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"plantfinder/config"
	"plantfinder/types"
)

// ErrNotFound is returned when a plant lookup matches no row
var ErrNotFound = errors.New("plant not found")

// Store is the pooled handle to the reference plant table. It is constructed once by
// the caller and shared; it holds no other state.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

// Open connects to the configured database and sizes the connection pool
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s database: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	logger.Info("Database connection pool created",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return NewStore(db, cfg.Driver, logger), nil
}

// NewStore wraps an existing connection pool
func NewStore(db *sqlx.DB, driver string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, driver: driver, logger: logger}
}

// DB exposes the underlying pool
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Driver returns the database/sql driver name in use
func (s *Store) Driver() string {
	return s.driver
}

// Close closes every pooled connection
func (s *Store) Close() error {
	s.logger.Info("All database connections closed")
	return s.db.Close()
}

// Ping checks that a connection can be obtained
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside a transaction on a pooled connection. The transaction is
// committed when fn returns nil and rolled back on error or panic; the connection
// always goes back to the pool.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Database rollback failed", zap.Error(rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("cannot commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

const candidateQuery = `
	SELECT id, name, scientific_name, common_names,
	       medicinal_properties, growing_conditions,
	       harvesting_guidelines, precautions, image
	FROM plants
	WHERE image IS NOT NULL
	ORDER BY id`

// EachCandidate streams every plant that has a stored image, in id order, to fn.
// An error from fn stops the iteration and is returned as is.
func (s *Store) EachCandidate(ctx context.Context, fn func(plant types.Plant) error) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := tx.QueryxContext(ctx, candidateQuery)
		if err != nil {
			return fmt.Errorf("database query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var plant types.Plant
			if err := rows.StructScan(&plant); err != nil {
				return fmt.Errorf("cannot scan plant row: %w", err)
			}
			if err := fn(plant); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

// GetPlantByID returns plant details without the image blob
func (s *Store) GetPlantByID(ctx context.Context, id int64) (*types.Plant, error) {
	query := s.db.Rebind(`
		SELECT id, name, scientific_name, common_names,
		       medicinal_properties, growing_conditions,
		       harvesting_guidelines, precautions, last_shown_date
		FROM plants
		WHERE id = ?`)

	var plant types.Plant
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &plant, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cannot get plant %d: %w", id, err)
	}
	return &plant, nil
}

// ListPlants returns up to limit plants ordered by name, each with the first 100
// characters of its medicinal properties as a short description
func (s *Store) ListPlants(ctx context.Context, limit int) ([]types.PlantSummary, error) {
	query := s.db.Rebind(`
		SELECT id, name, scientific_name, common_names,
		       SUBSTR(medicinal_properties, 1, 100) || '...' AS short_description
		FROM plants
		ORDER BY name
		LIMIT ?`)

	plants := []types.PlantSummary{}
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &plants, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list plants: %w", err)
	}
	return plants, nil
}

// InsertPlant stores a new reference plant and returns its id
func (s *Store) InsertPlant(ctx context.Context, plant types.Plant) (int64, error) {
	query := s.db.Rebind(`
		INSERT INTO plants (
			name, scientific_name, common_names, medicinal_properties,
			growing_conditions, harvesting_guidelines, precautions, image, last_shown_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, query,
			plant.Name,
			plant.ScientificName,
			plant.CommonNames,
			plant.MedicinalProperties,
			plant.GrowingConditions,
			plant.HarvestingGuidelines,
			plant.Precautions,
			plant.Image,
			plant.LastShownDate,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("cannot insert plant %s: %w", plant.Name, err)
	}
	return id, nil
}

// FindPlantIDByName returns the id of the first plant with exactly this name
func (s *Store) FindPlantIDByName(ctx context.Context, name string) (int64, bool, error) {
	query := s.db.Rebind(`SELECT id FROM plants WHERE name = ? ORDER BY id LIMIT 1`)

	var id int64
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &id, query, name)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cannot look up plant %s: %w", name, err)
	}
	return id, true, nil
}

// UpdatePlant overwrites every column of an existing plant
func (s *Store) UpdatePlant(ctx context.Context, id int64, plant types.Plant) error {
	query := s.db.Rebind(`
		UPDATE plants SET
			name = ?, scientific_name = ?, common_names = ?, medicinal_properties = ?,
			growing_conditions = ?, harvesting_guidelines = ?, precautions = ?, image = ?
		WHERE id = ?`)

	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			plant.Name,
			plant.ScientificName,
			plant.CommonNames,
			plant.MedicinalProperties,
			plant.GrowingConditions,
			plant.HarvestingGuidelines,
			plant.Precautions,
			plant.Image,
			id,
		)
		if err != nil {
			return fmt.Errorf("cannot update plant %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// PlantStats contains row counts of the plants table
type PlantStats struct {
	TotalPlants     int `db:"total_plants"`
	PlantsWithImage int `db:"plants_with_image"`
}

// GetPlantStats counts plants and how many of them can be matched against
func (s *Store) GetPlantStats(ctx context.Context) (*PlantStats, error) {
	var stats PlantStats
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &stats, `
			SELECT COUNT(*) AS total_plants,
			       COUNT(image) AS plants_with_image
			FROM plants`)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get plant stats: %w", err)
	}
	return &stats, nil
}
