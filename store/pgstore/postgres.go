// Package pgstore implements store.Store on PostgreSQL using gorm.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/store"
	logging "github.com/ipfs/go-log/v2"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logging.Logger("pgstore")

// locationRow is the table layout of a LocationEntry.
type locationRow struct {
	ID         string  `gorm:"primaryKey"`
	AddressKey string  `gorm:"uniqueIndex;not null"`
	Name       string  `gorm:"not null"`
	Category   string  `gorm:"index"`
	Latitude   float64 `gorm:"index:idx_locations_lat_lon,priority:1"`
	Longitude  float64 `gorm:"index:idx_locations_lat_lon,priority:2"`
	Address    string
	URL        string
	Rating     float64
	Hours      pq.StringArray `gorm:"type:text[]"`
	Photos     pq.StringArray `gorm:"type:text[]"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime:false"`
}

func (locationRow) TableName() string {
	return "locations"
}

func toRow(e model.LocationEntry) locationRow {
	return locationRow{
		ID:         e.ID,
		AddressKey: e.AddressKey(),
		Name:       e.Name,
		Category:   e.Category,
		Latitude:   e.Latitude,
		Longitude:  e.Longitude,
		Address:    e.Address,
		URL:        e.URL,
		Rating:     e.Rating,
		Hours:      pq.StringArray(e.Hours),
		Photos:     pq.StringArray(e.Photos),
		UpdatedAt:  e.UpdatedAt,
	}
}

func (r locationRow) entry() model.LocationEntry {
	e := model.LocationEntry{
		ID:        r.ID,
		Name:      r.Name,
		Category:  r.Category,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Address:   r.Address,
		URL:       r.URL,
		Rating:    r.Rating,
		Hours:     []string(r.Hours),
		Photos:    []string(r.Photos),
		UpdatedAt: r.UpdatedAt,
	}
	e.Normalize()
	return e
}

// Store is a store.Store backed by a PostgreSQL table.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at dsn and migrates the locations table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	return New(db)
}

// New returns a Store using an existing gorm connection.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&locationRow{}); err != nil {
		return nil, fmt.Errorf("cannot migrate locations table: %w", err)
	}
	log.Info("Locations table ready")
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, id string) (model.LocationEntry, bool, error) {
	var row locationRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.LocationEntry{}, false, nil
		}
		return model.LocationEntry{}, false, err
	}
	return row.entry(), true, nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]model.LocationEntry, error) {
	tx := applyQuery(s.db.WithContext(ctx).Model(&locationRow{}), q)
	var rows []locationRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]model.LocationEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].entry()
	}
	return entries, nil
}

func applyQuery(tx *gorm.DB, q store.Query) *gorm.DB {
	if q.Bounds != nil {
		b := q.Bounds.Widen(model.EdgeTolerance)
		tx = tx.Where("latitude BETWEEN ? AND ?", b.LatMin, b.LatMax).
			Where("longitude BETWEEN ? AND ?", b.LonMin, b.LonMax)
	}
	if q.AddressKey != "" {
		tx = tx.Where("address_key = ?", q.AddressKey)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Limit != 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

func (s *Store) Put(ctx context.Context, e model.LocationEntry) error {
	if e.ID == "" {
		return errors.New("entry has no id")
	}
	row := toRow(e)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) Update(ctx context.Context, e model.LocationEntry) error {
	row := toRow(e)
	result := s.db.WithContext(ctx).Model(&locationRow{}).
		Where("id = ?", e.ID).
		Select("*").Omit("id").
		Updates(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
