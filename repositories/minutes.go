package repositories

import (
	"context"

	"github.com/monitoria-simple/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type selectionRepository struct {
	db *gorm.DB
}

// NewSelectionRepository creates a gorm-backed selection round repository
func NewSelectionRepository(db *gorm.DB) SelectionRepository {
	return &selectionRepository{db: db}
}

// FindRound retrieves the closed round of a project in a period
func (r *selectionRepository) FindRound(ctx context.Context, projectID, periodID string) (models.SelectionRound, error) {
	var round models.SelectionRound
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND period_id = ?", projectID, periodID).
		First(&round).Error
	return round, translate(err)
}

// CreateRound closes a round; the unique index rejects a second one
func (r *selectionRepository) CreateRound(ctx context.Context, round models.SelectionRound) (models.SelectionRound, error) {
	err := r.db.WithContext(ctx).Create(&round).Error
	return round, translate(err)
}

type minutesRepository struct {
	db *gorm.DB
}

// NewMinutesRepository creates a gorm-backed minutes repository
func NewMinutesRepository(db *gorm.DB) MinutesRepository {
	return &minutesRepository{db: db}
}

// FindByID retrieves minutes with their entries in rank order
func (r *minutesRepository) FindByID(ctx context.Context, id string) (models.Minutes, error) {
	var minutes models.Minutes
	if err := r.db.WithContext(ctx).First(&minutes, "id = ?", id).Error; err != nil {
		return minutes, translate(err)
	}
	return r.withEntries(ctx, minutes)
}

// FindForUpdate retrieves minutes and locks the header row
func (r *minutesRepository) FindForUpdate(ctx context.Context, id string) (models.Minutes, error) {
	var minutes models.Minutes
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&minutes, "id = ?", id).Error
	if err != nil {
		return minutes, translate(err)
	}
	return r.withEntries(ctx, minutes)
}

// FindByProjectPeriod retrieves the minutes of a project in a period
func (r *minutesRepository) FindByProjectPeriod(ctx context.Context, projectID, periodID string) (models.Minutes, error) {
	var minutes models.Minutes
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND period_id = ?", projectID, periodID).
		First(&minutes).Error
	if err != nil {
		return minutes, translate(err)
	}
	return r.withEntries(ctx, minutes)
}

// Create inserts the header and its entries
func (r *minutesRepository) Create(ctx context.Context, minutes models.Minutes) (models.Minutes, error) {
	entries := minutes.Entries
	if err := r.db.WithContext(ctx).Create(&minutes).Error; err != nil {
		return minutes, translate(err)
	}
	for i := range entries {
		entries[i].MinutesID = minutes.ID
	}
	if len(entries) > 0 {
		if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
			return minutes, translate(err)
		}
	}
	minutes.Entries = entries
	return minutes, nil
}

// Update writes the header; entries are never rewritten
func (r *minutesRepository) Update(ctx context.Context, minutes models.Minutes) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(&minutes).Error)
}

func (r *minutesRepository) withEntries(ctx context.Context, minutes models.Minutes) (models.Minutes, error) {
	var entries []models.MinutesEntry
	err := r.db.WithContext(ctx).
		Where("minutes_id = ?", minutes.ID).
		Order("rank").
		Find(&entries).Error
	minutes.Entries = entries
	return minutes, translate(err)
}
