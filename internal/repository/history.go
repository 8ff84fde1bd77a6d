package repository

import (
	"gdsync/internal/db"
	"gdsync/internal/model"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) SaveAll(histories []model.History) error {
	if len(histories) == 0 {
		return nil
	}

	return db.DB.Create(&histories).Error
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Bytes   int64 `json:"bytes"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("status = ?", model.StatusSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("status = ?", model.StatusSuccess).
		Select("COALESCE(SUM(bytes), 0)").
		Scan(&stats.Bytes).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("synced_at desc, id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed() ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("status = ?", model.StatusFailed).
		Order("synced_at desc, id desc").
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetRun(runID string) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("run_id = ?", runID).
		Order("id asc").
		Find(&histories)

	return histories, result.Error
}
