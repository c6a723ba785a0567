package repo

import (
	"errors"

	"github.com/zedigital/trading-bot/internal/entity"
	"github.com/zedigital/trading-bot/internal/service/ledger"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entity.Trade{},
		&entity.Position{},
		&entity.PortfolioMeta{},
		&entity.Snapshot{},
		&entity.SignalRecord{},
	)
	if err != nil {
		return err
	}

	// 首次启动时写入初始现金
	var meta entity.PortfolioMeta
	err = db.Where("key = ?", entity.MetaKeyCashBalance).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&entity.PortfolioMeta{
			Key:   entity.MetaKeyCashBalance,
			Value: ledger.InitialCash.String(),
		}).Error
	}
	return err
}
