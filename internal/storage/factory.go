package storage

import (
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/interfaces"
	"github.com/bobmcallan/chartscope-portal/internal/storage/badger"
)

// NewStorageManager creates the storage manager configured in cfg.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	return badger.NewManager(logger, &cfg.Storage.Badger)
}
