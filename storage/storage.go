// Package storage opens the core.RecordStore selected by the configuration.
package storage

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/storage/filestore"
	"github.com/trezcool/portal/storage/memstore"
	"github.com/trezcool/portal/storage/pgstore"
	"github.com/trezcool/portal/storage/redisstore"
)

// Drivers
const (
	Memory   = "memory"
	File     = "file"
	Postgres = "postgres"
	Redis    = "redis"
)

var ErrUnknownDriver = errors.New("unknown store driver")

func Open(conf *core.Config, logger core.Logger) (core.RecordStore, error) {
	var (
		store core.RecordStore
		err   error
	)
	switch conf.Store.Driver {
	case Memory, "":
		store = memstore.Open()
	case File:
		store, err = filestore.Open(conf.Store.Dir)
	case Postgres:
		if err = pgstore.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		store, err = pgstore.Open(conf)
	case Redis:
		store, err = redisstore.Open(conf)
	default:
		return nil, errors.Wrap(ErrUnknownDriver, conf.Store.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", conf.Store.Driver)
	}
	logger.Info(fmt.Sprintf("record store opened: %s", driverName(conf.Store.Driver)))
	return store, nil
}

func driverName(driver string) string {
	if driver == "" {
		return Memory
	}
	return driver
}
