// Package main provides a CLI tool for seeding the well-known dictionary
// categories and their default entries. Running it twice is harmless.
package main

import (
	"context"
	"fmt"
	"os"

	"sysdict/internal/core/apperror"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/infrastructure/cache"
	"sysdict/internal/infrastructure/storage/postgres"
	"sysdict/internal/infrastructure/storage/postgres/catalog_repo"
	"sysdict/pkg/config"
	"sysdict/pkg/logger"
)

type entrySeed struct {
	name  string
	value string
	typ   variable.ValueType
}

type categorySeed struct {
	name    string
	entries []entrySeed
}

var seeds = map[variable.CategoryCode]categorySeed{
	variable.CodeState: {"State", []entrySeed{
		{"Enabled", "1", variable.TypeInteger},
		{"Disabled", "2", variable.TypeInteger},
		{"Deleted", "3", variable.TypeInteger},
	}},
	variable.CodeValueType: {"Value type", []entrySeed{
		{"String", string(variable.TypeString), variable.TypeString},
		{"Integer", string(variable.TypeInteger), variable.TypeString},
		{"Number", string(variable.TypeNumber), variable.TypeString},
		{"Date", string(variable.TypeDate), variable.TypeString},
		{"Boolean", string(variable.TypeBoolean), variable.TypeString},
	}},
	variable.CodeResourceType: {"Resource type", []entrySeed{
		{"Menu", "01", variable.TypeString},
		{"Security", "02", variable.TypeString},
	}},
	variable.CodeGroupType: {"Group type", []entrySeed{
		{"Department", "01", variable.TypeString},
		{"Role", "02", variable.TypeString},
	}},
	variable.CodePortraitType: {"Portrait type", []entrySeed{
		{"Small", "01", variable.TypeString},
		{"Large", "02", variable.TypeString},
	}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log.WithComponent("seed"))

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool.Unwrap()); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	categories := catalog_repo.NewDictionaryCategoryRepo(txManager)
	manager := variable.NewManager(variable.ManagerConfig{
		Categories:   categories,
		Dictionaries: catalog_repo.NewDataDictionaryRepo(txManager),
		TxManager:    txManager,
		// Running servers learn about the new rows through NOTIFY.
		Notifier:          postgres.NewNotifier(txManager, cache.ChannelDictionaryChanged),
		InvalidateOnWrite: true,
	})

	for _, code := range variable.KnownCategoryCodes() {
		seed, ok := seeds[code]
		if !ok {
			log.Fatalw("no seed defaults for category", "code", code)
		}
		if err := seedCategory(ctx, manager, categories, code, seed); err != nil {
			log.Fatalw("failed to seed category", "code", code, "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedCategory(ctx context.Context, manager *variable.Manager, categories *catalog_repo.DictionaryCategoryRepo, code variable.CategoryCode, seed categorySeed) error {
	category, err := categories.GetByCode(ctx, code.String())
	switch {
	case apperror.IsNotFound(err):
		category = variable.NewDictionaryCategory(code.String(), seed.name)
		if err := manager.SaveDictionaryCategory(ctx, category); err != nil {
			return fmt.Errorf("save category: %w", err)
		}
		logger.Info(ctx, "category created", "code", code, "id", category.ID)
	case err != nil:
		return fmt.Errorf("find category: %w", err)
	}

	existing, err := manager.GetDataDictionariesByCategoryCode(ctx, code)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		present[e.Value] = true
	}

	for _, s := range seed.entries {
		if present[s.value] {
			continue
		}
		entry := variable.NewDataDictionary(category.ID, s.name, s.value)
		entry.Type = s.typ
		if err := manager.SaveDataDictionary(ctx, entry); err != nil {
			return fmt.Errorf("save entry %q: %w", s.name, err)
		}
		logger.Info(ctx, "entry created", "code", code, "value", s.value)
	}
	return nil
}
