package variable

import (
	"context"
	"fmt"
	"strings"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
	"sysdict/internal/core/tx"
	"sysdict/internal/domain"
	"sysdict/internal/domain/filter"
	"sysdict/pkg/logger"
)

// Entity names used in errors and audit records.
const (
	EntityCategory   = "dictionary_category"
	EntityDictionary = "data_dictionary"
)

// Audit actions.
const (
	ActionSave   = "save"
	ActionDelete = "delete"
)

// LookupCache caches GetDataDictionariesByCategoryCode results.
// Implemented by cache.Lookup.
type LookupCache interface {
	GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) ([]*DataDictionary, error)) ([]*DataDictionary, error)
	InvalidateAll(ctx context.Context) error
}

// Auditor records mutations in the audit trail within the current transaction.
type Auditor interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, changes any) error
}

// ChangeNotifier announces committed dictionary changes to other processes.
// Notify is called inside the write transaction; delivery happens on commit.
type ChangeNotifier interface {
	Notify(ctx context.Context, payload string) error
}

// Manager is the system dictionary service: category and entry CRUD,
// leaf flag maintenance and the cached lookup by category code.
type Manager struct {
	categories   CategoryRepository
	dictionaries DictionaryRepository
	txManager    tx.Manager
	lookup       LookupCache
	auditor      Auditor
	notifier     ChangeNotifier

	invalidateOnWrite bool
}

// ManagerConfig configures the Manager. Auditor and Notifier are optional.
type ManagerConfig struct {
	Categories   CategoryRepository
	Dictionaries DictionaryRepository
	TxManager    tx.Manager
	Lookup       LookupCache
	Auditor      Auditor
	Notifier     ChangeNotifier

	// InvalidateOnWrite flushes the lookup cache after every committed write.
	// When false, cached lookups live until their TTL expires.
	InvalidateOnWrite bool
}

// NewManager creates a new dictionary manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		categories:        cfg.Categories,
		dictionaries:      cfg.Dictionaries,
		txManager:         cfg.TxManager,
		lookup:            cfg.Lookup,
		auditor:           cfg.Auditor,
		notifier:          cfg.Notifier,
		invalidateOnWrite: cfg.InvalidateOnWrite,
	}
}

// LookupKey builds the cache key of a by-category-code lookup:
// the code followed by the ignored values, all joined with "-".
func LookupKey(code CategoryCode, ignoreValues []string) string {
	return string(code) + "-" + strings.Join(ignoreValues, "-")
}

// --- Data dictionary ---

// GetDataDictionary loads a dictionary entry by id.
func (m *Manager) GetDataDictionary(ctx context.Context, entryID id.ID) (*DataDictionary, error) {
	var result *DataDictionary
	err := m.read(ctx, func(ctx context.Context) error {
		entry, err := m.dictionaries.GetByID(ctx, entryID)
		if err != nil {
			return normalizeGetErr(err, EntityDictionary, entryID.String())
		}
		result = entry
		return nil
	})
	return result, err
}

// SaveDataDictionary inserts or updates a dictionary entry.
func (m *Manager) SaveDataDictionary(ctx context.Context, entry *DataDictionary) error {
	if err := entry.Validate(ctx); err != nil {
		return normalizeValidationErr(err)
	}

	return m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := m.dictionaries.Save(ctx, entry); err != nil {
			return fmt.Errorf("save %s: %w", EntityDictionary, err)
		}
		if err := m.audit(ctx, EntityDictionary, entry.ID, ActionSave, entry); err != nil {
			return err
		}
		return m.changed(ctx, EntityDictionary)
	})
}

// DeleteDataDictionaries removes the given entries in one batch.
// An empty list is passed through to storage unchanged.
func (m *Manager) DeleteDataDictionaries(ctx context.Context, ids []id.ID) error {
	return m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := m.dictionaries.DeleteAll(ctx, ids); err != nil {
			return fmt.Errorf("delete %s: %w", EntityDictionary, err)
		}
		for _, entryID := range ids {
			if err := m.audit(ctx, EntityDictionary, entryID, ActionDelete, nil); err != nil {
				return err
			}
		}
		return m.changed(ctx, EntityDictionary)
	})
}

// SearchDataDictionaryPage returns one page of dictionary entries.
func (m *Manager) SearchDataDictionaryPage(ctx context.Context, page domain.ListFilter) (domain.ListResult[*DataDictionary], error) {
	page.Normalize()

	var result domain.ListResult[*DataDictionary]
	err := m.read(ctx, func(ctx context.Context) error {
		var err error
		result, err = m.dictionaries.List(ctx, page)
		if err != nil {
			return fmt.Errorf("search %s: %w", EntityDictionary, err)
		}
		return nil
	})
	return result, err
}

// GetDataDictionariesByCategoryCode returns the entries of the category with
// the given code, leaving out ignoreValues. Results are cached per
// code and ignore list; concurrent misses on one key load once.
func (m *Manager) GetDataDictionariesByCategoryCode(ctx context.Context, code CategoryCode, ignoreValues ...string) ([]*DataDictionary, error) {
	load := func(ctx context.Context) ([]*DataDictionary, error) {
		var entries []*DataDictionary
		err := m.read(ctx, func(ctx context.Context) error {
			var err error
			entries, err = m.dictionaries.GetByCategoryCode(ctx, code, ignoreValues)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("lookup %s by category %q: %w", EntityDictionary, code, err)
		}
		return entries, nil
	}

	if m.lookup == nil {
		return load(ctx)
	}
	return m.lookup.GetOrLoad(ctx, LookupKey(code, ignoreValues), load)
}

// --- Dictionary category ---

// GetDictionaryCategory loads a category by id.
func (m *Manager) GetDictionaryCategory(ctx context.Context, categoryID id.ID) (*DictionaryCategory, error) {
	var result *DictionaryCategory
	err := m.read(ctx, func(ctx context.Context) error {
		category, err := m.categories.GetByID(ctx, categoryID)
		if err != nil {
			return normalizeGetErr(err, EntityCategory, categoryID.String())
		}
		result = category
		return nil
	})
	return result, err
}

// GetDictionaryCategories returns every category.
func (m *Manager) GetDictionaryCategories(ctx context.Context) ([]*DictionaryCategory, error) {
	return m.FindDictionaryCategories(ctx, nil)
}

// FindDictionaryCategories returns the categories matching all filters.
func (m *Manager) FindDictionaryCategories(ctx context.Context, filters []filter.Item, orders ...filter.Order) ([]*DictionaryCategory, error) {
	var result []*DictionaryCategory
	err := m.read(ctx, func(ctx context.Context) error {
		var err error
		result, err = m.categories.FindAll(ctx, filters, orders...)
		if err != nil {
			return fmt.Errorf("find %s: %w", EntityCategory, err)
		}
		return nil
	})
	return result, err
}

// GetParentDictionaryCategories returns the top-level categories, newest id first.
func (m *Manager) GetParentDictionaryCategories(ctx context.Context) ([]*DictionaryCategory, error) {
	roots := filter.MustParseProperty("EQS_parent.id", filter.NullLiteral)
	return m.FindDictionaryCategories(ctx, []filter.Item{roots}, filter.Desc("id"))
}

// SaveDictionaryCategory inserts or updates a category. A parent gets its
// leaf flag set before the child is written; afterwards the flags of the
// whole tree are recomputed once.
func (m *Manager) SaveDictionaryCategory(ctx context.Context, category *DictionaryCategory) error {
	if err := category.Validate(ctx); err != nil {
		return normalizeValidationErr(err)
	}

	return m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if category.HasParent() {
			if err := m.categories.SetLeaf(ctx, *category.ParentID, true); err != nil {
				return fmt.Errorf("mark parent %s: %w", EntityCategory, err)
			}
		}
		if err := m.categories.Save(ctx, category); err != nil {
			return fmt.Errorf("save %s: %w", EntityCategory, err)
		}
		if err := m.categories.RefreshAllLeaf(ctx); err != nil {
			return fmt.Errorf("refresh leaf flags: %w", err)
		}
		if err := m.audit(ctx, EntityCategory, category.ID, ActionSave, category); err != nil {
			return err
		}
		return m.changed(ctx, EntityCategory)
	})
}

// DeleteDictionaryCategories removes the given categories and recomputes the
// leaf flags once. Categories still referenced by entries cannot be removed.
func (m *Manager) DeleteDictionaryCategories(ctx context.Context, ids []id.ID) error {
	return m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := m.categories.DeleteAll(ctx, ids); err != nil {
			return fmt.Errorf("delete %s: %w", EntityCategory, err)
		}
		if err := m.categories.RefreshAllLeaf(ctx); err != nil {
			return fmt.Errorf("refresh leaf flags: %w", err)
		}
		for _, categoryID := range ids {
			if err := m.audit(ctx, EntityCategory, categoryID, ActionDelete, nil); err != nil {
				return err
			}
		}
		return m.changed(ctx, EntityCategory)
	})
}

// InvalidateLookups drops every cached by-category-code lookup.
func (m *Manager) InvalidateLookups(ctx context.Context) error {
	if m.lookup == nil {
		return nil
	}
	return m.lookup.InvalidateAll(ctx)
}

// --- helpers ---

// read runs fn in a read-only transaction when the manager supports it.
func (m *Manager) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := m.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return m.txManager.RunInTransaction(ctx, fn)
}

func (m *Manager) audit(ctx context.Context, entityType string, entityID id.ID, action string, changes any) error {
	if m.auditor == nil {
		return nil
	}
	if err := m.auditor.Record(ctx, entityType, entityID, action, changes); err != nil {
		return fmt.Errorf("audit %s %s: %w", action, entityType, err)
	}
	return nil
}

// changed notifies other processes and schedules the local cache flush
// for after commit.
func (m *Manager) changed(ctx context.Context, entityType string) error {
	if !m.invalidateOnWrite {
		return nil
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, entityType); err != nil {
			return fmt.Errorf("notify %s change: %w", entityType, err)
		}
	}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		if err := m.InvalidateLookups(ctx); err != nil {
			logger.Warn(ctx, "failed to invalidate dictionary lookups", "error", err)
		}
	})
	return nil
}

func normalizeValidationErr(err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func normalizeGetErr(err error, entityName string, entityID string) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, entityID)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", entityName).WithDetail("id", entityID)
}
