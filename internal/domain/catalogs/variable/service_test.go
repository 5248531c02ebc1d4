package variable

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
	"sysdict/internal/core/tx"
	"sysdict/internal/domain"
	"sysdict/internal/domain/filter"
)

// --- fakes ---

type fakeTx struct {
	commits   int
	rollbacks int
	readOnly  int
}

func (f *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, runHooks := tx.WithCommitHooks(ctx)
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	runHooks(ctx)
	return nil
}

func (f *fakeTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	f.readOnly++
	return fn(ctx)
}

type fakeCategoryRepo struct {
	calls   []string
	rows    map[id.ID]*DictionaryCategory
	leafSet []id.ID
	deleted [][]id.ID

	findFilters []filter.Item
	findOrders  []filter.Order

	saveErr error
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{rows: make(map[id.ID]*DictionaryCategory)}
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, categoryID id.ID) (*DictionaryCategory, error) {
	r.calls = append(r.calls, "get")
	c, ok := r.rows[categoryID]
	if !ok {
		return nil, apperror.NewNotFound("row", categoryID)
	}
	return c, nil
}

func (r *fakeCategoryRepo) Save(_ context.Context, c *DictionaryCategory) error {
	r.calls = append(r.calls, "save")
	if r.saveErr != nil {
		return r.saveErr
	}
	r.rows[c.ID] = c
	return nil
}

func (r *fakeCategoryRepo) DeleteAll(_ context.Context, ids []id.ID) error {
	r.calls = append(r.calls, "delete")
	r.deleted = append(r.deleted, ids)
	for _, categoryID := range ids {
		delete(r.rows, categoryID)
	}
	return nil
}

func (r *fakeCategoryRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*DictionaryCategory], error) {
	return domain.ListResult[*DictionaryCategory]{}, nil
}

func (r *fakeCategoryRepo) FindAll(_ context.Context, filters []filter.Item, orders ...filter.Order) ([]*DictionaryCategory, error) {
	r.calls = append(r.calls, "find")
	r.findFilters = filters
	r.findOrders = orders
	out := make([]*DictionaryCategory, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCategoryRepo) SetLeaf(_ context.Context, categoryID id.ID, leaf bool) error {
	r.calls = append(r.calls, "setLeaf")
	r.leafSet = append(r.leafSet, categoryID)
	if c, ok := r.rows[categoryID]; ok {
		c.Leaf = leaf
	}
	return nil
}

func (r *fakeCategoryRepo) RefreshAllLeaf(context.Context) error {
	r.calls = append(r.calls, "refresh")
	for _, c := range r.rows {
		c.Leaf = false
	}
	for _, c := range r.rows {
		if c.HasParent() {
			if parent, ok := r.rows[*c.ParentID]; ok {
				parent.Leaf = true
			}
		}
	}
	return nil
}

func (r *fakeCategoryRepo) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeDictionaryRepo struct {
	rows      map[id.ID]*DataDictionary
	codes     map[id.ID]CategoryCode
	deleted   [][]id.ID
	listArg   domain.ListFilter
	lookups   int
	lookupErr error

	mu sync.Mutex
}

func newFakeDictionaryRepo() *fakeDictionaryRepo {
	return &fakeDictionaryRepo{
		rows:  make(map[id.ID]*DataDictionary),
		codes: make(map[id.ID]CategoryCode),
	}
}

func (r *fakeDictionaryRepo) GetByID(_ context.Context, entryID id.ID) (*DataDictionary, error) {
	d, ok := r.rows[entryID]
	if !ok {
		return nil, apperror.NewNotFound("row", entryID)
	}
	return d, nil
}

func (r *fakeDictionaryRepo) Save(_ context.Context, d *DataDictionary) error {
	r.rows[d.ID] = d
	return nil
}

func (r *fakeDictionaryRepo) DeleteAll(_ context.Context, ids []id.ID) error {
	r.deleted = append(r.deleted, ids)
	for _, entryID := range ids {
		delete(r.rows, entryID)
	}
	return nil
}

func (r *fakeDictionaryRepo) List(_ context.Context, f domain.ListFilter) (domain.ListResult[*DataDictionary], error) {
	r.listArg = f
	items := make([]*DataDictionary, 0, len(r.rows))
	for _, d := range r.rows {
		items = append(items, d)
	}
	return domain.ListResult[*DataDictionary]{Items: items, TotalCount: int64(len(items)), Limit: f.Limit, Offset: f.Offset}, nil
}

func (r *fakeDictionaryRepo) FindAll(context.Context, []filter.Item, ...filter.Order) ([]*DataDictionary, error) {
	return nil, nil
}

func (r *fakeDictionaryRepo) GetByCategoryCode(_ context.Context, code CategoryCode, ignoreValues []string) ([]*DataDictionary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	ignored := make(map[string]bool, len(ignoreValues))
	for _, v := range ignoreValues {
		ignored[v] = true
	}
	var out []*DataDictionary
	for entryID, d := range r.rows {
		if r.codes[entryID] == code && !ignored[d.Value] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (r *fakeDictionaryRepo) add(code CategoryCode, value string) *DataDictionary {
	d := NewDataDictionary(id.New(), value, value)
	r.rows[d.ID] = d
	r.codes[d.ID] = code
	return d
}

// mapLookup is a minimal LookupCache without single-flight.
type mapLookup struct {
	entries       map[string][]*DataDictionary
	invalidations int
}

func newMapLookup() *mapLookup {
	return &mapLookup{entries: make(map[string][]*DataDictionary)}
}

func (c *mapLookup) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) ([]*DataDictionary, error)) ([]*DataDictionary, error) {
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.entries[key] = v
	return v, nil
}

func (c *mapLookup) InvalidateAll(context.Context) error {
	c.invalidations++
	c.entries = make(map[string][]*DataDictionary)
	return nil
}

type recordingAuditor struct {
	records []string
	err     error
}

func (a *recordingAuditor) Record(_ context.Context, entityType string, _ id.ID, action string, _ any) error {
	a.records = append(a.records, entityType+":"+action)
	return a.err
}

type recordingNotifier struct {
	payloads []string
}

func (n *recordingNotifier) Notify(_ context.Context, payload string) error {
	n.payloads = append(n.payloads, payload)
	return nil
}

type fixture struct {
	txm          *fakeTx
	categories   *fakeCategoryRepo
	dictionaries *fakeDictionaryRepo
	lookup       *mapLookup
	auditor      *recordingAuditor
	notifier     *recordingNotifier
	manager      *Manager
}

func newFixture(invalidateOnWrite bool) *fixture {
	f := &fixture{
		txm:          &fakeTx{},
		categories:   newFakeCategoryRepo(),
		dictionaries: newFakeDictionaryRepo(),
		lookup:       newMapLookup(),
		auditor:      &recordingAuditor{},
		notifier:     &recordingNotifier{},
	}
	f.manager = NewManager(ManagerConfig{
		Categories:        f.categories,
		Dictionaries:      f.dictionaries,
		TxManager:         f.txm,
		Lookup:            f.lookup,
		Auditor:           f.auditor,
		Notifier:          f.notifier,
		InvalidateOnWrite: invalidateOnWrite,
	})
	return f
}

// --- category tests ---

func TestSaveDictionaryCategory_WithParentMarksParentFirst(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	parent := NewDictionaryCategory("State", "State")
	require.NoError(t, f.manager.SaveDictionaryCategory(ctx, parent))
	f.categories.calls = nil

	child := NewDictionaryCategory("Active", "Active")
	child.SetParent(parent.ID)
	require.NoError(t, f.manager.SaveDictionaryCategory(ctx, child))

	assert.Equal(t, []string{"setLeaf", "save", "refresh"}, f.categories.calls)
	assert.Equal(t, []id.ID{parent.ID}, f.categories.leafSet)
	assert.True(t, f.categories.rows[parent.ID].Leaf)
	assert.False(t, f.categories.rows[child.ID].Leaf)
}

func TestSaveDictionaryCategory_RootSkipsParentUpdate(t *testing.T) {
	f := newFixture(true)

	root := NewDictionaryCategory("State", "State")
	require.NoError(t, f.manager.SaveDictionaryCategory(context.Background(), root))

	assert.Equal(t, []string{"save", "refresh"}, f.categories.calls)
	assert.Empty(t, f.categories.leafSet)
	assert.Equal(t, 1, f.txm.commits)
}

func TestSaveDictionaryCategory_ValidationFailsBeforeStorage(t *testing.T) {
	f := newFixture(true)

	bad := NewDictionaryCategory("", "State")
	err := f.manager.SaveDictionaryCategory(context.Background(), bad)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, f.categories.calls)
}

func TestSaveDictionaryCategory_SelfParentRejected(t *testing.T) {
	f := newFixture(true)

	c := NewDictionaryCategory("State", "State")
	c.SetParent(c.ID)
	err := f.manager.SaveDictionaryCategory(context.Background(), c)

	require.Error(t, err)
	assert.Empty(t, f.categories.calls)
}

func TestSaveDictionaryCategory_StorageErrorRollsBack(t *testing.T) {
	f := newFixture(true)
	f.categories.saveErr = errors.New("boom")

	parent := NewDictionaryCategory("State", "State")
	f.categories.rows[parent.ID] = parent
	child := NewDictionaryCategory("Active", "Active")
	child.SetParent(parent.ID)

	err := f.manager.SaveDictionaryCategory(context.Background(), child)

	require.Error(t, err)
	assert.Equal(t, 1, f.txm.rollbacks)
	assert.Equal(t, 0, f.categories.count("refresh"))
	assert.Equal(t, 0, f.lookup.invalidations)
	assert.Empty(t, f.notifier.payloads)
}

func TestDeleteDictionaryCategories_RefreshesOnce(t *testing.T) {
	f := newFixture(true)
	a := NewDictionaryCategory("A", "A")
	b := NewDictionaryCategory("B", "B")
	f.categories.rows[a.ID] = a
	f.categories.rows[b.ID] = b

	require.NoError(t, f.manager.DeleteDictionaryCategories(context.Background(), []id.ID{a.ID, b.ID}))

	assert.Equal(t, []string{"delete", "refresh"}, f.categories.calls)
	assert.Empty(t, f.categories.rows)
	assert.Equal(t, []string{EntityCategory + ":" + ActionDelete, EntityCategory + ":" + ActionDelete}, f.auditor.records)
}

func TestDeleteDictionaryCategories_EmptyListForwarded(t *testing.T) {
	f := newFixture(true)

	require.NoError(t, f.manager.DeleteDictionaryCategories(context.Background(), []id.ID{}))

	require.Len(t, f.categories.deleted, 1)
	assert.Empty(t, f.categories.deleted[0])
	assert.Equal(t, 1, f.categories.count("refresh"))
}

func TestDeleteDictionaryCategories_RecomputesParentLeaf(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	parent := NewDictionaryCategory("State", "State")
	require.NoError(t, f.manager.SaveDictionaryCategory(ctx, parent))
	child := NewDictionaryCategory("Active", "Active")
	child.SetParent(parent.ID)
	require.NoError(t, f.manager.SaveDictionaryCategory(ctx, child))
	require.True(t, f.categories.rows[parent.ID].Leaf)

	require.NoError(t, f.manager.DeleteDictionaryCategories(ctx, []id.ID{child.ID}))
	assert.False(t, f.categories.rows[parent.ID].Leaf)
}

func TestGetParentDictionaryCategories_FiltersNullParentByIDDesc(t *testing.T) {
	f := newFixture(true)

	_, err := f.manager.GetParentDictionaryCategories(context.Background())
	require.NoError(t, err)

	require.Len(t, f.categories.findFilters, 1)
	assert.Equal(t, filter.Item{Field: "parent_id", Operator: filter.IsNull}, f.categories.findFilters[0])
	assert.Equal(t, []filter.Order{{Field: "id", Desc: true}}, f.categories.findOrders)
	assert.Equal(t, 1, f.txm.readOnly)
}

func TestGetDictionaryCategories_NoFilters(t *testing.T) {
	f := newFixture(true)
	f.categories.rows[id.New()] = NewDictionaryCategory("A", "A")

	result, err := f.manager.GetDictionaryCategories(context.Background())
	require.NoError(t, err)

	assert.Len(t, result, 1)
	assert.Nil(t, f.categories.findFilters)
}

func TestGetDictionaryCategory_NotFound(t *testing.T) {
	f := newFixture(true)

	_, err := f.manager.GetDictionaryCategory(context.Background(), id.New())

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	assert.Equal(t, EntityCategory, appErr.Details["entity"])
}

// --- data dictionary tests ---

func TestGetDataDictionariesByCategoryCode_CachedByKey(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	f.dictionaries.add(CodeState, "1")
	f.dictionaries.add(CodeState, "0")

	first, err := f.manager.GetDataDictionariesByCategoryCode(ctx, CodeState, "0")
	require.NoError(t, err)
	second, err := f.manager.GetDataDictionariesByCategoryCode(ctx, CodeState, "0")
	require.NoError(t, err)

	assert.Equal(t, 1, f.dictionaries.lookups)
	require.Len(t, first, 1)
	assert.Equal(t, "1", first[0].Value)
	assert.Same(t, first[0], second[0])
	assert.Contains(t, f.lookup.entries, "State-0")
}

func TestGetDataDictionariesByCategoryCode_DistinctIgnoreListsDistinctKeys(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	f.dictionaries.add(CodeState, "1")

	_, err := f.manager.GetDataDictionariesByCategoryCode(ctx, CodeState)
	require.NoError(t, err)
	_, err = f.manager.GetDataDictionariesByCategoryCode(ctx, CodeState, "1")
	require.NoError(t, err)

	assert.Equal(t, 2, f.dictionaries.lookups)
	assert.Contains(t, f.lookup.entries, "State-")
	assert.Contains(t, f.lookup.entries, "State-1")
}

func TestGetDataDictionariesByCategoryCode_ErrorNotCached(t *testing.T) {
	f := newFixture(true)
	f.dictionaries.lookupErr = errors.New("db down")

	_, err := f.manager.GetDataDictionariesByCategoryCode(context.Background(), CodeState)

	require.Error(t, err)
	assert.Empty(t, f.lookup.entries)
}

func TestSaveDataDictionary_InvalidatesLookupAfterCommit(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	f.dictionaries.add(CodeState, "1")

	_, err := f.manager.GetDataDictionariesByCategoryCode(ctx, CodeState)
	require.NoError(t, err)

	entry := NewDataDictionary(id.New(), "Disabled", "0")
	require.NoError(t, f.manager.SaveDataDictionary(ctx, entry))

	assert.Equal(t, 1, f.lookup.invalidations)
	assert.Empty(t, f.lookup.entries)
	assert.Equal(t, []string{EntityDictionary}, f.notifier.payloads)
	assert.Equal(t, []string{EntityDictionary + ":" + ActionSave}, f.auditor.records)
}

func TestSaveDataDictionary_NoInvalidationWhenDisabled(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.dictionaries.add(CodeState, "1")

	_, err := f.manager.GetDataDictionariesByCategoryCode(ctx, CodeState)
	require.NoError(t, err)
	require.NoError(t, f.manager.SaveDataDictionary(ctx, NewDataDictionary(id.New(), "Disabled", "0")))

	assert.Equal(t, 0, f.lookup.invalidations)
	assert.Contains(t, f.lookup.entries, "State-")
	assert.Empty(t, f.notifier.payloads)
}

func TestSaveDataDictionary_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(true)
	f.auditor.err = errors.New("audit down")

	err := f.manager.SaveDataDictionary(context.Background(), NewDataDictionary(id.New(), "Enabled", "1"))

	require.Error(t, err)
	assert.Equal(t, 1, f.txm.rollbacks)
	assert.Equal(t, 0, f.lookup.invalidations)
}

func TestSaveDataDictionary_InvalidTypedValue(t *testing.T) {
	f := newFixture(true)

	entry := NewDataDictionary(id.New(), "Limit", "ten")
	entry.Type = TypeInteger
	err := f.manager.SaveDataDictionary(context.Background(), entry)

	require.Error(t, err)
	assert.Empty(t, f.dictionaries.rows)
}

func TestDeleteDataDictionaries_EmptyListForwarded(t *testing.T) {
	f := newFixture(true)

	require.NoError(t, f.manager.DeleteDataDictionaries(context.Background(), nil))

	require.Len(t, f.dictionaries.deleted, 1)
	assert.Empty(t, f.dictionaries.deleted[0])
}

func TestSearchDataDictionaryPage_NormalizesWindow(t *testing.T) {
	f := newFixture(true)
	f.dictionaries.add(CodeState, "1")

	result, err := f.manager.SearchDataDictionaryPage(context.Background(), domain.ListFilter{Limit: 10000, Offset: -5})
	require.NoError(t, err)

	assert.Equal(t, domain.MaxListLimit, f.dictionaries.listArg.Limit)
	assert.Equal(t, 0, f.dictionaries.listArg.Offset)
	assert.Equal(t, int64(1), result.TotalCount)
}

func TestGetDataDictionary_Found(t *testing.T) {
	f := newFixture(true)
	entry := f.dictionaries.add(CodeState, "1")

	got, err := f.manager.GetDataDictionary(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Same(t, entry, got)
}

func TestLookupKey(t *testing.T) {
	assert.Equal(t, "State-", LookupKey(CodeState, nil))
	assert.Equal(t, "State-0-2", LookupKey(CodeState, []string{"0", "2"}))
}
