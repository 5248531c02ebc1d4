package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "sysdict/internal/core/context"
	"sysdict/internal/core/id"
)

func newTestAuditService(t *testing.T) *AuditService {
	t.Helper()
	svc, err := NewAuditService(nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }
	return svc
}

func TestAuditPrepare_FillsDefaultsFromContext(t *testing.T) {
	svc := newTestAuditService(t)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1", Email: "a@b.c"})
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})

	entry := AuditEntry{EntityType: "data_dictionary", EntityID: id.New(), Action: "save", Changes: json.RawMessage(`{"a":1}`)}
	svc.prepare(ctx, &entry)

	assert.False(t, id.IsNil(entry.ID))
	assert.Equal(t, "u-1", entry.UserID)
	assert.Equal(t, "a@b.c", entry.UserEmail)
	assert.Equal(t, time.UTC, entry.CreatedAt.Location())
	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.JSONEq(t, `{"trace_id":"t-1","request_id":"r-1"}`, string(entry.Metadata))
	assert.JSONEq(t, `{"a":1}`, string(entry.Changes))
}

func TestAuditPrepare_CompressesLargeChanges(t *testing.T) {
	svc := newTestAuditService(t)
	svc.compressThreshold = 64

	payload, err := json.Marshal(map[string]string{"value": string(bytes.Repeat([]byte("x"), 1024))})
	require.NoError(t, err)
	entry := AuditEntry{Changes: payload}

	svc.prepare(context.Background(), &entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(payload))

	require.NoError(t, svc.decompress(&entry))
	assert.Equal(t, payload, []byte(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestAuditDecompress_NoopForUncompressed(t *testing.T) {
	svc := newTestAuditService(t)
	entry := AuditEntry{CompressionAlgo: CompressionNone, Changes: json.RawMessage(`{}`)}

	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, `{}`, string(entry.Changes))
}
