package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/store"
)

func TestApplyAdd(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	m := NewManager(sessions)

	report := m.Apply(ctx, "u1", []Directive{
		{Action: ActionAdd, Content: "Holds a long position in AAPL"},
	})

	require.Len(t, report.Applied, 1)
	assert.Empty(t, report.Failed)
	assert.NotEmpty(t, report.Applied[0].RecordID)

	records, err := sessions.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Holds a long position in AAPL", records[0].Content)
}

func TestApplyAddThenUpdateSameBatch(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	m := NewManager(sessions)

	report := m.Apply(ctx, "u1", []Directive{
		{Action: ActionAdd, Content: "Prefers growth stocks"},
	})
	require.Len(t, report.Applied, 1)
	id := report.Applied[0].RecordID

	report = m.Apply(ctx, "u1", []Directive{
		{Action: ActionUpdate, RecordID: id, Content: "Prefers dividend stocks"},
	})
	require.Len(t, report.Applied, 1)

	records, err := sessions.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Prefers dividend stocks", records[0].Content)
	assert.Equal(t, id, records[0].ID)
}

func TestApplyDelete(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	m := NewManager(sessions)

	report := m.Apply(ctx, "u1", []Directive{{Action: ActionAdd, Content: "temp"}})
	id := report.Applied[0].RecordID

	report = m.Apply(ctx, "u1", []Directive{{Action: ActionDelete, RecordID: id}})
	require.Len(t, report.Applied, 1)

	records, err := sessions.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestApplyPartialFailure(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	m := NewManager(sessions)

	report := m.Apply(ctx, "u1", []Directive{
		{Action: ActionUpdate, RecordID: "missing", Content: "x"},
		{Action: ActionAdd, Content: "still applied"},
		{Action: "rename", Content: "bad action"},
	})

	require.Len(t, report.Applied, 1)
	require.Len(t, report.Failed, 2)

	assert.True(t, core.IsKind(report.Failed[0].Err, core.ErrNotFound))
	assert.True(t, core.IsKind(report.Failed[1].Err, core.ErrInvalidArguments))

	records, err := sessions.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "still applied", records[0].Content)
}

func TestDirectiveValidate(t *testing.T) {
	assert.Error(t, Directive{Action: ActionAdd}.Validate())
	assert.Error(t, Directive{Action: ActionUpdate, Content: "x"}.Validate())
	assert.Error(t, Directive{Action: ActionDelete}.Validate())
	assert.NoError(t, Directive{Action: ActionAdd, Content: "x"}.Validate())
	assert.NoError(t, Directive{Action: ActionDelete, RecordID: "r1"}.Validate())
}

type recordingIndex struct {
	upserts []core.MemoryRecord
	removes []string
	fail    bool
}

func (r *recordingIndex) Upsert(_ context.Context, record core.MemoryRecord) error {
	if r.fail {
		return errors.New("index down")
	}
	r.upserts = append(r.upserts, record)
	return nil
}

func (r *recordingIndex) Remove(_ context.Context, _, recordID string) error {
	if r.fail {
		return errors.New("index down")
	}
	r.removes = append(r.removes, recordID)
	return nil
}

func TestIndexSync(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{}
	m := NewManager(store.NewInMemoryStore(), func(o *ManagerOptions) {
		o.Index = idx
	})

	report := m.Apply(ctx, "u1", []Directive{{Action: ActionAdd, Content: "fact"}})
	require.Len(t, report.Applied, 1)
	require.Len(t, idx.upserts, 1)
	assert.Equal(t, "fact", idx.upserts[0].Content)

	m.Apply(ctx, "u1", []Directive{{Action: ActionDelete, RecordID: report.Applied[0].RecordID}})
	assert.Equal(t, []string{report.Applied[0].RecordID}, idx.removes)
}

func TestIndexFailureDoesNotFailDirective(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	m := NewManager(sessions, func(o *ManagerOptions) {
		o.Index = &recordingIndex{fail: true}
	})

	report := m.Apply(ctx, "u1", []Directive{{Action: ActionAdd, Content: "fact"}})
	require.Len(t, report.Applied, 1)
	assert.Empty(t, report.Failed)

	records, err := sessions.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUpdateProviderBuffersDirectives(t *testing.T) {
	ctx := context.Background()
	buffer := NewBuffer()
	p := NewUpdateProvider(buffer)

	assert.Equal(t, "update_user_memory", p.Name())

	result, err := p.Invoke(ctx, map[string]any{"action": "add", "content": "Lives in Berlin"})
	require.NoError(t, err)
	assert.Contains(t, result, "memory update accepted")

	_, err = p.Invoke(ctx, map[string]any{"action": "delete", "id": "r1"})
	require.NoError(t, err)

	directives := buffer.Drain()
	require.Len(t, directives, 2)
	assert.Equal(t, ActionAdd, directives[0].Action)
	assert.Equal(t, "Lives in Berlin", directives[0].Content)
	assert.NotEmpty(t, directives[0].RecordID)
	assert.Contains(t, result, directives[0].RecordID)
	assert.Equal(t, ActionDelete, directives[1].Action)
	assert.Equal(t, "r1", directives[1].RecordID)

	assert.Zero(t, buffer.Len())
}

func TestApplyHonorsPreAssignedRecordID(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemoryStore()
	m := NewManager(sessions)

	report := m.Apply(ctx, "u1", []Directive{
		{Action: ActionAdd, RecordID: "rec-1", Content: "Lives in Berlin"},
		{Action: ActionUpdate, RecordID: "rec-1", Content: "Lives in Hamburg"},
	})
	require.Len(t, report.Applied, 2)
	require.Empty(t, report.Failed)
	assert.Equal(t, "rec-1", report.Applied[0].RecordID)

	records, err := sessions.ReadMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "Lives in Hamburg", records[0].Content)
}

func TestUpdateProviderRejectsInvalidDirective(t *testing.T) {
	buffer := NewBuffer()
	p := NewUpdateProvider(buffer)

	_, err := p.Invoke(context.Background(), map[string]any{"action": "add"})
	assert.True(t, core.IsKind(err, core.ErrInvalidArguments))
	assert.Zero(t, buffer.Len())
}

func TestSnapshot(t *testing.T) {
	assert.Empty(t, Snapshot(nil))

	rec := core.NewMemoryRecord("u1", "Prefers concise answers")
	out := Snapshot([]core.MemoryRecord{rec})
	assert.Contains(t, out, rec.ID)
	assert.Contains(t, out, "Prefers concise answers")
}
