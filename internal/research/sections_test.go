package research

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"investorbase/internal/models"
	"investorbase/internal/render"
	"investorbase/internal/storage"
)

func seededRecords(t *testing.T) *fakeRecords {
	t.Helper()
	f := newFakeRecords()
	ctx := context.Background()
	require.NoError(t, f.CreatePending(ctx, models.ResearchRecord{ResearchID: "done", CompanyID: "co-1"}))
	require.NoError(t, f.Complete(ctx, "done", storage.Completion{
		RawText:     "## Latest News\n### Acme raises $10M\n**Source:** TechCrunch\n**URL:** https://example.com/a\n\n## Sources\n- x",
		CompletedAt: time.Now(),
	}))
	require.NoError(t, f.CreatePending(ctx, models.ResearchRecord{ResearchID: "waiting", CompanyID: "co-1"}))
	return f
}

func TestSectionReaderRendersAndCaches(t *testing.T) {
	records := seededRecords(t)
	reader, err := NewSectionReader(records, render.NewRenderer(render.DefaultPalette()), 8)
	require.NoError(t, err)

	v, err := reader.Section(context.Background(), "done", "latest news", "")
	require.NoError(t, err)
	require.True(t, v.Found)
	require.Equal(t, "latest news", v.Name)
	require.True(t, strings.HasPrefix(v.RawSpan, "## Latest News"))
	require.Equal(t, "labeled-heading", v.Strategy)
	require.Len(t, v.Items, 1)
	require.Equal(t, models.KindNews, v.Items[0].Kind)
	require.Equal(t, "news", v.Markup.Theme)
	require.Contains(t, v.HTML, "Acme raises $10M")

	_, err = reader.Section(context.Background(), "done", "Latest News", "")
	require.NoError(t, err)
	require.Equal(t, int32(1), records.gets.Load())
}

func TestSectionReaderMissingSection(t *testing.T) {
	reader, err := NewSectionReader(seededRecords(t), render.NewRenderer(render.DefaultPalette()), 8)
	require.NoError(t, err)

	v, err := reader.Section(context.Background(), "done", "Exit Strategy", "risk")
	require.NoError(t, err)
	require.False(t, v.Found)
	require.Empty(t, v.Items)
	require.Equal(t, "risk", v.Markup.Theme)
	require.Contains(t, v.HTML, render.NoDataNotice)
}

func TestSectionReaderDoesNotCachePending(t *testing.T) {
	records := seededRecords(t)
	reader, err := NewSectionReader(records, render.NewRenderer(render.DefaultPalette()), 8)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		v, err := reader.Section(context.Background(), "waiting", "Latest News", "")
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, v.Status)
		require.Contains(t, v.HTML, render.NoDataNotice)
	}
	require.Equal(t, int32(2), records.gets.Load())
}

func TestSectionReaderErrors(t *testing.T) {
	reader, err := NewSectionReader(seededRecords(t), render.NewRenderer(render.DefaultPalette()), 8)
	require.NoError(t, err)

	_, err = reader.Section(context.Background(), "missing", "Latest News", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = reader.Section(context.Background(), "done", " ", "")
	require.True(t, IsValidation(err))
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	require.Equal(t, 1, k.size())
	unlock()
	require.Equal(t, 0, k.size())
}
