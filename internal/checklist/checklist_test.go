package checklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/completion"
)

func newStore(t *testing.T, done ...string) *completion.Store {
	t.Helper()
	s := completion.Load(completion.NewMemoryStorage())
	for _, id := range done {
		s.SetDone(id, true)
	}
	return s
}

func testDoc() *briefing.Document {
	return &briefing.Document{
		GeneratedAt: time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC),
		Sections: []briefing.Section{
			{ID: "messages", Title: "Messages", Icon: "mail", Items: []briefing.Item{
				{ID: "m1", Summary: "Reply to Sam", Priority: briefing.PriorityHigh},
				{ID: "m2", Summary: "Read newsletter", Priority: briefing.PriorityLow},
			}},
			{ID: "calendar", Title: "Calendar", Icon: "calendar", Items: []briefing.Item{}},
			{ID: "tasks", Title: "Tasks", Icon: "check-square", Items: []briefing.Item{
				{ID: "t1", Summary: "File expenses", Priority: briefing.PriorityHigh},
			}},
		},
	}
}

func TestReconcileCounts(t *testing.T) {
	v := Reconcile(testDoc(), newStore(t, "m1", "t1"))

	require.False(t, v.NoData)
	require.Len(t, v.Sections, 3)
	assert.Equal(t, Stats{Total: 3, Done: 2, Pending: 1, High: 2}, v.Stats)
	assert.Equal(t, testDoc().GeneratedAt.Local().Format("15:04"), v.GeneratedAt)

	msgs := v.Section("messages")
	require.NotNil(t, msgs)
	assert.Equal(t, 1, msgs.Done)
	assert.Equal(t, 2, msgs.Total)
	assert.True(t, msgs.Items[0].Done)
	assert.False(t, msgs.Items[1].Done)
}

func TestGeneratedAtInLocalTime(t *testing.T) {
	orig := time.Local
	time.Local = time.FixedZone("UTC+2", 2*60*60)
	t.Cleanup(func() { time.Local = orig })

	doc := testDoc()
	doc.GeneratedAt = time.Date(2024, 1, 2, 7, 30, 0, 0, time.FixedZone("UTC-5", -5*60*60))
	assert.Equal(t, "14:30", Reconcile(doc, newStore(t)).GeneratedAt)
}

func TestReconcilePreservesOrder(t *testing.T) {
	v := Reconcile(testDoc(), newStore(t))
	ids := []string{v.Sections[0].ID, v.Sections[1].ID, v.Sections[2].ID}
	assert.Equal(t, []string{"messages", "calendar", "tasks"}, ids)
	assert.Equal(t, "m1", v.Sections[0].Items[0].ID)
	assert.Equal(t, "m2", v.Sections[0].Items[1].ID)
}

func TestEmptySectionIsKeptAndMarked(t *testing.T) {
	v := Reconcile(testDoc(), newStore(t))
	cal := v.Section("calendar")
	require.NotNil(t, cal)
	assert.True(t, cal.Empty)
	assert.Equal(t, 0, cal.Done)
	assert.Equal(t, 0, cal.Total)
}

func TestNoData(t *testing.T) {
	assert.True(t, Reconcile(nil, newStore(t)).NoData)
	assert.True(t, Reconcile(&briefing.Document{}, newStore(t)).NoData)

	allEmpty := &briefing.Document{Sections: []briefing.Section{{ID: "a"}, {ID: "b"}}}
	v := Reconcile(allEmpty, newStore(t))
	assert.False(t, v.NoData)
	assert.Equal(t, Stats{}, v.Stats)
	assert.Len(t, v.Sections, 2)
}

func TestDonePlusPendingIsTotal(t *testing.T) {
	doc := testDoc()
	for _, done := range [][]string{nil, {"m1"}, {"m1", "m2"}, {"m1", "m2", "t1"}, {"unrelated"}} {
		s := Reconcile(doc, newStore(t, done...)).Stats
		assert.Equal(t, s.Total, s.Done+s.Pending, "done=%v", done)
	}
}

func TestHighIgnoresCompletion(t *testing.T) {
	doc := testDoc()
	store := newStore(t)
	before := Reconcile(doc, store).Stats.High

	store.SetDone("m1", true)
	store.SetDone("t1", true)
	assert.Equal(t, before, Reconcile(doc, store).Stats.High)
}

func TestSharedIDAcrossDocuments(t *testing.T) {
	monday := &briefing.Document{Sections: []briefing.Section{
		{ID: "tasks", Title: "Tasks", Items: []briefing.Item{{ID: "renew-passport", Summary: "Renew passport"}}},
	}}
	tuesday := &briefing.Document{Sections: []briefing.Section{
		{ID: "tasks", Title: "Tasks", Items: []briefing.Item{{ID: "renew-passport", Summary: "Renew passport (again)"}}},
	}}

	store := newStore(t)
	store.SetDone("renew-passport", true)

	assert.Equal(t, 1, Reconcile(monday, store).Stats.Done)
	assert.Equal(t, 1, Reconcile(tuesday, store).Stats.Done)
}

func TestReflectsLatestStore(t *testing.T) {
	doc := testDoc()
	store := newStore(t)
	assert.Equal(t, 0, Reconcile(doc, store).Stats.Done)

	store.SetDone("m2", true)
	assert.Equal(t, 1, Reconcile(doc, store).Stats.Done)
}

func TestSnapshotChecker(t *testing.T) {
	snap := completion.Snapshot{"m2": true}
	v := Reconcile(testDoc(), snap)
	assert.Equal(t, 1, v.Stats.Done)
}

func TestNilChecker(t *testing.T) {
	v := Reconcile(testDoc(), nil)
	assert.Equal(t, 0, v.Stats.Done)
	assert.Equal(t, 3, v.Stats.Pending)
}
