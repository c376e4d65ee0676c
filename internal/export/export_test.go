package export

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/completion"
	"github.com/TobiSchelling/morningbrief/internal/source"
)

var fixedNow = func() time.Time { return time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC) }

var index = []string{"2024-01-01", "2024-01-02", "2024-01-03"}

func docs() map[string]*briefing.Document {
	return map[string]*briefing.Document{
		"2024-01-01": {Sections: []briefing.Section{
			{ID: "tasks", Title: "Tasks", Items: []briefing.Item{
				{ID: "t1", Summary: "File expenses", SourceURL: "https://example.com/expenses"},
				{ID: "t2", Summary: "Renew passport"},
			}},
			{ID: "calendar", Title: "Calendar", Items: []briefing.Item{}},
		}},
		"2024-01-02": {Sections: []briefing.Section{
			{ID: "messages", Title: "Messages", Items: []briefing.Item{
				{ID: "m1", Summary: "Reply to Sam"},
			}},
			{ID: "tasks", Title: "Tasks", Items: []briefing.Item{
				{ID: "t2", Summary: "Renew passport"},
			}},
		}},
		"2024-01-03": {Sections: []briefing.Section{
			{ID: "tasks", Title: "Tasks", Items: []briefing.Item{
				{ID: "t3", Summary: "Book dentist"},
			}},
		}},
	}
}

func mapLoader(m map[string]*briefing.Document) source.Loader {
	return source.LoaderFunc(func(_ context.Context, key string) *briefing.Document {
		return m[key]
	})
}

func newStore(done ...string) *completion.Store {
	s := completion.Load(completion.NewMemoryStorage())
	for _, id := range done {
		s.SetDone(id, true)
	}
	return s
}

func compose(req Request, loader source.Loader, store *completion.Store) string {
	return Compose(context.Background(), req, index, loader, store, Options{Now: fixedNow})
}

func TestComposeFullReport(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-02", Filter: FilterAll}, mapLoader(docs()), newStore("t1"))

	want := "# Impact Review Export\n" +
		"# Monday 1 January 2024 to Tuesday 2 January 2024\n" +
		"# Generated: 2024-01-03T08:00:00.000Z\n" +
		"\n" +
		"## Monday 1 January 2024\n" +
		"\n" +
		"### Tasks\n" +
		"- [x] File expenses (https://example.com/expenses)\n" +
		"- [ ] Renew passport\n" +
		"\n" +
		"## Tuesday 2 January 2024\n" +
		"\n" +
		"### Messages\n" +
		"- [ ] Reply to Sam\n" +
		"\n" +
		"### Tasks\n" +
		"- [ ] Renew passport\n" +
		"\n"
	assert.Equal(t, want, got)
}

func TestComposeRangeIsInclusive(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-02", Filter: FilterAll}, mapLoader(docs()), newStore())
	assert.Contains(t, got, "## Monday 1 January 2024")
	assert.Contains(t, got, "## Tuesday 2 January 2024")
	assert.NotContains(t, got, "## Wednesday 3 January 2024")
	assert.NotContains(t, got, "Book dentist")
}

func TestComposeInvertedRangeIsHeaderOnly(t *testing.T) {
	got := compose(Request{Start: "2024-01-03", End: "2024-01-01", Filter: FilterAll}, mapLoader(docs()), newStore())
	assert.NotContains(t, got, "## ")
	assert.True(t, strings.HasPrefix(got, "# Impact Review Export\n"))
	assert.True(t, strings.HasSuffix(got, "\n\n"))
}

func TestComposeEmptyBoundIsHeaderOnly(t *testing.T) {
	got := compose(Request{Start: "", End: "2024-01-03"}, mapLoader(docs()), newStore())
	assert.NotContains(t, got, "## ")
}

func TestComposeFilter(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-03", Filter: "messages"}, mapLoader(docs()), newStore())
	assert.Contains(t, got, "# Filtered: messages\n")
	assert.Contains(t, got, "### Messages")
	assert.NotContains(t, got, "### Tasks")
}

func TestComposeUnknownFilterHasNoSectionBodies(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-03", Filter: "nope"}, mapLoader(docs()), newStore())
	assert.NotContains(t, got, "### ")
	assert.NotContains(t, got, "- [")
	assert.Contains(t, got, "# Filtered: nope\n")
}

func TestComposeEmptyFilterMeansAll(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-01"}, mapLoader(docs()), newStore())
	assert.NotContains(t, got, "Filtered")
	assert.Contains(t, got, "### Tasks")
}

func TestComposeOmitsEmptySections(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-01", Filter: FilterAll}, mapLoader(docs()), newStore())
	assert.NotContains(t, got, "### Calendar")

	got = compose(Request{Start: "2024-01-01", End: "2024-01-01", Filter: "calendar"}, mapLoader(docs()), newStore())
	assert.NotContains(t, got, "### Calendar")
}

func TestComposeSkipsMissingDocuments(t *testing.T) {
	m := docs()
	delete(m, "2024-01-02")
	got := compose(Request{Start: "2024-01-01", End: "2024-01-03", Filter: FilterAll}, mapLoader(m), newStore())

	assert.Contains(t, got, "## Monday 1 January 2024")
	assert.NotContains(t, got, "## Tuesday 2 January 2024")
	assert.Contains(t, got, "## Wednesday 3 January 2024")
}

func TestComposeIsIdempotent(t *testing.T) {
	store := newStore("t2")
	req := Request{Start: "2024-01-01", End: "2024-01-03", Filter: FilterAll}
	first := compose(req, mapLoader(docs()), store)
	second := compose(req, mapLoader(docs()), store)
	assert.Equal(t, first, second)
}

func TestComposeReflectsCurrentStore(t *testing.T) {
	store := newStore()
	req := Request{Start: "2024-01-02", End: "2024-01-02", Filter: FilterAll}
	assert.Contains(t, compose(req, mapLoader(docs()), store), "- [ ] Reply to Sam")

	store.SetDone("m1", true)
	assert.Contains(t, compose(req, mapLoader(docs()), store), "- [x] Reply to Sam")
}

func TestComposeSharedIDAcrossDates(t *testing.T) {
	got := compose(Request{Start: "2024-01-01", End: "2024-01-02", Filter: "tasks"}, mapLoader(docs()), newStore("t2"))
	assert.Equal(t, 2, strings.Count(got, "- [x] Renew passport"))
}

func TestComposePreservesIndexOrder(t *testing.T) {
	unsorted := []string{"2024-01-02", "2024-01-01"}
	got := Compose(context.Background(), Request{Start: "2024-01-01", End: "2024-01-02"}, unsorted, mapLoader(docs()), newStore(), Options{Now: fixedNow})
	tue := strings.Index(got, "## Tuesday 2 January 2024")
	mon := strings.Index(got, "## Monday 1 January 2024")
	require.NotEqual(t, -1, tue)
	require.NotEqual(t, -1, mon)
	assert.Less(t, tue, mon)
}

func TestComposeConcurrentMatchesSerial(t *testing.T) {
	long := map[string]*briefing.Document{}
	var keys []string
	for d := 1; d <= 28; d++ {
		key := time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		keys = append(keys, key)
		long[key] = &briefing.Document{Sections: []briefing.Section{
			{ID: "tasks", Title: "Tasks", Items: []briefing.Item{{ID: "id-" + key, Summary: "Do " + key}}},
		}}
	}

	var mu sync.Mutex
	inflight, peak := 0, 0
	slow := source.LoaderFunc(func(_ context.Context, key string) *briefing.Document {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		return long[key]
	})

	req := Request{Start: "2024-02-01", End: "2024-02-28", Filter: FilterAll}
	store := newStore("id-2024-02-10")
	serial := Compose(context.Background(), req, keys, slow, store, Options{Now: fixedNow})
	parallel := Compose(context.Background(), req, keys, slow, store, Options{Now: fixedNow, Workers: 4})

	require.Equal(t, serial, parallel)
	assert.LessOrEqual(t, peak, 4)
}

func TestComposeSnapshotChecker(t *testing.T) {
	store := newStore("m1")
	snap := store.Snapshot()
	store.SetDone("m1", false)

	got := Compose(context.Background(), Request{Start: "2024-01-02", End: "2024-01-02"}, index, mapLoader(docs()), snap, Options{Now: fixedNow})
	assert.Contains(t, got, "- [x] Reply to Sam")
}

func TestComposeDefaultClock(t *testing.T) {
	got := Compose(context.Background(), Request{Start: "2024-01-02", End: "2024-01-01"}, index, mapLoader(docs()), nil, Options{})
	assert.Contains(t, got, "# Generated: ")
}

func TestSectionIDs(t *testing.T) {
	req := Request{Start: "2024-01-01", End: "2024-01-02"}
	ids := SectionIDs(context.Background(), req, index, mapLoader(docs()), 1)
	assert.Equal(t, []string{"tasks", "calendar", "messages"}, ids)

	ids = SectionIDs(context.Background(), Request{Start: "2024-01-03", End: "2024-01-01"}, index, mapLoader(docs()), 1)
	assert.Empty(t, ids)
}
