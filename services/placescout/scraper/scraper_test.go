package scraper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"placescout/lib/browser"
	"placescout/lib/telemetry"
	"placescout/services/placescout/planner"
	"placescout/services/placescout/record"
	"placescout/services/placescout/store"

	_ "embed"

	"github.com/stretchr/testify/require"
)

//go:embed testdata/home.html
var homePage string

//go:embed testdata/search.html
var searchPage string

//go:embed testdata/places.html
var placesPage string

// the first result has no detail target so clicking it never leaves the list
//
//go:embed testdata/places_lille.html
var lillePlacesPage string

//go:embed testdata/detail_roma.html
var romaPage string

//go:embed testdata/detail_napoli.html
var napoliPage string

const searchUrl = "https://search.test/"

func testOptions() Options {
	opts := DefaultOptions()
	opts.SearchUrl = searchUrl
	opts.Pause = 0
	opts.Timeout = 0
	opts.DetailPause = 0
	opts.RoutePause = 0
	return opts
}

func testPages() map[string]string {
	return map[string]string{
		searchUrl:                   homePage,
		"search:pizzeria Lyon":      searchPage,
		"places:pizzeria Lyon":      placesPage,
		"detail:roma":               romaPage,
		"detail:napoli":             napoliPage,
		"search:pizzeria Marseille": `<html><body><a href="https://maps.google.com/?q=x" data-goto="places:pizzeria Marseille">Plus de lieux</a></body></html>`,
		"places:pizzeria Marseille": `<html><body><div class="cXedhc"><span>no detail</span></div></body></html>`,
		"search:pizzeria Nice":      `<html><body><p>Aucun résultat</p></body></html>`,
		"search:pizzeria Lille":     `<html><body><span data-goto="places:pizzeria Lille">Lieux</span></body></html>`,
		"places:pizzeria Lille":     lillePlacesPage,
	}
}

func seedStore(t testing.TB, records ...record.Restaurant) string {
	path := filepath.Join(t.TempDir(), "restaurants.json")
	contents, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(path, contents, 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSkipsDuplicates(t *testing.T) {
	defer telemetry.SetupForTesting(t, "test:scraper")()
	ctx := context.Background()

	prior := record.Restaurant{
		Name:     "Napoli",
		Address:  "2 rue Mercière, 69002 Lyon",
		Locality: "Lyon",
		Category: "restaurant italien",
	}
	path := seedStore(t, prior)
	st := store.Load(ctx, path)
	require.Equal(t, 1, st.Len())

	session := browser.NewStaticSession(testPages())
	queries := planner.Plan([]string{"pizzeria"}, []string{"Lyon"})
	require.Equal(t, []planner.Query{{Category: "pizzeria", Locality: "Lyon"}}, queries)

	stats, err := New(session, st, testOptions()).Run(ctx, queries)
	require.NoError(t, err)
	require.Equal(t, Stats{
		Queries:    1,
		Completed:  1,
		Results:    2,
		Accepted:   1,
		Duplicates: 1,
	}, stats)

	reloaded := store.Load(ctx, path).Records()
	require.Len(t, reloaded, 2)
	require.Equal(t, prior, reloaded[0])

	added := reloaded[1]
	require.Equal(t, "Pizzeria Roma", added.Name)
	require.Equal(t, "4,5", added.Rating)
	require.Equal(t, "312", added.ReviewCount)
	require.Equal(t, "10-20 €", added.PriceRange)
	require.Equal(t, "1 rue de la République, 69001 Lyon", added.Address)
	require.Equal(t, "Lyon", added.Locality)
	require.Equal(t, "pizzeria", added.Category)
	require.Equal(t, "https://roma.example/", record.Deref(added.WebsiteLink))
	require.Equal(t, "https://maps.example/a", record.Deref(added.ShareLink))
	require.Nil(t, added.Phone)
	require.Nil(t, added.ReservationLink)

	require.Equal(t, []string{
		"navigate " + searchUrl,
		"frame 0",
		"click div",
		"submit pizzeria Lyon",
		"click span",
		"click span.OSrXXb",
		"back",
		"click span.OSrXXb",
		"back",
	}, session.Trail)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	queries := planner.Plan([]string{"pizzeria"}, []string{"Lyon"})

	first, err := New(browser.NewStaticSession(testPages()), store.Load(ctx, path), testOptions()).Run(ctx, queries)
	require.NoError(t, err)
	require.Equal(t, 2, first.Accepted)

	second, err := New(browser.NewStaticSession(testPages()), store.Load(ctx, path), testOptions()).Run(ctx, queries)
	require.NoError(t, err)
	require.Equal(t, 0, second.Accepted)
	require.Equal(t, 2, second.Duplicates)
	require.Equal(t, 2, store.Load(ctx, path).Len())
}

func TestRunRecoversFromFailures(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	st := store.Load(ctx, path)

	session := browser.NewStaticSession(testPages())
	queries := planner.Plan([]string{"pizzeria"}, []string{"Nice", "Marseille", "Lyon"})

	stats, err := New(session, st, testOptions()).Run(ctx, queries)
	require.NoError(t, err)
	require.Equal(t, Stats{
		Queries:        3,
		Completed:      3,
		AbortedQueries: 1,
		Results:        3,
		Accepted:       2,
		Failed:         1,
	}, stats)
	require.Equal(t, 2, store.Load(ctx, path).Len())

	// the maps link is used when there is no places toggle
	require.Contains(t, session.Trail, "click a")
	require.True(t, strings.HasSuffix(session.Trail[len(session.Trail)-1], "back"))
}

func TestRunContinuesAfterFailingFirstResult(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	st := store.Load(ctx, path)

	session := browser.NewStaticSession(testPages())
	stats, err := New(session, st, testOptions()).Run(ctx, planner.Plan(
		[]string{"pizzeria"},
		[]string{"Lille"},
	))
	require.NoError(t, err)
	require.Equal(t, Stats{
		Queries:   1,
		Completed: 1,
		Results:   3,
		Accepted:  2,
		Failed:    1,
	}, stats)

	names := []string{}
	for _, r := range store.Load(ctx, path).Records() {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"Pizzeria Roma", "Napoli"}, names)

	backs := 0
	for _, action := range session.Trail {
		if action == "back" {
			backs++
		}
	}
	require.Equal(t, 2, backs)
}

func TestRunFailsWhenNavigationFails(t *testing.T) {
	ctx := context.Background()
	st := store.Load(ctx, filepath.Join(t.TempDir(), "restaurants.json"))

	opts := testOptions()
	opts.SearchUrl = "https://unreachable.test/"
	stats, err := New(browser.NewStaticSession(testPages()), st, opts).Run(ctx, planner.Plan(
		[]string{"pizzeria"},
		[]string{"Lyon", "Nice"},
	))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrQueryAborted)
	require.Equal(t, 1, stats.Queries)
}

// cancelAfterBacks cancels the run once the list has been returned to n times.
type cancelAfterBacks struct {
	*browser.StaticSession
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfterBacks) Back(ctx context.Context) error {
	err := c.StaticSession.Back(ctx)
	c.n--
	if c.n == 0 {
		c.cancel()
	}
	return err
}

func TestRunCountsCompletedQueries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := store.Load(ctx, filepath.Join(t.TempDir(), "restaurants.json"))
	queries := planner.Plan([]string{"pizzeria"}, []string{"Lyon", "Nice", "Lille"})

	// cancelled right after the last result of the first query
	session := &cancelAfterBacks{StaticSession: browser.NewStaticSession(testPages()), n: 2, cancel: cancel}
	stats, err := New(session, st, testOptions()).Run(ctx, queries)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, stats.Queries)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, queries[1:], planner.Skip(queries, stats.Completed))

	// cancelled in the middle of the first query
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	session = &cancelAfterBacks{StaticSession: browser.NewStaticSession(testPages()), n: 1, cancel: cancel}
	stats, err = New(session, st, testOptions()).Run(ctx, queries)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, stats.Queries)
	require.Equal(t, 0, stats.Completed)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := store.Load(context.Background(), filepath.Join(t.TempDir(), "restaurants.json"))

	stats, err := New(browser.NewStaticSession(testPages()), st, testOptions()).Run(ctx, planner.Plan(
		[]string{"pizzeria"},
		[]string{"Lyon"},
	))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Stats{}, stats)
}
