package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"placescout/services/placescout/record"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func restaurant(name, address, locality, share string) record.Restaurant {
	return record.Restaurant{
		Name:      name,
		Rating:    "4,5",
		Address:   address,
		Locality:  locality,
		Category:  "pizzeria",
		ShareLink: record.Optional(share),
	}
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restaurants.json")
	s := Load(context.Background(), path)
	require.Equal(t, 0, s.Len())
	require.Equal(t, path, s.Path())

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "loading must not create the document")
}

func TestLoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restaurants.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Roma"`), 0644))

	s := Load(context.Background(), path)
	require.Equal(t, 0, s.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Name(), "restaurants.json.corrupt-"), entries[0].Name())
}

func TestAppendIsDurable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	s := Load(ctx, path)

	appended := []record.Restaurant{
		restaurant("Roma", "1 rue A, Lyon", "Lyon", "https://maps.example/a"),
		restaurant("Napoli", "2 rue B, Lyon", "Lyon", ""),
		{Name: "Chez Lulu", Locality: "Nice", Category: "bistrot", PriceRange: "€€"},
	}
	for i, r := range appended {
		require.NoError(t, s.Append(ctx, r))

		reloaded := Load(ctx, path)
		if diff := cmp.Diff(appended[:i+1], reloaded.Records()); diff != "" {
			t.Fatalf("reloaded store differs after append %d (-want +got):\n%s", i, diff)
		}
	}

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(contents, &raw))
	require.Len(t, raw, 3)
	require.Contains(t, raw[1], "share_link")
	require.Nil(t, raw[1]["share_link"])
	require.Contains(t, string(contents), "€€")

	reloaded := Load(ctx, path)
	require.True(t, reloaded.KnowsLink("https://maps.example/a"))
	require.True(t, reloaded.IsDuplicate(restaurant("Napoli", "2 rue B, Lyon", "Lyon", "")))
}

func TestShareLinkIdentity(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, filepath.Join(t.TempDir(), "restaurants.json"))

	require.NoError(t, s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "https://maps.example/a")))

	other := restaurant("Roma Centro", "9 rue Z", "Paris", "https://maps.example/a")
	require.True(t, s.IsDuplicate(other))
	require.ErrorIs(t, s.Append(ctx, other), ErrDuplicate)
	require.Equal(t, 1, s.Len())

	require.False(t, s.IsDuplicate(restaurant("Roma", "1 rue A", "Lyon", "https://maps.example/b")))
}

func TestFallbackIdentity(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, filepath.Join(t.TempDir(), "restaurants.json"))

	require.NoError(t, s.Append(ctx, restaurant("Napoli", "2 rue B", "Lyon", "")))

	require.True(t, s.IsDuplicate(restaurant("Napoli", "2 rue B", "Lyon", "")))
	require.False(t, s.IsDuplicate(restaurant("Napoli II", "2 rue B", "Lyon", "")))
	require.False(t, s.IsDuplicate(restaurant("Napoli", "3 rue B", "Lyon", "")))
	require.False(t, s.IsDuplicate(restaurant("Napoli", "2 rue B", "Nice", "")))
	// compared exactly, cosmetic differences are not folded
	require.False(t, s.IsDuplicate(restaurant("napoli", "2 rue B", "Lyon", "")))

	require.NoError(t, s.Append(ctx, restaurant("", "", "Lyon", "")))
	require.False(t, s.IsDuplicate(restaurant("", "", "Lyon", "")), "incomplete identities never match")

	// a stored record with a share link still answers for its identity
	require.NoError(t, s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "https://maps.example/a")))
	require.True(t, s.IsDuplicate(restaurant("Roma", "1 rue A", "Lyon", "")))
}

func TestAppendWriteFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "missing-dir", "restaurants.json")
	s := Load(ctx, path)

	err := s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "https://maps.example/a"))
	require.ErrorIs(t, err, ErrPersist)
	require.Equal(t, 1, s.Len())
	require.True(t, s.KnowsLink("https://maps.example/a"))

	require.ErrorIs(t, s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "https://maps.example/a")), ErrDuplicate)
}

func TestReadLeavesCorruptedDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "restaurants.json")
	contents := []byte(`[{"name": "Roma"`)
	require.NoError(t, os.WriteFile(path, contents, 0644))

	_, err := Read(ctx, path)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "restaurants.json", entries[0].Name())
	kept, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, contents, kept)

	records, err := Read(ctx, filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestReadMatchesLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	s := Load(ctx, path)
	require.NoError(t, s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "https://maps.example/a")))
	require.NoError(t, s.Append(ctx, restaurant("Napoli", "2 rue B", "Lyon", "")))

	records, err := Read(ctx, path)
	require.NoError(t, err)
	if diff := cmp.Diff(s.Records(), records); diff != "" {
		t.Fatalf("read records differ (-want +got):\n%s", diff)
	}
}

func TestLoadFrenchKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	legacy := `[
    {
        "nom": "Pizzeria Roma",
        "note": "4,5",
        "adresse": "1 rue A, Lyon",
        "ville": "Lyon",
        "categorie": "pizzeria",
        "nombre_avis": "312",
        "prix": "10-20 €",
        "lien_reservation": null,
        "lien_site": "https://roma.example/",
        "telephone": null,
        "lien_partage": "https://maps.example/a"
    },
    {
        "nom": "Napoli",
        "note": "",
        "adresse": "2 rue B, Lyon",
        "ville": "Lyon",
        "categorie": "pizzeria",
        "nombre_avis": "",
        "prix": "",
        "lien_reservation": null,
        "lien_site": null,
        "telephone": "04 78 00 00 00",
        "lien_partage": null
    }
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	s := Load(ctx, path)
	require.Equal(t, 2, s.Len())
	require.True(t, s.KnowsLink("https://maps.example/a"))
	require.True(t, s.IsDuplicate(restaurant("Napoli", "2 rue B, Lyon", "Lyon", "")))

	want := []record.Restaurant{
		{
			Name:        "Pizzeria Roma",
			Rating:      "4,5",
			Address:     "1 rue A, Lyon",
			Locality:    "Lyon",
			Category:    "pizzeria",
			ReviewCount: "312",
			PriceRange:  "10-20 €",
			WebsiteLink: record.Optional("https://roma.example/"),
			ShareLink:   record.Optional("https://maps.example/a"),
		},
		{
			Name:     "Napoli",
			Address:  "2 rue B, Lyon",
			Locality: "Lyon",
			Category: "pizzeria",
			Phone:    record.Optional("04 78 00 00 00"),
		},
	}
	if diff := cmp.Diff(want, s.Records()); diff != "" {
		t.Fatalf("legacy records differ (-want +got):\n%s", diff)
	}

	// the next write uses the current keys
	require.NoError(t, s.Append(ctx, restaurant("Chez Lulu", "3 rue C, Nice", "Nice", "")))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), `"nom"`)
	reloaded, err := Read(ctx, path)
	require.NoError(t, err)
	if diff := cmp.Diff(append(want, restaurant("Chez Lulu", "3 rue C, Nice", "Nice", "")), reloaded); diff != "" {
		t.Fatalf("rewritten records differ (-want +got):\n%s", diff)
	}
}

func TestFlushFileMode(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fresh := filepath.Join(dir, "fresh.json")
	s := Load(ctx, fresh)
	require.NoError(t, s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "")))
	info, err := os.Stat(fresh)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0644), info.Mode().Perm())

	existing := filepath.Join(dir, "existing.json")
	require.NoError(t, os.WriteFile(existing, []byte("[]"), 0600))
	require.NoError(t, os.Chmod(existing, 0640))
	s = Load(ctx, existing)
	require.NoError(t, s.Append(ctx, restaurant("Roma", "1 rue A", "Lyon", "")))
	info, err = os.Stat(existing)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0640), info.Mode().Perm())
}
