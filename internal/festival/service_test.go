package festival

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/sydlexius/groovenomad/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	return db
}

func TestService_CreateAndGet(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	f := &Festival{
		Name:           "Sziget",
		City:           "Budapest",
		Country:        "Hungary",
		Genres:         []string{"Rock", "Electronic"},
		Dates:          "August 7-12, 2024",
		TicketPriceEUR: 299.5,
		Capacity:       90000,
		Atmosphere:     "Island, Freedom",
		Venue:          "Óbuda Island",
	}
	if err := svc.Create(ctx, f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID == "" {
		t.Fatal("expected id to be assigned")
	}

	got, err := svc.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Sziget" || got.TicketPriceEUR != 299.5 || got.Capacity != 90000 {
		t.Errorf("unexpected festival: %+v", got)
	}
	if !slices.Equal(got.Genres, []string{"Rock", "Electronic"}) {
		t.Errorf("genres = %v", got.Genres)
	}
	if got.Notes != "" || got.Website != "" {
		t.Errorf("expected empty optional fields, got notes=%q website=%q", got.Notes, got.Website)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestService_CreateNormalizesGenres(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	f := &Festival{Name: "Outlook", Genres: []string{"Drum, Bass", " ", " Dub "}}
	if err := svc.Create(ctx, f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []string{"Drum", "Bass", "Dub"}
	if !slices.Equal(f.Genres, want) {
		t.Errorf("created genres = %q, want %q", f.Genres, want)
	}

	got, err := svc.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !slices.Equal(got.Genres, f.Genres) {
		t.Errorf("stored genres = %q, created = %q", got.Genres, f.Genres)
	}
}

func TestService_CreateRequiresName(t *testing.T) {
	svc := NewService(setupTestDB(t))
	if err := svc.Create(context.Background(), &Festival{City: "Nowhere"}); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestService_GetByIDNotFound(t *testing.T) {
	svc := NewService(setupTestDB(t))
	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestService_ListInsertionOrderAndLimit(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		if err := svc.Create(ctx, &Festival{Name: name}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	all, err := svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, f := range all {
		names = append(names, f.Name)
	}
	if !slices.Equal(names, []string{"Zeta", "Alpha", "Mid"}) {
		t.Errorf("order = %v, want insertion order", names)
	}

	two, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(two) != 2 {
		t.Errorf("len = %d, want 2", len(two))
	}

	n, err := svc.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	f := &Festival{Name: "Roskilde"}
	if err := svc.Create(ctx, f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestService_ImportReplace(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if err := svc.Create(ctx, &Festival{Name: "Old"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.Import(ctx, Samples(), true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 5 {
		t.Errorf("imported %d, want 5", n)
	}

	all, err := svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 || all[0].Name != "Tomorrowland" {
		t.Fatalf("unexpected rows after replace: %d, first %q", len(all), all[0].Name)
	}
	if all[0].GenreField() != "Electronic, EDM, House, Techno" {
		t.Errorf("genre field = %q", all[0].GenreField())
	}
}

func TestService_ImportRollsBackOnError(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	rows := []Festival{{Name: "Good"}, {Name: ""}}
	if _, err := svc.Import(ctx, rows, false); err == nil {
		t.Fatal("expected error")
	}
	n, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 after rollback", n)
	}
}

func TestParseGenres(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Electronic, EDM, House", []string{"Electronic", "EDM", "House"}},
		{" Rock ,, Indie ,", []string{"Rock", "Indie"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := ParseGenres(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("ParseGenres(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSamples(t *testing.T) {
	s := Samples()
	if len(s) != 5 {
		t.Fatalf("len = %d, want 5", len(s))
	}
	want := []string{"Tomorrowland", "Glastonbury Festival", "Coachella", "Primavera Sound", "Ultra Music Festival"}
	for i, name := range want {
		if s[i].Name != name {
			t.Errorf("sample %d = %q, want %q", i, s[i].Name, name)
		}
	}

	// Callers get their own copy.
	s[0].Genres[0] = "Polka"
	if Samples()[0].Genres[0] != "Electronic" {
		t.Error("mutating a returned sample leaked into later calls")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festivals.yaml")
	body := `
- name: Dekmantel
  genre: Techno, House
  city: Amsterdam
  country: Netherlands
  ticket_price_eur: 210
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Dekmantel" || !slices.Equal(got[0].Genres, []string{"Techno", "House"}) {
		t.Errorf("unexpected rows: %+v", got)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"noname.yaml":  "- city: Somewhere\n",
		"unknown.yaml": "- name: X\n  headliner: Y\n",
	}
	for file, body := range cases {
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("writing %s: %v", file, err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Errorf("%s: expected error", file)
		}
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.yaml")
	want := Samples()

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d festivals, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Website != want[i].Website ||
			got[i].TicketPriceEUR != want[i].TicketPriceEUR || !slices.Equal(got[i].Genres, want[i].Genres) {
			t.Errorf("festival %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

type stubSource struct {
	rows []Festival
	err  error
}

func (s stubSource) List(context.Context, int) ([]Festival, error) { return s.rows, s.err }

func TestFallbackSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("store rows win", func(t *testing.T) {
		src := NewFallbackSource(stubSource{rows: []Festival{{Name: "Only"}}}, logger)
		got, err := src.List(ctx, 10)
		if err != nil || len(got) != 1 || got[0].Name != "Only" {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		src := NewFallbackSource(stubSource{}, logger)
		got, _ := src.List(ctx, 3)
		if len(got) != 3 || got[0].Name != "Tomorrowland" {
			t.Errorf("got %d rows", len(got))
		}
	})

	t.Run("store error", func(t *testing.T) {
		src := NewFallbackSource(stubSource{err: errors.New("disk on fire")}, logger)
		got, err := src.List(ctx, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 5 {
			t.Errorf("got %d rows, want 5 samples", len(got))
		}
	})
}
