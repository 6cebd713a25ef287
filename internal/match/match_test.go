package match

import (
	"fmt"
	"slices"
	"testing"

	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/lexicon"
)

func tomorrowland() festival.Festival {
	return festival.Festival{
		Name:       "Tomorrowland",
		Genres:     []string{"Electronic", "EDM", "House", "Techno"},
		Atmosphere: "Magical, Immersive, High-energy",
		Notes:      "Features top DJs like David Guetta, Martin Garrix, and Armin van Buuren",
	}
}

func names(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Festival.Name
	}
	return out
}

func TestMatchFestivals_DirectNoteAndGenre(t *testing.T) {
	fests := []festival.Festival{tomorrowland()}
	got := MatchFestivals(fests, []string{"David Guetta"}, []string{"electronic"}, true, true)

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	r := got[0]
	if r.Score != 5 {
		t.Errorf("score = %d, want 5", r.Score)
	}
	if !slices.Equal(r.MatchedArtists, []string{"David Guetta"}) {
		t.Errorf("matched artists = %v", r.MatchedArtists)
	}
	if !slices.Equal(r.MatchedGenres, []string{"electronic"}) {
		t.Errorf("matched genres = %v", r.MatchedGenres)
	}
	if r.Festival != &fests[0] {
		t.Error("result should point at the caller's festival")
	}
}

func TestMatchFestivals_ReusesDefaultMatcher(t *testing.T) {
	if defaultMatcher() != defaultMatcher() {
		t.Fatal("default matcher rebuilt between calls")
	}
	fests := []festival.Festival{tomorrowland()}
	first := MatchFestivals(fests, []string{"David Guetta"}, nil, true, false)
	second := MatchFestivals(fests, []string{"David Guetta"}, nil, true, false)
	if len(first) != 1 || len(second) != 1 || first[0].Score != second[0].Score {
		t.Errorf("repeated calls disagree: %+v vs %+v", first, second)
	}
}

func TestMatchFestivals_UnknownArtistExcluded(t *testing.T) {
	got := MatchFestivals([]festival.Festival{tomorrowland()}, []string{"Unknown Artist"}, nil, true, false)
	if len(got) != 0 {
		t.Errorf("expected no matches, got %+v", got)
	}
}

func TestMatchFestivals_EmptyInputs(t *testing.T) {
	samples := festival.Samples()

	tests := []struct {
		name      string
		festivals []festival.Festival
		artists   []string
		genres    []string
		incA      bool
		incG      bool
	}{
		{"no festivals", nil, []string{"David Guetta"}, []string{"rock"}, true, true},
		{"both flags off", samples, []string{"David Guetta"}, []string{"rock"}, false, false},
		{"no artists or genres", samples, nil, nil, true, true},
		{"blank entries only", samples, []string{"", "  "}, []string{""}, true, true},
		{"genres off with only genres", samples, nil, []string{"rock"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchFestivals(tt.festivals, tt.artists, tt.genres, tt.incA, tt.incG)
			if len(got) != 0 {
				t.Errorf("expected empty result, got %v", names(got))
			}
		})
	}
}

func TestMatchFestivals_SampleRanking(t *testing.T) {
	fests := festival.Samples()
	got := MatchFestivals(fests, []string{"David Guetta"}, []string{"electronic"}, true, true)

	wantNames := []string{"Tomorrowland", "Glastonbury Festival", "Coachella", "Primavera Sound", "Ultra Music Festival"}
	wantScores := []int{5, 4, 4, 4, 2}
	if !slices.Equal(names(got), wantNames) {
		t.Fatalf("order = %v, want %v", names(got), wantNames)
	}
	for i, r := range got {
		if r.Score != wantScores[i] {
			t.Errorf("%s score = %d, want %d", r.Festival.Name, r.Score, wantScores[i])
		}
	}
	// Ultra only scores through the association table.
	if !slices.Equal(got[4].MatchedArtists, []string{"David Guetta"}) || len(got[4].MatchedGenres) != 0 {
		t.Errorf("ultra matches = %v / %v", got[4].MatchedArtists, got[4].MatchedGenres)
	}
}

func TestMatch_AtmosphereScoresWithoutRecording(t *testing.T) {
	got := MatchFestivals(festival.Samples(), nil, []string{"urban"}, true, true)

	if !slices.Equal(names(got), []string{"Primavera Sound", "Ultra Music Festival"}) {
		t.Fatalf("got %v", names(got))
	}
	for _, r := range got {
		if r.Score != AtmospherePoints {
			t.Errorf("%s score = %d, want %d", r.Festival.Name, r.Score, AtmospherePoints)
		}
		if len(r.MatchedGenres) != 0 {
			t.Errorf("%s recorded atmosphere match as genre: %v", r.Festival.Name, r.MatchedGenres)
		}
	}
}

func TestMatch_GenreAndAtmosphereBothCount(t *testing.T) {
	f := festival.Festival{Name: "Pulse", Genres: []string{"Techno"}, Atmosphere: "Dark techno warehouse"}
	got := MatchFestivals([]festival.Festival{f}, nil, []string{"TECHNO"}, false, true)
	if len(got) != 1 || got[0].Score != GenrePoints+AtmospherePoints {
		t.Fatalf("got %+v", got)
	}
	if !slices.Equal(got[0].MatchedGenres, []string{"TECHNO"}) {
		t.Errorf("matched genres = %v", got[0].MatchedGenres)
	}
}

func TestMatch_ArtistRecordedOnce(t *testing.T) {
	// Direct hit in notes and an association hit; only the direct one counts.
	got := MatchFestivals([]festival.Festival{tomorrowland()},
		[]string{"David Guetta", "david guetta", "DAVID GUETTA"}, nil, true, false)
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Score != DirectArtistPoints {
		t.Errorf("score = %d, want %d", got[0].Score, DirectArtistPoints)
	}
	if !slices.Equal(got[0].MatchedArtists, []string{"David Guetta"}) {
		t.Errorf("matched = %v", got[0].MatchedArtists)
	}
}

func TestMatch_NameMatch(t *testing.T) {
	f := festival.Festival{Name: "Coldplay Live in the Park", Genres: []string{"Jazz"}}
	got := MatchFestivals([]festival.Festival{f}, []string{"coldplay"}, nil, true, false)
	if len(got) != 1 || got[0].Score != DirectArtistPoints {
		t.Fatalf("got %+v", got)
	}
	if got[0].MatchedArtists[0] != "coldplay" {
		t.Errorf("expected input spelling, got %q", got[0].MatchedArtists[0])
	}
}

func TestMatch_PartialArtistNameUsesAssociation(t *testing.T) {
	// "Florence + The Machine" contains the "Florence" key.
	got := MatchFestivals(festival.Samples()[:2], []string{"Florence + The Machine"}, nil, true, false)
	if !slices.Equal(names(got), []string{"Glastonbury Festival"}) {
		t.Fatalf("got %v", names(got))
	}
	if got[0].Score != AssociatedArtistPoints {
		t.Errorf("score = %d", got[0].Score)
	}
}

func TestMatch_FirstAssociationWins(t *testing.T) {
	m := NewMatcher([]lexicon.Association{
		{Artist: "Mafia", Tokens: []string{"Jazz"}},
		{Artist: "Swedish House Mafia", Tokens: []string{"Rock"}},
	})
	f := festival.Festival{Name: "Rockfest", Genres: []string{"Rock"}}

	got := m.Match([]festival.Festival{f}, Input{Artists: []string{"Swedish House Mafia"}, IncludeArtists: true})
	if len(got) != 0 {
		t.Errorf("expected the first related entry to decide, got %+v", got)
	}
}

func TestMatch_AssociationTokenInNotes(t *testing.T) {
	m := NewMatcher([]lexicon.Association{{Artist: "Bicep", Tokens: []string{"Belfast"}}})
	f := festival.Festival{Name: "AVA", Genres: []string{"Electronic"}, Notes: "Started in Belfast"}

	got := m.Match([]festival.Festival{f}, Input{Artists: []string{"bicep"}, IncludeArtists: true})
	if len(got) != 1 || got[0].Score != AssociatedArtistPoints {
		t.Fatalf("got %+v", got)
	}
}

func TestMatch_CapAndTieOrder(t *testing.T) {
	var fests []festival.Festival
	for i := range 7 {
		fests = append(fests, festival.Festival{Name: fmt.Sprintf("Fest %d", i), Genres: []string{"Rock"}})
	}
	// Give the last one a higher score.
	fests[6].Atmosphere = "Pure rock"

	got := MatchFestivals(fests, nil, []string{"rock"}, true, true)
	want := []string{"Fest 6", "Fest 0", "Fest 1", "Fest 2", "Fest 3"}
	if !slices.Equal(names(got), want) {
		t.Errorf("got %v, want %v", names(got), want)
	}
}

func TestMatch_Idempotent(t *testing.T) {
	fests := festival.Samples()
	artists := []string{"Arctic Monkeys", "Daft Punk", "Kendrick Lamar"}
	genres := []string{"indie", "house", "urban"}

	first := MatchFestivals(fests, artists, genres, true, true)
	second := MatchFestivals(fests, artists, genres, true, true)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Festival != second[i].Festival || first[i].Score != second[i].Score ||
			!slices.Equal(first[i].MatchedArtists, second[i].MatchedArtists) ||
			!slices.Equal(first[i].MatchedGenres, second[i].MatchedGenres) {
			t.Errorf("result %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestMatch_Monotone(t *testing.T) {
	fests := festival.Samples()
	base := Input{
		Artists:        []string{"Tame Impala"},
		Genres:         []string{"rock"},
		IncludeArtists: true,
		IncludeGenres:  true,
	}
	m := NewMatcher(lexicon.Default().Associations)

	scoreOf := func(f festival.Festival, in Input) int {
		res := m.Match([]festival.Festival{f}, in)
		if len(res) == 0 {
			return 0
		}
		return res[0].Score
	}

	extras := []Input{
		{Artists: append(slices.Clone(base.Artists), "David Guetta"), Genres: base.Genres},
		{Artists: base.Artists, Genres: append(slices.Clone(base.Genres), "techno")},
		{Artists: append(slices.Clone(base.Artists), "Beyoncé"), Genres: append(slices.Clone(base.Genres), "urban")},
	}
	for _, f := range fests {
		before := scoreOf(f, base)
		for _, extra := range extras {
			extra.IncludeArtists, extra.IncludeGenres = true, true
			if after := scoreOf(f, extra); after < before {
				t.Errorf("%s: score dropped from %d to %d for %+v", f.Name, before, after, extra)
			}
		}
	}
}

func TestMatch_DoesNotMutateFestivals(t *testing.T) {
	fests := festival.Samples()
	snapshot := festival.Samples()

	MatchFestivals(fests, []string{"Coldplay"}, []string{"pop"}, true, true)

	for i := range fests {
		if fests[i].Name != snapshot[i].Name || !slices.Equal(fests[i].Genres, snapshot[i].Genres) ||
			fests[i].Notes != snapshot[i].Notes {
			t.Errorf("festival %d modified", i)
		}
	}
}
