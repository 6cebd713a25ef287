package chat

import (
	"strings"

	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/lexicon"
)

// MaxSelected bounds the festivals mentioned in one answer.
const MaxSelected = 3

// filter is one keyword category found in a query.
type filter func(f *festival.Festival) bool

// Select picks the festivals a query is about. Festivals passing every
// keyword category found in the query come first; failing that, festivals
// passing any category; failing that, the first records.
func Select(lx *lexicon.Lexicon, query string, records []festival.Festival) []festival.Festival {
	q := strings.ToLower(query)
	filters := detect(lx, q, records)

	var all, some []festival.Festival
	for i := range records {
		f := &records[i]
		hits := 0
		for _, keep := range filters {
			if keep(f) {
				hits++
			}
		}
		if len(filters) > 0 && hits == len(filters) {
			all = append(all, *f)
		}
		if hits > 0 {
			some = append(some, *f)
		}
	}

	picked := all
	if len(picked) == 0 {
		picked = some
	}
	if len(picked) == 0 {
		picked = records
	}
	if len(picked) > MaxSelected {
		picked = picked[:MaxSelected]
	}
	return picked
}

func detect(lx *lexicon.Lexicon, q string, records []festival.Festival) []filter {
	var filters []filter
	if f := locationFilter(lx, q, records); f != nil {
		filters = append(filters, f)
	}
	if f := genreFilter(lx, q); f != nil {
		filters = append(filters, f)
	}
	if f := timeFilter(lx, q); f != nil {
		filters = append(filters, f)
	}
	if f := budgetFilter(lx, q); f != nil {
		filters = append(filters, f)
	}
	return filters
}

func locationFilter(lx *lexicon.Lexicon, q string, records []festival.Festival) filter {
	places := map[string]bool{}
	for i := range records {
		for _, p := range []string{records[i].City, records[i].Country} {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(q, p) {
				places[p] = true
			}
		}
	}
	for region, countries := range lx.Chat.Regions {
		if region == "" || !strings.Contains(q, strings.ToLower(region)) {
			continue
		}
		for _, c := range countries {
			places[strings.ToLower(c)] = true
		}
	}
	if len(places) == 0 {
		return nil
	}
	return func(f *festival.Festival) bool {
		return places[strings.ToLower(f.City)] || places[strings.ToLower(f.Country)]
	}
}

func genreFilter(lx *lexicon.Lexicon, q string) filter {
	var terms []string
	for _, g := range lx.Genres {
		if g = strings.ToLower(g); g != "" && strings.Contains(q, g) {
			terms = append(terms, g)
		}
	}
	if len(terms) == 0 {
		return nil
	}
	return func(f *festival.Festival) bool {
		field := strings.ToLower(f.GenreField())
		for _, t := range terms {
			if strings.Contains(field, t) {
				return true
			}
		}
		return false
	}
}

func timeFilter(lx *lexicon.Lexicon, q string) filter {
	months := map[string]bool{}
	for _, m := range lx.Chat.Months {
		if m = strings.ToLower(m); m != "" && strings.Contains(q, m) {
			months[m] = true
		}
	}
	for season, ms := range lx.Chat.Seasons {
		if season == "" || !strings.Contains(q, strings.ToLower(season)) {
			continue
		}
		for _, m := range ms {
			months[strings.ToLower(m)] = true
		}
	}
	if len(months) == 0 {
		return nil
	}
	return func(f *festival.Festival) bool {
		dates := strings.ToLower(f.Dates)
		for m := range months {
			if strings.Contains(dates, m) {
				return true
			}
		}
		return false
	}
}

func budgetFilter(lx *lexicon.Lexicon, q string) filter {
	low := containsAny(q, lx.Chat.BudgetLow)
	high := containsAny(q, lx.Chat.BudgetHigh)
	if !low && !high {
		return nil
	}
	limit := lx.Chat.BudgetThresholdEUR
	return func(f *festival.Festival) bool {
		return (low && f.TicketPriceEUR <= limit) || (high && f.TicketPriceEUR >= limit)
	}
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if w = strings.ToLower(w); w != "" && strings.Contains(q, w) {
			return true
		}
	}
	return false
}
