// Package chat answers free-text festival questions from the record store
// using fixed narrative templates.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/sydlexius/groovenomad/internal/event"
	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/lexicon"
)

// Query types.
const (
	TypeDestination = "destination"
	TypeEvent       = "event"
	TypeMusic       = "music"
	TypeGeneral     = "general"
)

// RecordLimit is how many festivals are fetched per question.
const RecordLimit = 10

// NormalizeType maps unknown or empty query types to TypeGeneral.
func NormalizeType(t string) string {
	switch t {
	case TypeDestination, TypeEvent, TypeMusic:
		return t
	default:
		return TypeGeneral
	}
}

// Request is a visitor question.
type Request struct {
	Query     string `json:"query"`
	QueryType string `json:"query_type"`
}

// Response is the rendered answer.
type Response struct {
	Response  string `json:"response"`
	QueryType string `json:"query_type"`
}

// QueryRecorder persists questions and their answers.
type QueryRecorder interface {
	Record(ctx context.Context, query, queryType string, response *string) (string, error)
	UpdateResponse(ctx context.Context, id, response string) error
}

// LexiconSource supplies the current keyword tables.
type LexiconSource interface {
	Get() *lexicon.Lexicon
}

// Publisher accepts events.
type Publisher interface {
	Publish(event.Event)
}

// Templater renders answers. Queries and events may be nil.
type Templater struct {
	source  festival.Source
	lexicon LexiconSource
	queries QueryRecorder
	events  Publisher
	logger  *slog.Logger
}

// NewTemplater creates a Templater.
func NewTemplater(source festival.Source, lx LexiconSource, queries QueryRecorder, events Publisher, logger *slog.Logger) *Templater {
	return &Templater{
		source:  source,
		lexicon: lx,
		queries: queries,
		events:  events,
		logger:  logger.With("component", "chat"),
	}
}

// Respond answers req. It never fails: storage and fetch errors are logged
// and the answer degrades to a generic narrative.
func (t *Templater) Respond(ctx context.Context, req Request) Response {
	qtype := NormalizeType(req.QueryType)
	t.logger.Debug("answering query", "query_type", qtype, "length", len(req.Query))

	var id string
	if t.queries != nil {
		var err error
		if id, err = t.queries.Record(ctx, req.Query, qtype, nil); err != nil {
			t.logger.Error("storing query", "error", err)
		}
	}

	records, err := t.source.List(ctx, RecordLimit)
	if err != nil {
		t.logger.Warn("fetching festivals for query", "error", err)
		records = nil
	}

	selected := Select(t.lexicon.Get(), req.Query, records)
	text := t.render(qtype, req.Query, selected)

	if id != "" {
		if err := t.queries.UpdateResponse(ctx, id, text); err != nil {
			t.logger.Error("storing query response", "id", id, "error", err)
		}
	}

	if t.events != nil {
		names := make([]string, len(selected))
		for i := range selected {
			names[i] = selected[i].Name
		}
		t.events.Publish(event.Event{
			Type:    event.QueryAnswered,
			Summary: fmt.Sprintf("Answered a %s question with %d festivals", qtype, len(selected)),
			Data: map[string]any{
				"query_id":   id,
				"query_type": qtype,
				"festivals":  names,
			},
		})
	}

	return Response{Response: text, QueryType: qtype}
}

type view struct {
	Query     string
	Festivals []festivalView
}

type festivalView struct {
	Name       string
	City       string
	Country    string
	Dates      string
	Genres     string
	Price      string
	Atmosphere string
	Venue      string
}

func newView(query string, fs []festival.Festival) view {
	v := view{Query: query}
	for i := range fs {
		f := &fs[i]
		v.Festivals = append(v.Festivals, festivalView{
			Name:       f.Name,
			City:       f.City,
			Country:    f.Country,
			Dates:      f.Dates,
			Genres:     f.GenreField(),
			Price:      fmt.Sprintf("%.0f", f.TicketPriceEUR),
			Atmosphere: strings.ToLower(f.Atmosphere),
			Venue:      f.Venue,
		})
	}
	return v
}

func (t *Templater) render(qtype, query string, fs []festival.Festival) string {
	if len(fs) == 0 {
		return fmt.Sprintf(fallbacks[qtype], query)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, qtype, newView(query, fs)); err != nil {
		t.logger.Error("rendering answer", "query_type", qtype, "error", err)
		return fmt.Sprintf(fallbacks[qtype], query)
	}
	return strings.TrimSpace(buf.String())
}

var templates = template.Must(template.New(TypeGeneral).Parse(`I'd be happy to help you with "{{.Query}}"! Here are a few festivals to start with:
{{range .Festivals}}
🎪 **{{.Name}}** in {{.City}}, {{.Country}} ({{.Dates}}): {{.Genres}}, tickets from €{{.Price}}.
{{- end}}

I can also suggest destinations, dates and artists. What would you like to explore first?
{{define "destination"}}Based on your request "{{.Query}}", I recommend checking out these festival destinations:
{{range .Festivals}}
🎵 **{{.City}}, {{.Country}}** - {{.Name}} at {{.Venue}}: {{.Atmosphere}}, with {{.Genres}} ({{.Dates}}, from €{{.Price}}).
{{- end}}

Would you like more details about any of these destinations?
{{end}}
{{define "event"}}Here are some festivals based on "{{.Query}}":
{{range .Festivals}}
🎶 **{{.Name}}** - {{.Dates}}, {{.City}}, {{.Country}}. Tickets from €{{.Price}}.
{{- end}}

Each offers unique artists and experiences. Which style interests you most?
{{end}}
{{define "music"}}Discovering music based on "{{.Query}}":
{{range .Festivals}}
🎧 **{{.Name}}** brings {{.Genres}} to {{.City}} ({{.Dates}}).
{{- end}}

Want me to find festivals where your favourite artists are performing?
{{end}}`))

var fallbacks = map[string]string{
	TypeDestination: `Based on your request "%s", I recommend checking out these festival destinations:

🎵 **Berlin, Germany** - Known for its electronic music scene
🎪 **Barcelona, Spain** - Home to Primavera Sound and Sónar, perfect for indie and electronic music lovers
🎸 **Austin, Texas** - The live music capital with SXSW and Austin City Limits

Would you like more details about any of these destinations?`,
	TypeEvent: `Here are some exciting festivals based on "%s":

🎶 **Coachella** - April, Indio, California
🎵 **Tomorrowland** - July, Boom, Belgium
🎸 **Glastonbury** - June, Somerset, England

Each offers unique artists and experiences. Which style interests you most?`,
	TypeMusic: `Discovering music based on "%s":

🎧 **Trending Artists**: Check out the artists performing at upcoming festivals
🎼 **Similar Genres**: Tell me what you listen to and I'll suggest related genres
🎤 **Festival Lineups**: Paste a playlist into the matcher to find festivals featuring similar artists

Want me to find festivals where these artists are performing?`,
	TypeGeneral: `I'd be happy to help you with "%s"! I can assist you with:

🗺️ **Festival Destinations** - Find the perfect location for your next festival adventure
🎪 **Event Discovery** - Discover festivals matching your music taste and schedule
🎵 **Music Exploration** - Find new artists and genres through festival lineups

What would you like to explore first?`,
}
