package inquiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sydlexius/groovenomad/internal/event"
)

// PayloadSource identifies quote submissions to the receiving automation.
const PayloadSource = "groovefest_ai_form"

// QuoteRequest is the trip-planning form a visitor submits.
type QuoteRequest struct {
	Contact     Contact     `json:"contact"`
	Trip        Trip        `json:"trip"`
	Preferences Preferences `json:"preferences"`
	Additional  Additional  `json:"additional"`
}

// Contact holds how to reach the visitor.
type Contact struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=320"`
	Phone string `json:"phone" validate:"max=50"`
}

// Trip describes the trip being quoted.
type Trip struct {
	Budget      string `json:"budget" validate:"required,oneof=500-1000 1000-2500 2500-5000 5000-10000 10000+"`
	Travelers   string `json:"travelers" validate:"required,oneof=1 2 3-4 5-8 9+"`
	TravelDates string `json:"travel_dates" validate:"max=200"`
	Duration    string `json:"duration" validate:"max=100"`
}

// Preferences are optional wishes for the trip.
type Preferences struct {
	MusicGenres         []string `json:"music_genres" validate:"max=30,dive,max=100"`
	AccommodationType   string   `json:"accommodation_type" validate:"max=200"`
	TransportNeeds      string   `json:"transport_needs" validate:"max=500"`
	DietaryRequirements string   `json:"dietary_requirements" validate:"max=500"`
	Accessibility       string   `json:"accessibility" validate:"max=500"`
}

// Additional carries free text and the chat context the form was opened from.
type Additional struct {
	SpecialRequests   string `json:"special_requests" validate:"max=2000"`
	PreviousFestivals string `json:"previous_festivals" validate:"max=1000"`
	OriginalQuery     string `json:"original_query" validate:"max=2000"`
	AIRecommendation  string `json:"ai_recommendation" validate:"max=10000"`
}

// FieldError names one rejected field by its JSON path.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field a QuoteRequest failed on.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid quote request: " + strings.Join(names, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a QuoteRequest. It returns a *ValidationError when fields
// are missing or malformed.
func Validate(req *QuoteRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating quote request: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		// Namespace is "QuoteRequest.contact.name"; drop the type name.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		out.Fields = append(out.Fields, FieldError{Field: path, Rule: fe.Tag()})
	}
	return out
}

// Payload is the body forwarded to the quote webhook.
type Payload struct {
	Timestamp  time.Time  `json:"timestamp"`
	Source     string     `json:"source"`
	ClientData ClientData `json:"client_data"`
}

// ClientData groups the submitted form for the webhook receiver.
type ClientData struct {
	Contact     PayloadContact     `json:"contact"`
	TripDetails PayloadTrip        `json:"trip_details"`
	Preferences PayloadPreferences `json:"preferences"`
	Additional  PayloadAdditional  `json:"additional"`
}

type PayloadContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type PayloadTrip struct {
	Budget    string `json:"budget"`
	Travelers string `json:"travelers"`
	Dates     string `json:"dates"`
	Duration  string `json:"duration"`
}

type PayloadPreferences struct {
	MusicGenres   []string `json:"music_genres"`
	Accommodation string   `json:"accommodation"`
	Transport     string   `json:"transport"`
	Dietary       string   `json:"dietary"`
	Accessibility string   `json:"accessibility"`
}

type PayloadAdditional struct {
	SpecialRequests   string `json:"special_requests"`
	PreviousFestivals string `json:"previous_festivals"`
	OriginalQuery     string `json:"original_query"`
	AIRecommendation  string `json:"ai_recommendation"`
}

// BuildPayload maps a request onto the webhook body.
func BuildPayload(req *QuoteRequest, now time.Time) Payload {
	genres := req.Preferences.MusicGenres
	if genres == nil {
		genres = []string{}
	}
	return Payload{
		Timestamp: now.UTC(),
		Source:    PayloadSource,
		ClientData: ClientData{
			Contact: PayloadContact{
				Name:  req.Contact.Name,
				Email: req.Contact.Email,
				Phone: req.Contact.Phone,
			},
			TripDetails: PayloadTrip{
				Budget:    req.Trip.Budget,
				Travelers: req.Trip.Travelers,
				Dates:     req.Trip.TravelDates,
				Duration:  req.Trip.Duration,
			},
			Preferences: PayloadPreferences{
				MusicGenres:   genres,
				Accommodation: req.Preferences.AccommodationType,
				Transport:     req.Preferences.TransportNeeds,
				Dietary:       req.Preferences.DietaryRequirements,
				Accessibility: req.Preferences.Accessibility,
			},
			Additional: PayloadAdditional{
				SpecialRequests:   req.Additional.SpecialRequests,
				PreviousFestivals: req.Additional.PreviousFestivals,
				OriginalQuery:     req.Additional.OriginalQuery,
				AIRecommendation:  req.Additional.AIRecommendation,
			},
		},
	}
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(event.Event)
}

// Intake validates, stores, and forwards quote requests.
type Intake struct {
	log    *QueryLog
	events Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewIntake creates a quote intake.
func NewIntake(log *QueryLog, events Publisher, logger *slog.Logger) *Intake {
	return &Intake{
		log:    log,
		events: events,
		logger: logger.With("component", "quote-intake"),
		now:    time.Now,
	}
}

// Submit stores req in the query log and queues it for webhook delivery.
// It returns the stored row id. Delivery happens later and its failures are
// only logged.
func (in *Intake) Submit(ctx context.Context, req *QuoteRequest) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}

	form, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding quote request: %w", err)
	}
	formJSON := string(form)

	query := req.Additional.OriginalQuery
	if strings.TrimSpace(query) == "" {
		query = "Form submission"
	}

	id, err := in.log.Record(ctx, query, TypeDetailedForm, &formJSON)
	if err != nil {
		return "", fmt.Errorf("storing quote request: %w", err)
	}

	in.events.Publish(event.Event{
		Type:    event.QuoteSubmitted,
		Summary: fmt.Sprintf("New quote request from %s (budget %s EUR, %s travelers)", req.Contact.Name, req.Trip.Budget, req.Trip.Travelers),
		Data:    BuildPayload(req, in.now()),
	})

	in.logger.Info("quote request stored", "id", id, "budget", req.Trip.Budget, "travelers", req.Trip.Travelers)
	return id, nil
}
