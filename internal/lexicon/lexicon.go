// Package lexicon holds the lookup tables used by the matcher, the playlist
// parser and the chat templater.
package lexicon

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Association maps a well-known artist to tokens that hint at the festivals
// they fit: genres, styles, or festival names.
type Association struct {
	Artist string   `yaml:"artist" json:"artist"`
	Tokens []string `yaml:"tokens" json:"tokens"`
}

// Chat holds the keyword lists the templater scans queries for.
type Chat struct {
	Regions            map[string][]string `yaml:"regions" json:"regions"`
	Months             []string            `yaml:"months" json:"months"`
	Seasons            map[string][]string `yaml:"seasons" json:"seasons"`
	BudgetLow          []string            `yaml:"budget_low" json:"budget_low"`
	BudgetHigh         []string            `yaml:"budget_high" json:"budget_high"`
	BudgetThresholdEUR float64             `yaml:"budget_threshold_eur" json:"budget_threshold_eur"`
}

// Lexicon is one immutable set of tables. Associations are ordered: the
// first entry matching an artist wins.
type Lexicon struct {
	Associations []Association `yaml:"associations" json:"associations"`
	Genres       []string      `yaml:"genres" json:"genres"`
	Chat         Chat          `yaml:"chat" json:"chat"`
}

//go:embed default.yaml
var defaultYAML []byte

var defaults = sync.OnceValue(func() *Lexicon {
	var lx Lexicon
	if err := decode(defaultYAML, &lx); err != nil {
		panic("lexicon: embedded defaults: " + err.Error())
	}
	return &lx
})

// Default returns a copy of the built-in tables. The embedded YAML is
// decoded once; each caller gets its own slices and maps.
func Default() *Lexicon {
	return defaults().clone()
}

func (lx *Lexicon) clone() *Lexicon {
	out := &Lexicon{
		Associations: make([]Association, len(lx.Associations)),
		Genres:       slices.Clone(lx.Genres),
		Chat: Chat{
			Regions:            cloneLists(lx.Chat.Regions),
			Months:             slices.Clone(lx.Chat.Months),
			Seasons:            cloneLists(lx.Chat.Seasons),
			BudgetLow:          slices.Clone(lx.Chat.BudgetLow),
			BudgetHigh:         slices.Clone(lx.Chat.BudgetHigh),
			BudgetThresholdEUR: lx.Chat.BudgetThresholdEUR,
		},
	}
	for i, a := range lx.Associations {
		out.Associations[i] = Association{Artist: a.Artist, Tokens: slices.Clone(a.Tokens)}
	}
	return out
}

// cloneLists copies m and every list in it. yaml.v3 merges into existing
// maps, so an overlay decoded onto a shallow copy would reach the defaults.
func cloneLists(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

// Load decodes the file at path on top of Default. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Lexicon, error) {
	lx := Default()
	if path == "" {
		return lx, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return lx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	if err := decode(data, lx); err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}
	if err := lx.validate(); err != nil {
		return nil, fmt.Errorf("validating lexicon %s: %w", path, err)
	}
	return lx, nil
}

func decode(data []byte, into *Lexicon) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(into)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (lx *Lexicon) validate() error {
	for i, a := range lx.Associations {
		if a.Artist == "" {
			return fmt.Errorf("association %d: artist is required", i+1)
		}
		if len(a.Tokens) == 0 {
			return fmt.Errorf("association %q: at least one token is required", a.Artist)
		}
	}
	if lx.Chat.BudgetThresholdEUR < 0 {
		return fmt.Errorf("budget_threshold_eur must not be negative")
	}
	return nil
}

// Store holds the active Lexicon and swaps it on Reload. Readers never block.
type Store struct {
	path    string
	current atomic.Pointer[Lexicon]
	logger  *slog.Logger
}

// NewStore loads path and returns a Store serving it.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	lx, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, logger: logger.With("component", "lexicon")}
	s.current.Store(lx)
	return s, nil
}

// Path returns the file the store reloads from.
func (s *Store) Path() string { return s.path }

// Get returns the active tables. Callers must not modify them.
func (s *Store) Get() *Lexicon { return s.current.Load() }

// Reload re-reads the file. On error the previous tables stay active.
func (s *Store) Reload() error {
	lx, err := Load(s.path)
	if err != nil {
		s.logger.Error("lexicon reload failed, keeping previous tables", "path", s.path, "error", err)
		return err
	}
	s.current.Store(lx)
	s.logger.Info("lexicon reloaded",
		"path", s.path,
		"associations", len(lx.Associations),
		"genres", len(lx.Genres),
	)
	return nil
}
