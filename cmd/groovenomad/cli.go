package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/lexicon"
	"github.com/sydlexius/groovenomad/internal/match"
	"github.com/sydlexius/groovenomad/internal/playlist"
)

// minTokenLength keeps admin tokens out of brute-force range.
const minTokenLength = 16

func runImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	replace := fs.Bool("replace", false, "delete existing festivals before importing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("import: expected exactly one festival file")
	}

	festivals, err := festival.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	_, svc, closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	n, err := svc.Import(context.Background(), festivals, *replace)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d festivals from %s\n", n, fs.Arg(0))
	return nil
}

func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	samples := fs.Bool("samples", false, "export the built-in catalog when the database is empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("export: expected exactly one output file")
	}

	_, svc, closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	festivals, err := svc.List(context.Background(), 0)
	if err != nil {
		return err
	}
	if len(festivals) == 0 {
		if !*samples {
			return errors.New("export: no festivals stored (use -samples for the built-in catalog)")
		}
		festivals = festival.Samples()
	}

	if err := festival.WriteFile(fs.Arg(0), festivals); err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %d festivals to %s\n", len(festivals), fs.Arg(0))
	return nil
}

func runMatch(args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	artists := fs.Bool("artists", true, "score artist matches")
	genres := fs.Bool("genres", true, "score genre matches")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("opening playlist: %w", err)
		}
		defer f.Close() //nolint:errcheck
		in = f
	}
	text, err := io.ReadAll(io.LimitReader(in, 1<<20))
	if err != nil {
		return fmt.Errorf("reading playlist: %w", err)
	}

	cfg, svc, closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	lx, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		return fmt.Errorf("loading lexicon: %w", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	records, _ := festival.NewFallbackSource(svc, quiet).List(context.Background(), 0)

	parsed := playlist.Parse(string(text), lx.Genres)
	results := match.NewMatcher(lx.Associations).Match(records, match.Input{
		Artists:        parsed.Artists,
		Genres:         parsed.Genres,
		IncludeArtists: *artists,
		IncludeGenres:  *genres,
	})

	fmt.Fprintf(out, "artists: %s\ngenres:  %s\n\n", orNone(parsed.Artists), orNone(parsed.Genres))
	if len(results) == 0 {
		fmt.Fprintln(out, "no festivals matched")
		return nil
	}
	return writeResults(out, results)
}

func writeResults(out io.Writer, results []match.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tFESTIVAL\tLOCATION\tARTISTS\tGENRES")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s, %s\t%s\t%s\n",
			i+1, r.Score, r.Festival.Name, r.Festival.City, r.Festival.Country,
			orDash(r.MatchedArtists), orDash(r.MatchedGenres))
	}
	return tw.Flush()
}

func orNone(s []string) string {
	if len(s) == 0 {
		return "(none)"
	}
	return strings.Join(s, ", ")
}

func orDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

// runHashToken reads a token and prints its bcrypt hash. On a terminal the
// token is read twice without echo; otherwise the first line of stdin is
// used.
func runHashToken(stdin *os.File, out io.Writer) error {
	var token string
	if fd := int(stdin.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "admin token: ")
		first, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		fmt.Fprint(os.Stderr, "repeat: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if string(first) != string(second) {
			return errors.New("tokens do not match")
		}
		token = string(first)
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimRight(line, "\r\n")
	}
	return printHash(token, out)
}

func printHash(token string, out io.Writer) error {
	if len(token) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing token: %w", err)
	}
	fmt.Fprintln(out, string(hash))
	return nil
}
