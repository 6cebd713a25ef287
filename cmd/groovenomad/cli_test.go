package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// isolate points config and database at a temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GN_CONFIG_PATH", filepath.Join(dir, "config.yaml"))
	t.Setenv("GN_DB_PATH", filepath.Join(dir, "groovenomad.db"))
	t.Setenv("GN_LEXICON_PATH", "")
	return dir
}

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestRunMatch_SamplesFromStdin(t *testing.T) {
	isolate(t)

	var out bytes.Buffer
	in := strings.NewReader("1. David Guetta - Titanium\n2. Daft Punk - One More Time\n")
	if err := runMatch(nil, in, &out); err != nil {
		t.Fatalf("runMatch: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "artists: David Guetta, Daft Punk") {
		t.Errorf("missing parsed artists:\n%s", got)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	var header int
	for i, l := range lines {
		if strings.HasPrefix(l, "RANK") {
			header = i
		}
	}
	if header == 0 || !strings.Contains(lines[header+1], "Tomorrowland") {
		t.Errorf("expected Tomorrowland first:\n%s", got)
	}
}

func TestRunMatch_FlagsOff(t *testing.T) {
	isolate(t)

	var out bytes.Buffer
	in := strings.NewReader("David Guetta - Titanium\n")
	if err := runMatch([]string{"-artists=false", "-genres=false"}, in, &out); err != nil {
		t.Fatalf("runMatch: %v", err)
	}
	if !strings.Contains(out.String(), "no festivals matched") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunImportThenMatch(t *testing.T) {
	dir := isolate(t)
	file := writeTemp(t, dir, "festivals.yaml", `
- name: Awakenings
  city: Amsterdam
  country: Netherlands
  genre: techno, electronic
  dates: June
  ticket_price_eur: 180
  capacity: 40000
  atmosphere: Warehouse techno
  venue: Spaarnwoude
`)

	var out bytes.Buffer
	if err := runImport([]string{"-replace", file}, &out); err != nil {
		t.Fatalf("runImport: %v", err)
	}
	if !strings.Contains(out.String(), "imported 1 festivals") {
		t.Errorf("import output = %q", out.String())
	}

	playlist := writeTemp(t, dir, "playlist.txt", "Charlotte de Witte - Selected Techno\n")
	out.Reset()
	if err := runMatch([]string{"-artists=false", playlist}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("runMatch: %v", err)
	}
	if !strings.Contains(out.String(), "Awakenings") {
		t.Errorf("imported festival not matched:\n%s", out.String())
	}
	// Only the imported festival is considered once the store has rows.
	if strings.Contains(out.String(), "Tomorrowland") {
		t.Errorf("samples used despite imported rows:\n%s", out.String())
	}
}

func TestRunExport(t *testing.T) {
	dir := isolate(t)
	dest := filepath.Join(dir, "out", "festivals.yaml")

	if err := runExport([]string{dest}, &bytes.Buffer{}); err == nil {
		t.Error("expected error exporting an empty store without -samples")
	}

	var out bytes.Buffer
	if err := runExport([]string{"-samples", dest}, &out); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if !strings.Contains(out.String(), "exported 5 festivals") {
		t.Errorf("export output = %q", out.String())
	}

	out.Reset()
	if err := runImport([]string{dest}, &out); err != nil {
		t.Fatalf("re-importing export: %v", err)
	}
	if !strings.Contains(out.String(), "imported 5 festivals") {
		t.Errorf("import output = %q", out.String())
	}
}

func TestRunImport_Usage(t *testing.T) {
	isolate(t)
	if err := runImport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error without a file argument")
	}
}

func TestRunHashToken_FromPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close() //nolint:errcheck
	if _, err := w.WriteString("correct-horse-battery-staple\n"); err != nil {
		t.Fatalf("writing: %v", err)
	}
	w.Close() //nolint:errcheck

	var out bytes.Buffer
	if err := runHashToken(r, &out); err != nil {
		t.Fatalf("runHashToken: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct-horse-battery-staple")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}

func TestPrintHash_RejectsShortToken(t *testing.T) {
	if err := printHash("short", &bytes.Buffer{}); err == nil {
		t.Error("expected error for short token")
	}
}
