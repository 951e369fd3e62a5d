// Command pdfedit inspects the fonts and text runs of a PDF and rewrites a
// page with edited text.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/editor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/metadata"
	"github.com/wudi/pdfedit/observability"
)

const usage = `Usage: pdfedit <command> [flags] <pdf>

Commands:
  fonts   report the fonts found in the document
  runs    list the text runs of a page as JSON
  meta    print the document information fields
  edit    apply edits to a page and write the new PDF
`

var errUsage = errors.New("usage")

// isTerminal is replaced in tests.
var isTerminal = func(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout)
	switch {
	case errors.Is(err, errUsage):
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "pdfedit: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "pdfedit: unknown command %q\n%s", args[0], usage)
		return errUsage
	}
	return cmd(ctx, args[1:], stdout)
}

var commands = map[string]func(context.Context, []string, io.Writer) error{
	"fonts": runFonts,
	"runs":  runRuns,
	"meta":  runMeta,
	"edit":  runEdit,
}

// common holds the flags every command accepts.
type common struct {
	fs      *flag.FlagSet
	verbose *bool
	strict  *bool
}

func newFlags(name string) *common {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfedit %s [flags] <pdf>\n", name)
		fs.PrintDefaults()
	}
	return &common{
		fs:      fs,
		verbose: fs.Bool("v", false, "Log progress to stderr"),
		strict:  fs.Bool("strict", false, "Fail on malformed objects instead of skipping them"),
	}
}

func (c *common) parse(args []string) (string, error) {
	if err := c.fs.Parse(args); err != nil {
		return "", errUsage
	}
	if c.fs.NArg() != 1 {
		c.fs.Usage()
		return "", errUsage
	}
	return c.fs.Arg(0), nil
}

func (c *common) config() *editor.Config {
	cfg := editor.NewDefaultConfig()
	level := slog.LevelWarn
	if *c.verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = observability.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	if *c.strict {
		cfg.ParsingMode = editor.Strict
	}
	return cfg
}

func (c *common) open(ctx context.Context, path string, cfg *editor.Config) (*editor.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return editor.Open(ctx, data, cfg)
}

type fontReport struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	Source     string `json:"source,omitempty"`
	Embeddable bool   `json:"embeddable"`
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
	UnitsPerEm int    `json:"unitsPerEm,omitempty"`
	Glyphs     int    `json:"glyphs,omitempty"`
}

type fontsOutput struct {
	Total      int            `json:"total"`
	Embeddable int            `json:"embeddable"`
	Valid      int            `json:"valid"`
	ByType     map[string]int `json:"byType"`
	Fonts      []fontReport   `json:"fonts"`
}

func runFonts(ctx context.Context, args []string, stdout io.Writer) error {
	c := newFlags("fonts")
	path, err := c.parse(args)
	if err != nil {
		return err
	}
	s, err := c.open(ctx, path, c.config())
	if err != nil {
		return err
	}
	sum := fonts.Summarize(s.Fonts())
	out := fontsOutput{
		Total:      sum.Total,
		Embeddable: sum.Embeddable,
		Valid:      len(s.ParsedFonts()),
		ByType:     make(map[string]int, len(sum.ByType)),
	}
	for t, n := range sum.ByType {
		out.ByType[string(t)] = n
	}
	for _, f := range s.Fonts().Sorted() {
		r := fontReport{
			Identifier: f.Identifier,
			Kind:       f.Kind.String(),
			Type:       string(f.Type),
			Source:     f.Source,
			Embeddable: fonts.Embeddable(f),
		}
		if f.Err != nil {
			r.Error = f.Err.Error()
		}
		if pf, ok := s.ParsedFonts()[f.Identifier]; ok {
			r.Valid, r.UnitsPerEm, r.Glyphs = true, pf.UnitsPerEm, pf.NumGlyphs
		} else if r.Embeddable && r.Error == "" {
			r.Error = "font program failed validation"
		}
		out.Fonts = append(out.Fonts, r)
	}
	return emit(stdout, out)
}

func runRuns(ctx context.Context, args []string, stdout io.Writer) error {
	c := newFlags("runs")
	page := c.fs.Int("page", 1, "Page number, starting at 1")
	scale := c.fs.Float64("scale", 1, "Render scale")
	path, err := c.parse(args)
	if err != nil {
		return err
	}
	s, err := c.open(ctx, path, c.config())
	if err != nil {
		return err
	}
	runs, err := s.Page(ctx, *page, *scale)
	if err != nil {
		return err
	}
	return emit(stdout, runs)
}

func runMeta(ctx context.Context, args []string, stdout io.Writer) error {
	c := newFlags("meta")
	path, err := c.parse(args)
	if err != nil {
		return err
	}
	s, err := c.open(ctx, path, c.config())
	if err != nil {
		return err
	}
	return emit(stdout, metadata.Read(s.Document()))
}

// editEntry is one entry of the edits file.
type editEntry struct {
	RunID  string `json:"runId"`
	Text   string `json:"text"`
	Origin *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"origin,omitempty"`
}

func runEdit(ctx context.Context, args []string, stdout io.Writer) error {
	c := newFlags("edit")
	page := c.fs.Int("page", 1, "Page number, starting at 1")
	scale := c.fs.Float64("scale", 1, "Render scale the edit coordinates refer to")
	editsPath := c.fs.String("edits", "", "JSON file with [{runId, text, origin?}]")
	scope := c.fs.String("scope", string(editor.ScopeAll), "Runs to redraw: all or edited")
	margin := c.fs.Float64("margin", editor.DefaultMaskMargin, "Extra mask width in PDF units")
	outPath := c.fs.String("o", "", "Output file (default stdout)")
	path, err := c.parse(args)
	if err != nil {
		return err
	}
	if *outPath == "" {
		if f, ok := stdout.(*os.File); ok && isTerminal(f) {
			return errors.New("refusing to write PDF to a terminal; use -o or redirect stdout")
		}
	}
	edits, err := readEdits(*editsPath)
	if err != nil {
		return err
	}

	cfg := c.config()
	cfg.SaveScope = editor.SaveScope(*scope)
	cfg.MaskMargin = *margin
	s, err := c.open(ctx, path, cfg)
	if err != nil {
		return err
	}
	if _, err := s.Page(ctx, *page, *scale); err != nil {
		return err
	}
	if err := s.Apply(edits); err != nil {
		return err
	}
	res, err := s.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "pdfedit: %d runs redrawn, %d fonts embedded, %d standard, %d coverage fallbacks\n",
		res.Runs, res.Fonts.Extracted, res.Fonts.StandardFallback, res.Fonts.CoverageFallback)
	if *outPath != "" {
		if err := os.WriteFile(*outPath, res.PDF, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	_, err = stdout.Write(res.PDF)
	return err
}

func readEdits(path string) ([]editor.Edit, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edits: %w", err)
	}
	var entries []editEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse edits: %w", err)
	}
	edits := make([]editor.Edit, 0, len(entries))
	for _, in := range entries {
		e := editor.Edit{RunID: in.RunID, Text: in.Text}
		if in.Origin != nil {
			e.Origin = &coords.Point{X: in.Origin.X, Y: in.Origin.Y}
		}
		edits = append(edits, e)
	}
	return edits, nil
}

func emit(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
