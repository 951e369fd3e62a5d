package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdfedit/internal/testpdf"
	"github.com/wudi/pdfedit/ir/raw"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	b := testpdf.New()
	f1 := b.TrueType("GoRegular", goregular.TTF, 600)
	b.AddPage("BT /F1 12 Tf 72 700 Td (Hello) Tj ET", testpdf.Fonts(map[string]raw.Object{"F1": f1}))
	info := raw.Dict()
	info.Set("Title", raw.Str([]byte("Draft")))
	b.Doc.Trailer.Set("Info", b.Doc.Add(info))

	path := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(path, b.Bytes(t), 0o644))
	return path
}

func TestRunsCommand(t *testing.T) {
	path := writeFixture(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"runs", "-page", "1", "-scale", "2", path}, &out))

	var runs []struct {
		ID   string  `json:"id"`
		Text string  `json:"text"`
		X    float64 `json:"x"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "text-1-0", runs[0].ID)
	assert.Equal(t, "Hello", runs[0].Text)
	assert.InDelta(t, 144, runs[0].X, 1e-9)
}

func TestFontsAndMetaCommands(t *testing.T) {
	path := writeFixture(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"fonts", path}, &out))
	var report fontsOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, map[string]int{"TrueType": 1}, report.ByType)
	require.Len(t, report.Fonts, 1)
	assert.Equal(t, "GoRegular", report.Fonts[0].Identifier)
	assert.True(t, report.Fonts[0].Valid)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"meta", path}, &out))
	var meta map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &meta))
	assert.Equal(t, "Draft", meta["title"])
	assert.Equal(t, float64(1), meta["pageCount"])
}

func TestEditCommand(t *testing.T) {
	path := writeFixture(t)
	dir := filepath.Dir(path)
	edits := filepath.Join(dir, "edits.json")
	require.NoError(t, os.WriteFile(edits, []byte(`[{"runId":"text-1-0","text":"Bye","origin":{"x":10,"y":20}}]`), 0o644))
	outPath := filepath.Join(dir, "out.pdf")

	require.NoError(t, run(context.Background(), []string{"edit", "-edits", edits, "-o", outPath, path}, nil))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"runs", outPath}, &out))
	assert.Contains(t, out.String(), `"text": "Bye"`)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"meta", outPath}, &out))
	assert.Contains(t, out.String(), `"title": ""`)
}

func TestEditRefusesTerminal(t *testing.T) {
	saved := isTerminal
	isTerminal = func(*os.File) bool { return true }
	defer func() { isTerminal = saved }()

	err := run(context.Background(), []string{"edit", writeFixture(t)}, os.Stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	for _, args := range [][]string{nil, {"frobnicate"}, {"runs"}, {"runs", "a.pdf", "b.pdf"}} {
		err := run(context.Background(), args, &out)
		assert.True(t, errors.Is(err, errUsage), "%v", args)
	}
	err := run(context.Background(), []string{"runs", filepath.Join(t.TempDir(), "missing.pdf")}, &out)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, errUsage))
}
