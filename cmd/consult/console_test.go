package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const humKB = `{
  "hypotheses": {
    "A": {"PH": 0.5, "e_triplets": {"1": [0.9, 0.1]}},
    "B": {"PH": 0.5, "e_triplets": {"1": [0.1, 0.9]}}
  },
  "evidences": {"1": {"question": "Does it hum?"}}
}`

const clickKB = `{
  "hypotheses": {
    "starter": {"PH": 0.2, "e_triplets": {"1": [0.8, 0.3]}},
    "battery": {"PH": 0.6, "e_triplets": {"1": [0.1, 0.5]}}
  },
  "evidences": {"1": {"question": "Do you hear a click?"}}
}`

func writeKB(t *testing.T, dir, file, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(doc), 0o644))
}

func runConsole(t *testing.T, dir, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := newConsole(dir, strings.NewReader(input), &out, zap.NewNop())
	err := c.run(context.Background())
	return out.String(), err
}

func TestConsole_SingleKnowledgeBase(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, "kdb-hum.json", humKB)
	writeKB(t, dir, "notes.json", `{}`)

	out, err := runConsole(t, dir, "5\n")

	require.NoError(t, err)
	assert.NotContains(t, out, "Please choose")
	assert.Contains(t, out, "You need to answer with an integer from -5 to 5")
	assert.Contains(t, out, "Does it hum?: ")
	assert.Contains(t, out, "A : 0.90\nB : 0.10\n")
	assert.NotContains(t, out, "best guess")
	assert.True(t, strings.HasSuffix(out, "\nWinners:\nA 0.90\n"), out)
}

func TestConsole_RepromptsOnInvalidReply(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, "kdb-hum.json", humKB)

	out, err := runConsole(t, dir, "yes\n9\n-6\n-5\n")

	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "Does it hum?: "))
	assert.Contains(t, out, "Winners:\nB 0.90\n")
}

func TestConsole_Menu(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, "kdb-click.json", clickKB)
	writeKB(t, dir, "kdb-hum.json", humKB)

	out, err := runConsole(t, dir, "3\n2\n5\n")

	require.NoError(t, err)
	assert.Contains(t, out, "1 - click\n2 - hum\n")
	assert.Equal(t, 2, strings.Count(out, "Please choose the knowledge DB: "))
	assert.Contains(t, out, "Does it hum?: ")
	assert.NotContains(t, out, "Do you hear a click?")
}

func TestConsole_BestGuessWhenQuestionsRunOut(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, "kdb-tie.json", `{
  "hypotheses": {
    "A": {"PH": 0.5, "e_triplets": {"1": [0.7, 0.3]}},
    "B": {"PH": 0.5, "e_triplets": {"1": [0.7, 0.3]}}
  },
  "evidences": {"1": {"question": "Is it plugged in?"}}
}`)

	out, err := runConsole(t, dir, "0\n")

	require.NoError(t, err)
	assert.Contains(t, out, "No questions left; the result is a best guess.")
	assert.True(t, strings.HasSuffix(out, "\nWinners:\nA 0.50\nB 0.50\n"), out)
}

func TestConsole_Errors(t *testing.T) {
	_, err := runConsole(t, t.TempDir(), "")
	assert.ErrorIs(t, err, errNoKnowledgeBases)

	dir := t.TempDir()
	writeKB(t, dir, "kdb-hum.json", humKB)
	_, err = runConsole(t, dir, "")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
