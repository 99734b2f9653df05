// ABOUTME: Tests for CLI commands run end to end against a temp database.
// ABOUTME: Covers records, favorites, export/import, schema and sync push.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	healthsync "github.com/harperreed/healthlink/internal/sync"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default so runs don't leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return &cli{t: t, db: filepath.Join(dir, "health.db")}
}

func (c *cli) runIn(stdin string, args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--db", c.db}, args...))
	err := Execute()
	return out.String(), err
}

func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, err := c.runIn("", args...)
	require.NoError(c.t, err, out)
	return out
}

func TestAddAndList(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.run("add", "weight", "82.5"), "✓ Added weight")
	assert.Contains(t, c.run("add", "weight", "75", "--goal", "--at", "2024-01-01"), "Added goal weight")
	assert.Contains(t, c.run("add", "medication", "Prednisone", "--dosage", "10mg", "--type", "exacerbation"), "Added medication")
	assert.Contains(t, c.run("add", "oxygen", "96"), "96%")
	assert.Contains(t, c.run("add", "exercise", "walk", "30"), "Added walk exercise")
	assert.Contains(t, c.run("add", "water", "500"), "500 ml")
	assert.Contains(t, c.run("add", "food", "Oatmeal", "--meal", "breakfast", "--calories", "300"), "300 kcal")

	out := c.run("list", "weight")
	assert.Contains(t, out, "82.5 kg")
	assert.Contains(t, out, "75.0 kg (goal)")

	out = c.run("list", "weights", "--period", "day")
	assert.Contains(t, out, "82.5 kg")
	assert.NotContains(t, out, "75.0 kg")

	assert.Contains(t, c.run("list", "medication", "-t", "daily"), "No records found.")
	assert.Contains(t, c.run("list", "meds", "-t", "exacerbation"), "Prednisone")
	assert.Contains(t, c.run("list", "food"), "Oatmeal")

	out = c.run("status")
	assert.Contains(t, out, "500 ml")
	assert.Contains(t, out, "30 min")
	assert.Contains(t, out, "1 items, 300 kcal")
	assert.Contains(t, out, "82.5 kg (goal 75.0 kg, +7.5 to go)")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	c := newCLI(t)

	tests := [][]string{
		{"add", "oxygen", "120"},
		{"add", "weight", "heavy"},
		{"add", "weight", "-1"},
		{"add", "medication", "X", "--type", "weekly"},
		{"add", "water", "500", "--at", "tomorrow"},
		{"list", "steps"},
		{"list", "water", "--period", "year"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := c.runIn("", args...)
			assert.Error(t, err)
		})
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := newCLI(t)
	c.run("add", "water", "500")
	c.run("add", "water", "250")
	c.run("add", "water", "100")

	assert.Contains(t, c.run("delete", "water", "#1"), "Deleted water #1")
	_, err := c.runIn("", "delete", "water", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err := c.runIn("n\n", "clear", "water")
	require.NoError(t, err)
	assert.Contains(t, out, "Canceled.")
	assert.Contains(t, c.run("list", "water"), "250 ml")

	out, err = c.runIn("y\n", "clear", "water")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 2 water records")
	assert.Contains(t, c.run("list", "water"), "No records found.")
}

func TestFavorites(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.run("favorite", "add", "Usual Toast", "Toast", "--qty", "2", "--calories", "160"), "Saved favorite")
	assert.Contains(t, c.run("favorite", "add", "  usual   toast ", "Other"), "already exists")

	c.run("favorite", "add-meal", "Lunch box", "--meal", "lunch",
		"--item", "Sandwich=400", "--item", "Apple=95*2")
	_, err := c.runIn("", "favorite", "add-meal", "empty")
	assert.Error(t, err)

	out := c.run("favorite", "list")
	assert.Contains(t, out, "Usual Toast")
	assert.Contains(t, out, "Sandwich, Apple")

	assert.Contains(t, c.run("favorite", "log", "usual toast"), "Logged Toast")
	assert.Contains(t, c.run("favorite", "log", "LUNCH BOX", "--meal-kind"), "Logged 2 foods")
	_, err = c.runIn("", "favorite", "log", "nothing")
	assert.Error(t, err)

	assert.Contains(t, c.run("status"), "3 items, 655 kcal")

	assert.Contains(t, c.run("favorite", "delete", "meal", "1"), "Deleted favorite meal #1")
	assert.NotContains(t, c.run("favorite", "list"), "Lunch box")
}

func TestCustomFoods(t *testing.T) {
	c := newCLI(t)

	c.run("custom", "add", "Protein shake", "--serving", "1 scoop", "--calories", "120", "--protein", "24")
	assert.Contains(t, c.run("custom", "add", "protein SHAKE"), "already exists")
	assert.Contains(t, c.run("custom", "list", "shake"), "Protein shake")
	assert.Contains(t, c.run("custom", "list", "pizza"), "No custom foods found.")

	assert.Contains(t, c.run("custom", "log", "protein shake", "--servings", "2", "--meal", "snack"), "240 kcal")
	assert.Contains(t, c.run("list", "food", "-t", "snack"), "Protein shake")

	_, err := c.runIn("", "custom", "log", "protein shake", "--servings", "0")
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	c := newCLI(t)
	c.run("add", "weight", "80")
	c.run("add", "food", "Soup", "--calories", "200")
	c.run("favorite", "add", "soup", "Soup", "--calories", "200")

	backup := filepath.Join(t.TempDir(), "backup.json")
	assert.Contains(t, c.run("export", "json", "-o", backup), "Exported to")

	assert.Contains(t, c.run("export", "yaml"), "80.0 kg")
	assert.Contains(t, c.run("export", "markdown"), "## Weight")
	_, err := c.runIn("", "export", "csv")
	assert.Error(t, err)

	other := &cli{t: t, db: filepath.Join(t.TempDir(), "other.db")}
	assert.Contains(t, other.run("import", backup), "Imported from")
	other.run("import", backup)

	out := other.run("list", "food")
	assert.Equal(t, 1, strings.Count(out, "Soup"))
	assert.Contains(t, other.run("favorite", "list"), "soup")
}

func TestSchemaCommands(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.run("schema", "migrate", "--to", "2"), "Database at version 2")

	out := c.run("schema", "status")
	assert.Contains(t, out, "Version:  2 of")
	assert.Contains(t, out, "Pending migrations")

	_, err := c.runIn("", "schema", "migrate", "--to", "999")
	assert.Error(t, err)

	c.run("schema", "migrate")
	out = c.run("schema", "status")
	assert.NotContains(t, out, "Pending migrations")

	_, err = c.runIn("", "schema", "migrate", "--to", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot migrate backwards")
}

func TestWatchPrintsCurrentState(t *testing.T) {
	c := newCLI(t)
	c.run("add", "water", "300")

	out := c.run("watch", "water", "--updates", "1")
	assert.Contains(t, out, "1 water")
	assert.Contains(t, out, "300 ml")

	assert.Contains(t, c.run("watch", "totals", "--updates", "1"), "water 300 ml")
}

type syncServer struct {
	*httptest.Server
	hits    atomic.Int32
	lastLen atomic.Int32
}

func newSyncServer(t *testing.T, token string) *syncServer {
	s := &syncServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Missing or invalid token"}`))
			return
		}
		var batch models.SyncBatch
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.hits.Add(1)
		s.lastLen.Store(int32(batch.Len()))
		_, _ = w.Write([]byte(`{"synced":true}`))
	}))
	t.Cleanup(s.Close)
	return s
}

func TestSyncAfterWritesAndPush(t *testing.T) {
	c := newCLI(t)
	srv := newSyncServer(t, "tok")

	c.run("add", "water", "250")
	assert.Zero(t, srv.hits.Load(), "no server configured yet")

	out := c.run("sync", "login", "--server", srv.URL+"/", "--token", "tok")
	assert.Contains(t, out, "Logged in to "+srv.URL)

	c.run("add", "water", "500")
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, int32(2), srv.lastLen.Load())

	assert.Contains(t, c.run("sync", "push"), "Synced 2 records")
	assert.Equal(t, int32(2), srv.hits.Load())

	out = c.run("sync", "status")
	assert.Contains(t, out, "Token valid")
	assert.Contains(t, out, "WATER:")

	c.run("sync", "logout")
	c.run("add", "water", "100")
	assert.Equal(t, int32(2), srv.hits.Load())
	assert.Contains(t, c.run("sync", "status"), "Not logged in")
}

func TestSyncSkipsExpiredToken(t *testing.T) {
	c := newCLI(t)
	srv := newSyncServer(t, "tok")

	expired := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	c.run("sync", "login", "--server", srv.URL, "--token", "tok", "--expires", expired)

	assert.Contains(t, c.run("sync", "push"), "No valid token")
	assert.Contains(t, c.run("sync", "status"), "Token expired")
	assert.Zero(t, srv.hits.Load())
}

func TestSyncRejectedTokenKeepsLocalData(t *testing.T) {
	c := newCLI(t)
	srv := newSyncServer(t, "right")
	c.run("sync", "login", "--server", srv.URL, "--token", "wrong")

	out := c.run("add", "water", "400")
	assert.Contains(t, out, "Sync failed")
	assert.Contains(t, c.run("list", "water"), "400 ml")

	_, err := c.runIn("", "sync", "push")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected the token")
}

func TestSyncLoginRequiresServerAndToken(t *testing.T) {
	c := newCLI(t)
	_, err := c.runIn("", "sync", "login", "--server", "http://x")
	assert.Error(t, err)
	_, err = c.runIn("", "sync", "push")
	assert.Error(t, err)
}

func TestParseCollection(t *testing.T) {
	tests := map[string]collection{
		"weight": collWeight, "Weights": collWeight,
		"med": collMedication, "medications": collMedication,
		"spo2": collOxygen, "oxygen": collOxygen,
		"exercises": collExercise, "water": collWater, "foods": collFood,
	}
	for in, want := range tests {
		got, err := parseCollection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseCollection("steps")
	assert.Error(t, err)
}

func TestParseMealItem(t *testing.T) {
	it, err := parseMealItem("Apple=95")
	require.NoError(t, err)
	assert.Equal(t, "Apple", it.Name)
	assert.Equal(t, 95.0, it.Calories)
	assert.Equal(t, 1.0, it.Quantity)

	it, err = parseMealItem(" Rice = 200 * 1.5")
	require.NoError(t, err)
	assert.Equal(t, "Rice", it.Name)
	assert.Equal(t, 1.5, it.Quantity)

	for _, bad := range []string{"Apple", "=95", "Apple=lots", "Apple=95*some"} {
		_, err := parseMealItem(bad)
		assert.Error(t, err, bad)
	}
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "this is...", truncate("this is a long string", 10))
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
}

func TestAwaitSyncWaitsForPushAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var finished atomic.Bool
	ch := make(chan healthsync.Outcome, 1)
	go func() {
		defer close(ch)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		ch <- healthsync.Outcome{Err: context.Canceled}
	}()

	_, err := awaitSync(ctx, ch)
	require.EqualError(t, err, "sync canceled")
	assert.True(t, finished.Load(), "returned before the push finished")
}

func TestAwaitSyncReturnsOutcome(t *testing.T) {
	ch := make(chan healthsync.Outcome, 1)
	ch <- healthsync.Outcome{Result: healthsync.Result{Status: healthsync.StatusSynced}}
	close(ch)

	outcome, err := awaitSync(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, healthsync.StatusSynced, outcome.Result.Status)
}
