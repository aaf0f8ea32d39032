package clipstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"heatclip/internal/clipstore"
	"heatclip/internal/testsupport"
)

func TestAddAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustAddClip(t, store, clipstore.Clip{
		Series:    "Yargı",
		Key:       "12:00:58:45:01:00:15",
		Link:      "https://www.youtube.com/watch?v=abc",
		AudioPath: "/tmp/12_00-58-45_01-00-15.m4a",
	})

	clip, err := store.Get(ctx, "Yargı", "12:00:58:45:01:00:15")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if clip.Link != "https://www.youtube.com/watch?v=abc" || clip.AudioPath == "" {
		t.Fatalf("unexpected clip: %+v", clip)
	}
	if clip.Prediction != nil || clip.Label != nil || clip.HasTranscript() {
		t.Fatalf("expected fresh clip without results: %+v", clip)
	}
	if clip.CreatedAt.IsZero() || clip.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", clip)
	}
}

func TestAddDuplicateFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	clip := clipstore.Clip{Series: "Yargı", Key: "1:00:00:10:00:01:40", Link: "https://example.com/1"}
	if err := store.Add(ctx, clip); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	err := store.Add(ctx, clip)
	if !errors.Is(err, clipstore.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	clip.Series = "Hercai"
	if err := store.Add(ctx, clip); err != nil {
		t.Fatalf("same key in another series should succeed: %v", err)
	}
}

func TestAddRequiresLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Add(context.Background(), clipstore.Clip{Series: "Yargı", Key: "1:00:00:00:00:01:30"}); err == nil {
		t.Fatal("expected error for missing link")
	}
}

func TestUpdatesAdvanceClipState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	key := "3:00:10:00:00:11:30"
	testsupport.MustAddClip(t, store, clipstore.Clip{Series: "Yargı", Key: key})

	if err := store.SetAudioPath(ctx, "Yargı", key, "/audio/x.m4a"); err != nil {
		t.Fatalf("SetAudioPath failed: %v", err)
	}
	if err := store.SetTranscript(ctx, "Yargı", key, "Speaker A: merhaba"); err != nil {
		t.Fatalf("SetTranscript failed: %v", err)
	}
	if err := store.SetPrediction(ctx, "Yargı", key, 1); err != nil {
		t.Fatalf("SetPrediction failed: %v", err)
	}
	if err := store.SetLabel(ctx, "Yargı", key, testsupport.IntPtr(0)); err != nil {
		t.Fatalf("SetLabel failed: %v", err)
	}

	clip, err := store.Get(ctx, "Yargı", key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if clip.AudioPath != "/audio/x.m4a" || clip.Transcript != "Speaker A: merhaba" {
		t.Fatalf("unexpected clip: %+v", clip)
	}
	if clip.Prediction == nil || *clip.Prediction != 1 {
		t.Fatalf("unexpected prediction: %v", clip.Prediction)
	}
	if clip.Label == nil || *clip.Label != 0 {
		t.Fatalf("unexpected label: %v", clip.Label)
	}

	if err := store.SetLabel(ctx, "Yargı", key, nil); err != nil {
		t.Fatalf("clearing label failed: %v", err)
	}
	clip, _ = store.Get(ctx, "Yargı", key)
	if clip.Label != nil {
		t.Fatalf("expected label cleared, got %v", *clip.Label)
	}
}

func TestUpdatesRejectBadValuesAndMissingClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.MustAddClip(t, store, clipstore.Clip{Series: "Yargı", Key: "1:00:00:00:00:01:30"})

	if err := store.SetPrediction(ctx, "Yargı", "1:00:00:00:00:01:30", 2); err == nil {
		t.Fatal("expected error for prediction outside 0/1")
	}
	if err := store.SetLabel(ctx, "Yargı", "1:00:00:00:00:01:30", testsupport.IntPtr(-1)); err == nil {
		t.Fatal("expected error for label outside 0/1")
	}
	if err := store.SetTranscript(ctx, "Yargı", "9:00:00:00:00:01:30", "x"); !errors.Is(err, clipstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, "Hercai", "1:00:00:00:00:01:30"); !errors.Is(err, clipstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func seedDataset(t *testing.T, store *clipstore.Store) {
	t.Helper()
	ctx := context.Background()
	type row struct {
		key        string
		audio      string
		transcript string
		prediction *int
		label      *int
	}
	rows := []row{
		{"1:00:00:00:00:01:30", "", "", nil, nil},
		{"1:00:10:00:00:11:30", "/a/2.m4a", "", nil, nil},
		{"2:00:05:00:00:06:30", "/a/3.m4a", "Speaker A: bir", nil, nil},
		{"2:00:20:00:00:21:30", "/a/4.m4a", "Speaker A: iki", testsupport.IntPtr(1), testsupport.IntPtr(1)},
		{"3:00:01:00:00:02:30", "/a/5.m4a", "Speaker A: üç", testsupport.IntPtr(1), testsupport.IntPtr(0)},
		{"3:00:30:00:00:31:30", "/a/6.m4a", "Speaker A: dört", testsupport.IntPtr(0), nil},
	}
	for _, r := range rows {
		testsupport.MustAddClip(t, store, clipstore.Clip{Series: "Yargı", Key: r.key, AudioPath: r.audio})
		if r.transcript != "" {
			if err := store.SetTranscript(ctx, "Yargı", r.key, r.transcript); err != nil {
				t.Fatalf("SetTranscript: %v", err)
			}
		}
		if r.prediction != nil {
			if err := store.SetPrediction(ctx, "Yargı", r.key, *r.prediction); err != nil {
				t.Fatalf("SetPrediction: %v", err)
			}
		}
		if r.label != nil {
			if err := store.SetLabel(ctx, "Yargı", r.key, r.label); err != nil {
				t.Fatalf("SetLabel: %v", err)
			}
		}
	}
	testsupport.MustAddClip(t, store, clipstore.Clip{Series: "Hercai", Key: "1:00:00:00:00:01:30"})
}

func TestListFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedDataset(t, store)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter clipstore.Filter
		want   []string
	}{
		{"all", clipstore.Filter{Series: "Yargı"}, []string{
			"1:00:00:00:00:01:30", "1:00:10:00:00:11:30", "2:00:05:00:00:06:30",
			"2:00:20:00:00:21:30", "3:00:01:00:00:02:30", "3:00:30:00:00:31:30",
		}},
		{"needs transcript", clipstore.Filter{Series: "Yargı", NeedsTranscript: true}, []string{"1:00:10:00:00:11:30"}},
		{"needs prediction", clipstore.Filter{Series: "Yargı", NeedsPrediction: true}, []string{"2:00:05:00:00:06:30"}},
		{"needs label", clipstore.Filter{Series: "Yargı", NeedsLabel: true}, []string{"2:00:05:00:00:06:30", "3:00:30:00:00:31:30"}},
		{"violent", clipstore.Filter{Series: "Yargı", OnlyViolent: true}, []string{"2:00:20:00:00:21:30", "3:00:01:00:00:02:30"}},
		{"disagreements", clipstore.Filter{OnlyDisagreements: true}, []string{"3:00:01:00:00:02:30"}},
		{"limit", clipstore.Filter{Series: "Yargı", Limit: 2}, []string{"1:00:00:00:00:01:30", "1:00:10:00:00:11:30"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clips, err := store.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(clips) != len(tc.want) {
				t.Fatalf("got %d clips, want %d: %+v", len(clips), len(tc.want), clips)
			}
			for i, key := range tc.want {
				if clips[i].Key != key {
					t.Fatalf("clip %d = %q, want %q", i, clips[i].Key, key)
				}
			}
		})
	}
}

func TestStatsAndPercentages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedDataset(t, store)

	st, err := store.Stats(context.Background(), "Yargı")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := clipstore.Stats{Total: 6, WithAudio: 5, Transcribed: 4, Classified: 3, Violent: 2, Labeled: 2, Evaluated: 2, Correct: 1}
	if st != want {
		t.Fatalf("unexpected stats: got %+v want %+v", st, want)
	}
	pct, ok := st.ViolentPercent()
	if !ok || pct < 66.66 || pct > 66.67 {
		t.Fatalf("unexpected violent percent: %v %v", pct, ok)
	}
	acc, ok := st.Accuracy()
	if !ok || acc != 50 {
		t.Fatalf("unexpected accuracy: %v %v", acc, ok)
	}

	all, err := store.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats(all) failed: %v", err)
	}
	if all.Total != 7 {
		t.Fatalf("expected 7 clips overall, got %d", all.Total)
	}
}

func TestStatsEmptySeriesHasNoPercentages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	st, err := store.Stats(context.Background(), "Boş")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if _, ok := st.ViolentPercent(); ok {
		t.Fatal("expected no violent percentage without classified clips")
	}
	if _, ok := st.Accuracy(); ok {
		t.Fatal("expected no accuracy without evaluated clips")
	}
}

func TestSeriesAndResetPredictions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedDataset(t, store)
	ctx := context.Background()

	series, err := store.Series(ctx)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(series) != 2 || series[0].Name != "Hercai" || series[0].Clips != 1 || series[1].Name != "Yargı" || series[1].Clips != 6 {
		t.Fatalf("unexpected series: %+v", series)
	}

	reset, err := store.ResetPredictions(ctx, "Yargı")
	if err != nil {
		t.Fatalf("ResetPredictions failed: %v", err)
	}
	if reset != 3 {
		t.Fatalf("expected 3 predictions reset, got %d", reset)
	}
	pending, err := store.List(ctx, clipstore.Filter{Series: "Yargı", NeedsPrediction: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("expected every transcribed clip pending again, got %d", len(pending))
	}
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := clipstore.Key("1", "00:00:00", "00:01:"+twoDigits(i))
			errs <- store.Add(ctx, clipstore.Clip{Series: "Yargı", Key: key, Link: "https://example.com"})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Add failed: %v", err)
		}
	}
	st, err := store.Stats(ctx, "Yargı")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Total != 20 {
		t.Fatalf("expected 20 clips, got %d", st.Total)
	}
}

func twoDigits(i int) string {
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips.db")
	store, err := clipstore.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := clipstore.Open(path); !errors.Is(err, clipstore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clips.db")
	store, err := clipstore.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.MustAddClip(t, store, clipstore.Clip{Series: "Yargı", Key: "1:00:00:00:00:01:30"})
	store.Close()

	store, err = clipstore.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	if store.Path() != path {
		t.Fatalf("unexpected path: %q", store.Path())
	}
	if _, err := store.Get(context.Background(), "Yargı", "1:00:00:00:00:01:30"); err != nil {
		t.Fatalf("expected clip after reopen: %v", err)
	}
}
