package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"heatclip/internal/config"
	"heatclip/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOpenAI_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o","object":"model","created":0,"owned_by":"openai"}]}`))
	}))
	defer srv.Close()

	result := CheckOpenAI(context.Background(), srv.URL+"/v1/", "good-key")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckOpenAI_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	result := CheckOpenAI(context.Background(), srv.URL+"/v1/", "bad-key")
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.Contains(result.Detail, "auth failed") {
		t.Fatalf("expected auth failure detail, got %q", result.Detail)
	}
}

func TestCheckOpenAI_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	result := CheckOpenAI(context.Background(), srv.URL+"/v1/", "good-key")
	if result.Passed {
		t.Fatal("expected failure for server error")
	}
	if !strings.Contains(result.Detail, "500") {
		t.Fatalf("expected status in detail, got %q", result.Detail)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
}

func TestCheckOpenAI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := CheckOpenAI(context.Background(), url+"/v1/", "good-key")
	if result.Passed {
		t.Fatal("expected failure for closed endpoint")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckOpenAI_MissingKey(t *testing.T) {
	result := CheckOpenAI(context.Background(), "http://localhost", "")
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckAPIKey(t *testing.T) {
	if r := CheckAPIKey("AssemblyAI API key", "", "AAI_API_KEY"); r.Passed {
		t.Fatal("expected failure for empty key")
	}
	if r := CheckAPIKey("AssemblyAI API key", "k", "AAI_API_KEY"); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
}

func TestCheckChromeExplicitPath(t *testing.T) {
	missing := CheckChrome(filepath.Join(t.TempDir(), "chrome"))
	if missing.Passed {
		t.Fatal("expected failure for missing chrome path")
	}
	path := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if r := CheckChrome(path); !r.Passed || r.Detail != path {
		t.Fatalf("expected explicit chrome path to pass, got %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, AllStages()); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportOnlyChecksDataDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, Stages{})
	if len(results) != 1 || !results[0].Passed {
		t.Fatalf("expected a single passing data dir check, got %+v", results)
	}
}

func TestRunAll_TranscribeAndClassify(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPIKeys())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, Stages{Transcribe: true, Classify: true})
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected both key checks to fail, got %+v", failed)
	}
	if Summary(failed) == "" {
		t.Fatal("expected summary text")
	}
}

func TestRunAll_WhisperXNeedsUVX(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("uvx", "ffmpeg"))
	cfg.Transcription.Backend = "whisperx"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, Stages{Transcribe: true})
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = r.Passed
	}
	if !names["uvx"] || !names["FFmpeg"] {
		t.Fatalf("expected passing uvx and ffmpeg checks, got %+v", results)
	}
	if _, ok := names["AssemblyAI API key"]; ok {
		t.Fatal("whisperx backend should not require an AssemblyAI key")
	}
}

func TestCheckSystemDepsCollect(t *testing.T) {
	cfg := config.Default()
	cfg.Download.Binary = "clearly-not-present-yt-dlp"
	statuses := CheckSystemDeps(context.Background(), &cfg, Stages{Collect: true})
	if len(statuses) != 2 {
		t.Fatalf("expected yt-dlp and ffmpeg statuses, got %+v", statuses)
	}
	if statuses[0].Available {
		t.Fatal("expected missing yt-dlp")
	}
}
