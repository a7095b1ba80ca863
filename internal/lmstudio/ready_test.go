package lmstudio

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jxmullins/lmsready/internal/config"
)

// recordingRunner records invocations instead of spawning processes.
type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

// captureLogs redirects the global logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func testConfig(baseURL, model string) *config.Config {
	return &config.Config{
		Model: model,
		ModelProviders: map[string]config.ProviderConfig{
			config.LMStudioProviderID: {BaseURL: baseURL},
		},
	}
}

func testEnsurer(runner Runner, binary string, locateErr error) *Ensurer {
	return &Ensurer{
		Locate: func(homeDir string) (string, error) {
			return binary, locateErr
		},
		Runner: runner,
	}
}

func TestEnsureReadyModelPresent(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[{"id":"other"},{"id":"openai/gpt-oss-20b"}]}`)
	runner := &recordingRunner{}

	e := testEnsurer(runner, "lms", nil)
	cfg := testConfig(srv.URL, "openai/gpt-oss-20b")

	// Running twice must not spawn anything either time.
	for i := 0; i < 2; i++ {
		res, err := e.EnsureReady(context.Background(), cfg)
		if err != nil {
			t.Fatalf("EnsureReady() error = %v", err)
		}
		if res.Downloaded {
			t.Error("Downloaded = true, want false")
		}
		if !res.Listing.Has("openai/gpt-oss-20b") {
			t.Errorf("Listing = %v, want it to contain the model", res.Listing.Models)
		}
	}

	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
}

func TestEnsureReadyDownloadsMissingModel(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[{"id":"other"}]}`)
	runner := &recordingRunner{}
	logs := captureLogs(t)

	e := testEnsurer(runner, "/opt/lms", nil)
	res, err := e.EnsureReady(context.Background(), testConfig(srv.URL, "qwen/qwen3-4b"))
	if err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if !res.Downloaded {
		t.Error("Downloaded = false, want true")
	}
	if res.Model != "qwen/qwen3-4b" {
		t.Errorf("Model = %s, want qwen/qwen3-4b", res.Model)
	}

	want := [][]string{{"/opt/lms", "get", "--yes", "qwen/qwen3-4b"}}
	if !reflect.DeepEqual(runner.calls, want) {
		t.Errorf("runner calls = %v, want %v", runner.calls, want)
	}

	if !strings.Contains(logs.String(), "Successfully downloaded model") {
		t.Errorf("logs = %q, want success entry", logs.String())
	}
}

func TestEnsureReadyDefaultModel(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[]}`)
	runner := &recordingRunner{}

	res, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), testConfig(srv.URL, ""))
	if err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if res.Model != config.DefaultOSSModel {
		t.Errorf("Model = %s, want %s", res.Model, config.DefaultOSSModel)
	}
	if len(runner.calls) != 1 || runner.calls[0][3] != config.DefaultOSSModel {
		t.Errorf("runner calls = %v", runner.calls)
	}
}

func TestEnsureReadyMissingProvider(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	t.Cleanup(srv.Close)

	runner := &recordingRunner{}
	cfg := &config.Config{
		Model:          "m",
		ModelProviders: map[string]config.ProviderConfig{"ollama": {BaseURL: srv.URL}},
	}

	_, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), cfg)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("EnsureReady() error = %v, want ErrConfigurationMissing", err)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
}

func TestEnsureReadyServerUnreachable(t *testing.T) {
	runner := &recordingRunner{}

	_, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), testConfig(closedServerURL(t), "m"))

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("EnsureReady() error = %v (%T), want *TransportError", err, err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
}

func TestEnsureReadyListingTransportFailureIsAdvisory(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			// Health check.
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer does not support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	runner := &recordingRunner{}
	logs := captureLogs(t)

	res, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), testConfig(srv.URL, "m"))
	if err != nil {
		t.Fatalf("EnsureReady() error = %v, want nil", err)
	}

	var transportErr *TransportError
	if !errors.As(res.Listing.Err, &transportErr) {
		t.Errorf("Listing.Err = %v (%T), want *TransportError", res.Listing.Err, res.Listing.Err)
	}
	if res.Downloaded {
		t.Error("Downloaded = true, want false")
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("logs = %q, want a warning", logs.String())
	}
}

func TestEnsureReadyListingServerErrorIsAdvisory(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	runner := &recordingRunner{}
	captureLogs(t)

	res, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), testConfig(srv.URL, "m"))
	if err != nil {
		t.Fatalf("EnsureReady() error = %v, want nil", err)
	}
	if res.Listing.OK() {
		t.Error("Listing.OK() = true, want false")
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
}

func TestEnsureReadyListingMalformedIsAdvisory(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"models":[]}`)
	runner := &recordingRunner{}
	captureLogs(t)

	res, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), testConfig(srv.URL, "m"))
	if err != nil {
		t.Fatalf("EnsureReady() error = %v, want nil", err)
	}

	var malformed *MalformedResponseError
	if !errors.As(res.Listing.Err, &malformed) {
		t.Errorf("Listing.Err = %v, want *MalformedResponseError", res.Listing.Err)
	}
}

func TestEnsureReadyBinaryNotInstalled(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[]}`)
	runner := &recordingRunner{}

	_, err := testEnsurer(runner, "", ErrBinaryNotInstalled).EnsureReady(context.Background(), testConfig(srv.URL, "m"))
	if !errors.Is(err, ErrBinaryNotInstalled) {
		t.Fatalf("EnsureReady() error = %v, want ErrBinaryNotInstalled", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.calls))
	}
}

func TestEnsureReadyDownloadFails(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[]}`)
	runner := &recordingRunner{err: &SubprocessError{Command: []string{"lms"}, ExitCode: 1, Started: true, Err: errors.New("exit status 1")}}

	_, err := testEnsurer(runner, "lms", nil).EnsureReady(context.Background(), testConfig(srv.URL, "m"))

	var subErr *SubprocessError
	if !errors.As(err, &subErr) {
		t.Fatalf("EnsureReady() error = %v, want *SubprocessError", err)
	}
	if subErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", subErr.ExitCode)
	}
}

func TestEnsureReadyConfirm(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[]}`)

	t.Run("declined", func(t *testing.T) {
		runner := &recordingRunner{}
		e := testEnsurer(runner, "lms", nil)
		e.Confirm = func(model string) (bool, error) { return false, nil }

		res, err := e.EnsureReady(context.Background(), testConfig(srv.URL, "m"))
		if err != nil {
			t.Fatalf("EnsureReady() error = %v", err)
		}
		if !res.Declined || res.Downloaded {
			t.Errorf("Declined = %v, Downloaded = %v; want true, false", res.Declined, res.Downloaded)
		}
		if len(runner.calls) != 0 {
			t.Errorf("runner called %d times, want 0", len(runner.calls))
		}
	})

	t.Run("accepted", func(t *testing.T) {
		runner := &recordingRunner{}
		var asked string
		e := testEnsurer(runner, "lms", nil)
		e.Confirm = func(model string) (bool, error) {
			asked = model
			return true, nil
		}

		res, err := e.EnsureReady(context.Background(), testConfig(srv.URL, "m"))
		if err != nil {
			t.Fatalf("EnsureReady() error = %v", err)
		}
		if asked != "m" {
			t.Errorf("Confirm asked about %q, want m", asked)
		}
		if !res.Downloaded || len(runner.calls) != 1 {
			t.Errorf("Downloaded = %v, calls = %d; want true, 1", res.Downloaded, len(runner.calls))
		}
	})
}

func TestEnsureReadyWithExecRunner(t *testing.T) {
	srv := mockServer(t, http.StatusOK, `{"data":[]}`)
	t.Setenv("PATH", t.TempDir())

	home := t.TempDir()
	writeFakeLMS(t, filepath.Join(home, ".lmstudio", "bin"), "#!/bin/sh\n[ \"$1 $2 $3\" = \"get --yes m\" ] || exit 9\n")

	var out bytes.Buffer
	e := &Ensurer{
		HomeDir: home,
		Locate:  LocateBinary,
		Runner:  ExecRunner{Stdout: &out, Stderr: &out},
	}

	res, err := e.EnsureReady(context.Background(), testConfig(srv.URL, "m"))
	if err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if !res.Downloaded {
		t.Error("Downloaded = false, want true")
	}
}

func TestListingHas(t *testing.T) {
	l := Listing{Models: []string{"a", "b"}}
	if !l.Has("a") || l.Has("c") {
		t.Errorf("Has() wrong for %v", l.Models)
	}

	failed := Listing{Models: []string{"a"}, Err: errors.New("boom")}
	if failed.Has("a") {
		t.Error("Has() = true on failed listing, want false")
	}
}
