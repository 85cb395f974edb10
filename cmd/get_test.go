package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rangepull/rangepull/internal/engine/controller"
	"github.com/rangepull/rangepull/internal/engine/types"
)

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "https://a.example/one.bin\n\n# comment line\n  https://b.example/two.bin  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := readURLsFromFile(path)
	if err != nil {
		t.Fatalf("readURLsFromFile: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("Expected 2 URLs, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://a.example/one.bin" || urls[1] != "https://b.example/two.bin" {
		t.Errorf("Unexpected URLs: %v", urls)
	}
}

func TestReadURLsFromFile_EmptyFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte("# only comments\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := readURLsFromFile(path); err == nil {
		t.Error("Expected an error for a file with no URLs")
	}
}

func TestReadURLsFromFile_MissingFileIsError(t *testing.T) {
	if _, err := readURLsFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestRunHeadless_DownloadsEveryURL(t *testing.T) {
	for _, name := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		t.Setenv(name, "")
	}

	body := "0123456789abcdefghijklmnopqrstuvwxyz"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			return
		}
		http.ServeContent(w, r, "f.bin", time.Time{}, strings.NewReader(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	urls := []string{srv.URL + "/a.bin", srv.URL + "/b.bin"}
	controllers := make([]*controller.Controller, len(urls))
	for i, u := range urls {
		controllers[i] = controller.New(types.DownloadTask{
			URL:            u,
			DownloadDir:    dir,
			ChunkSizeBytes: 8,
			WorkerCount:    2,
		}, nil)
	}

	failed := runHeadless(context.Background(), controllers, urls)
	if failed {
		t.Fatal("runHeadless reported a failure")
	}

	for _, name := range []string{"a.bin", "b.bin"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Reading %s: %v", name, err)
		}
		if string(data) != body {
			t.Errorf("%s content mismatch", name)
		}
	}
}
