package filerelay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

// fakeDownloader serves file contents by URL.
type fakeDownloader map[string]string

func (d fakeDownloader) DownloadFile(_ context.Context, url string, w io.Writer) error {
	content, ok := d[url]
	if !ok {
		return errors.New("404 not found")
	}
	_, err := io.WriteString(w, content)
	return err
}

type uploadRecord struct {
	names    []string
	mimes    map[string]string
	contents map[string]string
}

func newFileService(t *testing.T, status int, response string, calls *atomic.Int32, rec *uploadRecord) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if rec != nil {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			rec.mimes = map[string]string{}
			rec.contents = map[string]string{}
			for field, headers := range r.MultipartForm.File {
				for _, fh := range headers {
					rec.names = append(rec.names, field)
					rec.mimes[fh.Filename] = fh.Header.Get("Content-Type")
					f, err := fh.Open()
					if !assert.NoError(t, err) {
						continue
					}
					b, _ := io.ReadAll(f)
					f.Close()
					rec.contents[fh.Filename] = string(b)
				}
			}
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func attached(names ...string) []entity.AttachedFile {
	files := make([]entity.AttachedFile, 0, len(names))
	for _, n := range names {
		files = append(files, entity.AttachedFile{ID: "F-" + n, Name: n, DownloadURL: "https://files/" + n})
	}
	return files
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging artifacts must be removed")
}

func TestRelay_PerFileHandles(t *testing.T) {
	var calls atomic.Int32
	rec := &uploadRecord{}
	srv := newFileService(t, http.StatusOK,
		`{"files":[{"name":"report.pdf","file_path":"s3://b/report"},{"name":"data.csv","file_path":"s3://b/data"}]}`,
		&calls, rec)

	tmp := t.TempDir()
	relay := New(srv.URL, tmp, time.Second, logger.Nop{})

	got := relay.Relay(context.Background(), fakeDownloader{
		"https://files/report.pdf": "%PDF",
		"https://files/data.csv":   "a,b",
	}, attached("report.pdf", "data.csv"))

	require.Len(t, got, 2)
	assert.Equal(t, entity.RelayedFile{OriginalName: "report.pdf", MimeType: entity.MimePDF, Handle: "s3://b/report"}, got[0])
	assert.Equal(t, entity.RelayedFile{OriginalName: "data.csv", MimeType: entity.MimeOctetStream, Handle: "s3://b/data"}, got[1])

	assert.Equal(t, int32(1), calls.Load(), "one batch upload")
	assert.ElementsMatch(t, []string{"report.pdf", "data.csv"}, rec.names)
	assert.Equal(t, entity.MimePDF, rec.mimes["report.pdf"])
	assert.Equal(t, entity.MimeOctetStream, rec.mimes["data.csv"])
	assert.Equal(t, "%PDF", rec.contents["report.pdf"])
	assertEmptyDir(t, tmp)
}

func TestRelay_SharedHandle(t *testing.T) {
	var calls atomic.Int32
	srv := newFileService(t, http.StatusOK, `{"file_path":"uploads/batch-1"}`, &calls, nil)

	tmp := t.TempDir()
	relay := New(srv.URL, tmp, time.Second, logger.Nop{})

	got := relay.Relay(context.Background(), fakeDownloader{
		"https://files/a.txt": "a",
		"https://files/b.txt": "b",
	}, attached("a.txt", "b.txt"))

	require.Len(t, got, 2)
	assert.Equal(t, []string{"uploads/batch-1"}, entity.Handles(got))
	assertEmptyDir(t, tmp)
}

func TestRelay_FailedDownloadIsExcluded(t *testing.T) {
	var calls atomic.Int32
	rec := &uploadRecord{}
	srv := newFileService(t, http.StatusOK, `{"file_path":"h"}`, &calls, rec)

	tmp := t.TempDir()
	relay := New(srv.URL, tmp, time.Second, logger.Nop{})

	got := relay.Relay(context.Background(), fakeDownloader{
		"https://files/ok.pdf": "x",
	}, attached("ok.pdf", "missing.pdf"))

	require.Len(t, got, 1)
	assert.Equal(t, "ok.pdf", got[0].OriginalName)
	assert.Equal(t, []string{"ok.pdf"}, rec.names)
	assertEmptyDir(t, tmp)
}

func TestRelay_AllDownloadsFailSkipsUpload(t *testing.T) {
	var calls atomic.Int32
	srv := newFileService(t, http.StatusOK, `{"file_path":"h"}`, &calls, nil)

	tmp := t.TempDir()
	relay := New(srv.URL, tmp, time.Second, logger.Nop{})

	got := relay.Relay(context.Background(), fakeDownloader{}, attached("gone.pdf"))

	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
	assertEmptyDir(t, tmp)
}

func TestRelay_UploadFailureRelaysNothing(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"invalid json", http.StatusOK, `not json`},
		{"no handles", http.StatusOK, `{"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newFileService(t, tt.status, tt.response, &calls, nil)

			tmp := t.TempDir()
			relay := New(srv.URL, tmp, time.Second, logger.Nop{})

			got := relay.Relay(context.Background(), fakeDownloader{"https://files/a.pdf": "a"}, attached("a.pdf"))

			assert.Empty(t, got)
			assert.Equal(t, int32(1), calls.Load())
			assertEmptyDir(t, tmp)
		})
	}
}

func TestRelay_UnreachableService(t *testing.T) {
	tmp := t.TempDir()
	relay := New("http://127.0.0.1:1/upload", tmp, time.Second, logger.Nop{})

	got := relay.Relay(context.Background(), fakeDownloader{"https://files/a.pdf": "a"}, attached("a.pdf"))

	assert.Empty(t, got)
	assertEmptyDir(t, tmp)
}

func TestRelay_NoFiles(t *testing.T) {
	relay := New("http://unused", t.TempDir(), 0, logger.Nop{})
	assert.Nil(t, relay.Relay(context.Background(), fakeDownloader{}, nil))
}
