// Package filerelay copies Slack attachments to the external file service.
package filerelay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
	"github.com/qj0r9j0vc2/answer-bridge/internal/usecase/event"
)

const defaultUploadTimeout = 60 * time.Second

// stagedFile is a downloaded attachment waiting for upload.
type stagedFile struct {
	name string
	path string
}

// Relay downloads attachments with the bot's token, stages them in a
// temporary directory and uploads them to the file service in one batch.
type Relay struct {
	uploadURL  string
	tempDir    string
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a relay. An empty tempDir uses the system default.
func New(uploadURL, tempDir string, timeout time.Duration, logger logger.Logger) *Relay {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &Relay{
		uploadURL:  uploadURL,
		tempDir:    tempDir,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Relay implements event.FileRelay. Download failures drop the file;
// an upload failure drops the whole batch. The staging directory is always removed.
func (r *Relay) Relay(ctx context.Context, downloader event.FileDownloader, files []entity.AttachedFile) []entity.RelayedFile {
	if len(files) == 0 {
		return nil
	}

	dir, err := os.MkdirTemp(r.tempDir, "answer-bridge-*")
	if err != nil {
		r.logger.Error("failed to create staging directory", "error", err)
		return nil
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("failed to remove staging directory", "dir", dir, "error", err)
		}
	}()

	staged := make([]stagedFile, 0, len(files))
	for i, f := range files {
		path, err := r.stage(ctx, downloader, dir, i, f)
		if err != nil {
			r.logger.Error("failed to download file",
				"file_id", f.ID,
				"file_name", f.Name,
				"error", err,
			)
			continue
		}
		staged = append(staged, stagedFile{name: f.Name, path: path})
	}

	if len(staged) == 0 {
		return nil
	}

	body, err := r.upload(ctx, staged)
	if err != nil {
		r.logger.Error("failed to upload files", "count", len(staged), "error", err)
		return nil
	}

	relayed := assignHandles(staged, body)
	r.logger.Info("files relayed", "requested", len(files), "relayed", len(relayed))
	return relayed
}

func (r *Relay) stage(ctx context.Context, downloader event.FileDownloader, dir string, index int, f entity.AttachedFile) (string, error) {
	if f.DownloadURL == "" {
		return "", fmt.Errorf("file has no download url")
	}

	path := filepath.Join(dir, fmt.Sprintf("%03d_%s", index, filepath.Base(f.Name)))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}
	defer out.Close()

	if err := downloader.DownloadFile(ctx, f.DownloadURL, out); err != nil {
		return "", err
	}
	return path, nil
}

// upload posts all staged files as one multipart request and returns the response body.
func (r *Relay) upload(ctx context.Context, staged []stagedFile) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, sf := range staged {
		if err := writePart(mw, sf); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("file service returned invalid JSON")
	}
	return body, nil
}

func writePart(mw *multipart.Writer, sf stagedFile) error {
	in, err := os.Open(sf.path)
	if err != nil {
		return fmt.Errorf("opening staged file: %w", err)
	}
	defer in.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, sf.name, sf.name))
	h.Set("Content-Type", entity.ClassifyMime(sf.name))

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating form part: %w", err)
	}
	if _, err := io.Copy(part, in); err != nil {
		return fmt.Errorf("copying %s: %w", sf.name, err)
	}
	return nil
}

// assignHandles maps the upload response to relayed files.
// A files array gives per-file handles matched by name, otherwise the
// top-level file_path applies to every file.
func assignHandles(staged []stagedFile, body []byte) []entity.RelayedFile {
	perFile := make(map[string]string)
	gjson.GetBytes(body, "files").ForEach(func(_, f gjson.Result) bool {
		if name, handle := f.Get("name").String(), f.Get("file_path").String(); name != "" && handle != "" {
			perFile[name] = handle
		}
		return true
	})
	shared := strings.TrimSpace(gjson.GetBytes(body, "file_path").String())

	relayed := make([]entity.RelayedFile, 0, len(staged))
	for _, sf := range staged {
		handle := strings.TrimSpace(perFile[sf.name])
		if handle == "" {
			handle = shared
		}
		if handle == "" {
			continue
		}
		relayed = append(relayed, entity.RelayedFile{
			OriginalName: sf.name,
			MimeType:     entity.ClassifyMime(sf.name),
			Handle:       handle,
		})
	}
	return relayed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
