package entity

import "strings"

const (
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

// RelayedFile is an attachment stored by the external file service.
type RelayedFile struct {
	OriginalName string
	MimeType     string
	Handle       string
}

// ClassifyMime returns the mime type used when uploading a file.
func ClassifyMime(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return MimePDF
	}
	return MimeOctetStream
}

// Handles returns the distinct storage handles in order.
func Handles(files []RelayedFile) []string {
	seen := make(map[string]bool, len(files))
	var out []string
	for _, f := range files {
		h := strings.TrimSpace(f.Handle)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
