// Package archive lists coaching-session artifacts from a file archive and maps
// them to raw records for enrichment.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/session-indexer/internal/types"
)

// Media kinds assigned from the file extension.
const (
	MediaVideo    = "video"
	MediaAudio    = "audio"
	MediaDocument = "document"
	MediaOther    = "other"
)

var mediaByExt = map[string]string{
	".mp4": MediaVideo, ".mov": MediaVideo, ".m4v": MediaVideo, ".mkv": MediaVideo,
	".avi": MediaVideo, ".webm": MediaVideo, ".wmv": MediaVideo,
	".mp3": MediaAudio, ".m4a": MediaAudio, ".wav": MediaAudio, ".aac": MediaAudio,
	".ogg": MediaAudio, ".flac": MediaAudio,
	".pdf": MediaDocument, ".doc": MediaDocument, ".docx": MediaDocument, ".txt": MediaDocument,
	".md": MediaDocument, ".rtf": MediaDocument, ".gdoc": MediaDocument, ".pptx": MediaDocument,
	".key": MediaDocument,
}

// Entry is one file in an archive. Path is archive-relative and slash separated,
// starting with "/".
type Entry struct {
	Path       string
	MediaType  string
	SizeBytes  int64
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

// Name returns the final path element.
func (e Entry) Name() string {
	return path.Base(e.Path)
}

// Folder returns the parent folder path, or "" for root-level files.
func (e Entry) Folder() string {
	dir := path.Dir(e.Path)
	if dir == "/" || dir == "." {
		return ""
	}
	return dir
}

// Source lists archive entries.
type Source interface {
	List(ctx context.Context) ([]Entry, error)
}

// Error reports a failure reading an archive.
type Error struct {
	Source  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("archive error for %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("archive error for %s: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// MediaTypeFor classifies a file name by extension.
func MediaTypeFor(name string) string {
	if kind, ok := mediaByExt[strings.ToLower(path.Ext(name))]; ok {
		return kind
	}
	return MediaOther
}

// Indexable reports whether an entry should become a session record.
func Indexable(e Entry) bool {
	switch e.MediaType {
	case MediaVideo, MediaAudio, MediaDocument:
		return true
	default:
		return false
	}
}

// ExternalID derives a stable record id from the archive path so repeated
// ingests of the same file address the same record.
func ExternalID(archivePath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("archive://"+archivePath)).String()
}

// ToRawRecord maps an archive entry to the raw surfaces the enricher reads.
func ToRawRecord(e Entry) types.RawRecord {
	return types.RawRecord{
		ExternalID: ExternalID(e.Path),
		Filename:   e.Name(),
		FolderPath: e.Folder(),
		MediaType:  e.MediaType,
		SizeBytes:  e.SizeBytes,
		CreatedAt:  e.CreatedAt,
		ModifiedAt: e.ModifiedAt,
	}
}
