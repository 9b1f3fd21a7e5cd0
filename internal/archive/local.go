package archive

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// LocalDir lists files below a directory on the local filesystem.
type LocalDir struct {
	Root string
}

// List walks Root and returns every regular file, sorted by path. Hidden files
// and directories are skipped.
func (d LocalDir) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(d.Root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p != d.Root && strings.HasPrefix(de.Name(), ".") {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !de.Type().IsRegular() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		mod := info.ModTime().UTC()
		entries = append(entries, Entry{
			Path:       "/" + filepath.ToSlash(rel),
			MediaType:  MediaTypeFor(de.Name()),
			SizeBytes:  info.Size(),
			ModifiedAt: &mod,
		})
		return nil
	})
	if err != nil {
		return nil, &Error{Source: d.Root, Message: "failed to walk directory", Cause: err}
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}
