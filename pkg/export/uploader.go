// Package export hands finished recordings to a storage target.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Uploader stores data under folder/name and returns where it went.
type Uploader interface {
	Upload(ctx context.Context, data []byte, name, folder string) (string, error)
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, data []byte, name, folder string) (string, error)

// Upload calls f.
func (f UploaderFunc) Upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	return f(ctx, data, name, folder)
}

// Nop discards uploads. Used when export is disabled.
type Nop struct{}

// Upload returns an empty location.
func (Nop) Upload(context.Context, []byte, string, string) (string, error) {
	return "", nil
}

var folderLinkRe = regexp.MustCompile(`^https://drive\.google\.com/drive/folders/[a-zA-Z0-9_-]+`)

// ValidateFolderLink checks that link points to a shared drive folder.
func ValidateFolderLink(link string) error {
	if !folderLinkRe.MatchString(link) {
		return fmt.Errorf("invalid folder link %q: expected https://drive.google.com/drive/folders/<id>", link)
	}
	return nil
}

// Folder writes uploads below a local root directory.
type Folder struct {
	Root string
	// Link is reported as the location instead of the file path when set,
	// for roots synchronized to a shared folder.
	Link string
}

// NewFolder creates a folder uploader. A non-empty link must be a valid folder link.
func NewFolder(root, link string) (*Folder, error) {
	if link != "" {
		if err := ValidateFolderLink(link); err != nil {
			return nil, err
		}
	}
	if root == "" {
		root = "."
	}
	return &Folder{Root: root, Link: link}, nil
}

// Upload writes data to Root/folder/name.
func (f *Folder) Upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	dir := filepath.Join(f.Root, filepath.Clean("/"+folder))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	if f.Link != "" {
		return f.Link, nil
	}
	return path, nil
}
