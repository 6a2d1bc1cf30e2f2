package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azfile/file"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azfile/fileerror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azfile/service"
)

// FileStore wraps the file share service of the storage account.
type FileStore struct {
	service *service.Client
}

func NewFileStore(connStr string) (*FileStore, error) {
	svc, err := service.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, err
	}
	return &FileStore{service: svc}, nil
}

// EnsureShare creates the share if it does not exist yet.
func (f *FileStore) EnsureShare(ctx context.Context, share string) error {
	_, err := f.service.NewShareClient(share).Create(ctx, nil)
	if err != nil && !fileerror.HasCode(err, fileerror.ShareAlreadyExists) {
		return err
	}
	return nil
}

// ListFiles returns the names of the files in the share root, directories
// excluded.
func (f *FileStore) ListFiles(ctx context.Context, share string) ([]string, error) {
	if err := f.EnsureShare(ctx, share); err != nil {
		return nil, err
	}
	root := f.service.NewShareClient(share).NewRootDirectoryClient()
	names := []string{}
	pager := root.NewListFilesAndDirectoriesPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Segment.Files {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// fileClient resolves a slash-separated path under the share root, creating
// intermediate directories when asked to.
func (f *FileStore) fileClient(ctx context.Context, share, path string, createDirs bool) (*file.Client, error) {
	if err := f.EnsureShare(ctx, share); err != nil {
		return nil, err
	}
	parts := splitFilePath(path)
	if len(parts) == 0 {
		return nil, &notFoundError{kind: "file", name: path}
	}
	dir := f.service.NewShareClient(share).NewRootDirectoryClient()
	for _, p := range parts[:len(parts)-1] {
		dir = dir.NewSubdirectoryClient(p)
		if createDirs {
			if _, err := dir.Create(ctx, nil); err != nil && !fileerror.HasCode(err, fileerror.ResourceAlreadyExists) {
				return nil, err
			}
		}
	}
	return dir.NewFileClient(parts[len(parts)-1]), nil
}

// UploadFile writes the payload as a file under the given path, creating
// intermediate directories as needed.
func (f *FileStore) UploadFile(ctx context.Context, share, path string, data []byte) error {
	fc, err := f.fileClient(ctx, share, path, true)
	if err != nil {
		return err
	}
	if _, err := fc.Create(ctx, int64(len(data)), nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err = fc.UploadRange(ctx, 0, streaming.NopCloser(bytes.NewReader(data)), nil)
	return err
}

// DownloadFile opens the file at the given path for reading.
func (f *FileStore) DownloadFile(ctx context.Context, share, path string) (io.ReadCloser, error) {
	fc, err := f.fileClient(ctx, share, path, false)
	if err != nil {
		return nil, err
	}
	resp, err := fc.DownloadStream(ctx, nil)
	if err != nil {
		if fileerror.HasCode(err, fileerror.ResourceNotFound, fileerror.ParentNotFound, fileerror.ShareNotFound) {
			return nil, &notFoundError{kind: "file", name: path}
		}
		return nil, err
	}
	return resp.Body, nil
}

// DeleteFile removes the file at the given path. Deleting a missing file is
// not an error.
func (f *FileStore) DeleteFile(ctx context.Context, share, path string) error {
	fc, err := f.fileClient(ctx, share, path, false)
	if err != nil {
		return err
	}
	if _, err := fc.Delete(ctx, nil); err != nil && !fileerror.HasCode(err, fileerror.ResourceNotFound, fileerror.ParentNotFound, fileerror.ShareNotFound) {
		return err
	}
	return nil
}

func splitFilePath(path string) []string {
	cleaned := strings.ReplaceAll(path, "\\", "/")
	parts := []string{}
	for _, p := range strings.Split(cleaned, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
