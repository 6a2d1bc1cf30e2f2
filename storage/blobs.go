package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// notFoundError marks storage misses so handlers can map them to 404.
type notFoundError struct {
	kind string
	name string
}

func (e *notFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.kind, e.name) }
func (e *notFoundError) NotFound()     {}

// BlobStore wraps the blob service of the storage account.
type BlobStore struct {
	client *azblob.Client
}

func NewBlobStore(connStr string) (*BlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, err
	}
	return &BlobStore{client: client}, nil
}

// EnsureContainer creates the container if it does not exist yet.
func (b *BlobStore) EnsureContainer(ctx context.Context, container string) error {
	_, err := b.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return err
	}
	return nil
}

// ListBlobs returns the names of all blobs in the container.
func (b *BlobStore) ListBlobs(ctx context.Context, container string) ([]string, error) {
	if err := b.EnsureContainer(ctx, container); err != nil {
		return nil, err
	}
	names := []string{}
	pager := b.client.NewListBlobsFlatPager(container, nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// UploadBlob streams the body into the named blob, overwriting any previous
// content, and records its content type.
func (b *BlobStore) UploadBlob(ctx context.Context, container, name string, body io.Reader, contentType string) error {
	if err := b.EnsureContainer(ctx, container); err != nil {
		return err
	}
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	_, err := b.client.UploadStream(ctx, container, name, body, opts)
	return err
}

// DownloadBlob opens the named blob for reading and reports its content type.
func (b *BlobStore) DownloadBlob(ctx context.Context, container, name string) (io.ReadCloser, string, error) {
	resp, err := b.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, "", &notFoundError{kind: "blob", name: name}
		}
		return nil, "", err
	}
	contentType := "application/octet-stream"
	if resp.ContentType != nil && *resp.ContentType != "" {
		contentType = *resp.ContentType
	}
	return resp.Body, contentType, nil
}

// DeleteBlob removes the named blob and its snapshots. Deleting a missing
// blob is not an error.
func (b *BlobStore) DeleteBlob(ctx context.Context, container, name string) error {
	include := blob.DeleteSnapshotsOptionTypeInclude
	_, err := b.client.DeleteBlob(ctx, container, name, &azblob.DeleteBlobOptions{DeleteSnapshots: &include})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return err
	}
	return nil
}
