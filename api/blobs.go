package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

func listBlobs(blobs BlobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		names, err := blobs.ListBlobs(c.Request().Context(), c.Param("container"))
		if err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "list failed")
		}
		return c.JSON(http.StatusOK, names)
	}
}

func downloadBlob(blobs BlobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := blobName(c)
		body, contentType, err := blobs.DownloadBlob(c.Request().Context(), c.Param("container"), name)
		if err != nil {
			var nf NotFoundError
			if errors.As(err, &nf) {
				return problem(c, http.StatusNotFound, "blob '"+name+"' not found")
			}
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "download failed")
		}
		defer body.Close()
		c.Response().Header().Set("Cache-Control", "public, max-age=300")
		return c.Stream(http.StatusOK, contentType, body)
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// uploadBlob accepts either a multipart form with a "file" field or the raw
// request body. The stored content type comes from the part or request, or
// is guessed from the blob name as a fallback.
func uploadBlob(blobs BlobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		container := c.Param("container")
		name := blobName(c)

		var payload io.Reader
		var contentType string

		reqContentType := c.Request().Header.Get(echo.HeaderContentType)
		if strings.HasPrefix(strings.ToLower(reqContentType), "multipart/form-data") {
			fh, err := c.FormFile("file")
			if err != nil {
				return problem(c, http.StatusBadRequest, "no 'file' field found in form-data")
			}
			part, err := fh.Open()
			if err != nil {
				c.Logger().Error(err)
				return problem(c, http.StatusInternalServerError, "upload failed")
			}
			defer part.Close()
			payload = part
			contentType = fh.Header.Get(echo.HeaderContentType)
		} else {
			payload = io.LimitReader(c.Request().Body, blobMaxSize)
			contentType = reqContentType
		}

		if contentType == "" {
			contentType = guessMimeType(name)
		}

		if err := blobs.UploadBlob(ctx, container, name, payload, contentType); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "upload failed")
		}

		return c.JSON(http.StatusCreated, uploadResponse{URL: blobURL(c, container, name)})
	}
}

func deleteBlob(blobs BlobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := blobs.DeleteBlob(c.Request().Context(), c.Param("container"), blobName(c)); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "delete failed")
		}
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}
}

const blobMaxSize = 64 << 20

func blobName(c echo.Context) string {
	name := c.Param("*")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

func blobURL(c echo.Context, container, name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.Scheme() + "://" + c.Request().Host + "/api/blobs/" + url.PathEscape(container) + "/" + strings.Join(parts, "/")
}

func guessMimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".avif":
		return "image/avif"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
