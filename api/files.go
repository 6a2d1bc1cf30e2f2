package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const fileMaxSize = 64 << 20

func listFiles(files FileStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		names, err := files.ListFiles(c.Request().Context(), c.Param("share"))
		if err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "list files failed")
		}
		return c.JSON(http.StatusOK, names)
	}
}

type fileUploadedResponse struct {
	OK   bool   `json:"ok"`
	Name string `json:"name"`
}

func uploadFile(files FileStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := filePath(c)
		if name == "" {
			return problem(c, http.StatusBadRequest, "missing file name")
		}
		data, err := io.ReadAll(io.LimitReader(c.Request().Body, fileMaxSize))
		if err != nil {
			return problem(c, http.StatusBadRequest, "unreadable body")
		}
		if err := files.UploadFile(c.Request().Context(), c.Param("share"), name, data); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "upload failed")
		}
		return c.JSON(http.StatusCreated, fileUploadedResponse{OK: true, Name: name})
	}
}

func downloadFile(files FileStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := filePath(c)
		if name == "" {
			return problem(c, http.StatusBadRequest, "missing file name")
		}
		body, err := files.DownloadFile(c.Request().Context(), c.Param("share"), name)
		if err != nil {
			var nf NotFoundError
			if errors.As(err, &nf) {
				return problem(c, http.StatusNotFound, "file not found")
			}
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "download failed")
		}
		defer body.Close()
		return c.Stream(http.StatusOK, "application/octet-stream", body)
	}
}

func deleteFile(files FileStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := filePath(c)
		if name == "" {
			return problem(c, http.StatusBadRequest, "missing file name")
		}
		if err := files.DeleteFile(c.Request().Context(), c.Param("share"), name); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "delete failed")
		}
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}
}

func filePath(c echo.Context) string {
	name := c.Param("*")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return strings.Trim(name, "/")
}
