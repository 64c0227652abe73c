package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/api"
	"github.com/itchan-dev/mediable/shared/domain"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent GIF
var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func multipartRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("name", "Pixel"))
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/media", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadMedia(t *testing.T) {
	t.Run("stores the file", func(t *testing.T) {
		env := newTestEnv()
		var got service.UploadInput
		var data []byte
		env.media.MockUpload = func(ctx context.Context, in service.UploadInput) (domain.Media, error) {
			got = in
			data, _ = io.ReadAll(in.Data)
			return domain.Media{Id: 5, Name: in.Name, FileName: in.Filename, MimeType: in.MimeType}, nil
		}

		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, multipartRequest(t, "pixel.gif", gifBytes))

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "pixel.gif", got.Filename)
		assert.Equal(t, "Pixel", got.Name)
		assert.Equal(t, "image/gif", got.MimeType)
		assert.Equal(t, gifBytes, data)

		resp := decodeBody[api.MediaResponse](t, rr)
		assert.Equal(t, domain.MediaId(5), resp.Id)
		assert.Equal(t, "/media/pixel.gif", resp.Urls.Original)
	})

	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv()
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, multipartRequest(t, "", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("disallowed type", func(t *testing.T) {
		env := newTestEnv()
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, multipartRequest(t, "notes.txt", []byte("plain text")))
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv()
		env.handler.cfg.Public.Media.MaxUploadSizeBytes = 10
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, multipartRequest(t, "pixel.gif", gifBytes))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}

func TestGetMediaRecord(t *testing.T) {
	env := newTestEnv()
	env.media.MockGet = func(ctx context.Context, id domain.MediaId) (domain.Media, error) {
		if id == 404 {
			return domain.Media{}, internal_errors.NotFound("Media not found")
		}
		return domain.Media{Id: id, FileName: "a.png"}, nil
	}

	rr := env.do(http.MethodGet, "/v1/media/3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[api.MediaResponse](t, rr)
	assert.Equal(t, domain.MediaId(3), resp.Id)
	assert.Equal(t, "/media/a.png", resp.Urls.Original)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/media/404", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/v1/media/zero", "").Code)
}

func TestDeleteMediaRecord(t *testing.T) {
	env := newTestEnv()
	var deleted domain.MediaId
	env.media.MockDelete = func(ctx context.Context, id domain.MediaId) error {
		deleted = id
		return nil
	}

	rr := env.do(http.MethodDelete, "/v1/media/9", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, domain.MediaId(9), deleted)
}
