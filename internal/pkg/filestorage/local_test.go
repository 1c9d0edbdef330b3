package filestorage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uploadHeader builds a real multipart.FileHeader the way gin receives one
func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveAndDeleteImage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	url, err := store.SaveFileWithPath(uploadHeader(t, "Star.PNG", []byte("png-bytes")), "items")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/items/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	full := store.GetFullPath(url)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.DeleteFile(url))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.DeleteFile(url), "deleting twice is a no-op")
}

func TestRejectsUnsupportedExtension(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.SaveFileWithPath(uploadHeader(t, "script.sh", []byte("#!/bin/sh")), "items")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestForeignURLsAreIgnored(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.Empty(t, store.GetFullPath("https://cdn.example.com/pic.png"))
	assert.Empty(t, store.GetFullPath("/uploads/"))
	assert.NoError(t, store.DeleteFile("https://cdn.example.com/pic.png"))
}

func TestPathTraversalStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	full := store.GetFullPath("/uploads/../../etc/passwd")
	assert.True(t, strings.HasPrefix(full, dir), full)
}
