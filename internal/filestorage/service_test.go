package filestorage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFileStorageService(t *testing.T) (*FileStorageService, string) {
	root := filepath.Join(t.TempDir(), "storage")
	fs, err := NewFileStorageService(root, zap.NewNop())
	require.NoError(t, err)
	return fs, root
}

// newTestFileHeader builds a FileHeader the way gin parses a multipart upload.
func newTestFileHeader(t *testing.T, fieldname, filename, content, contentType string) *multipart.FileHeader {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldname, filename))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	files := form.File[fieldname]
	require.NotEmpty(t, files)
	return files[0]
}

func TestSaveUploadedFile(t *testing.T) {
	fs, root := setupFileStorageService(t)

	rel, err := fs.SaveUploadedFile(newTestFileHeader(t, "image", "martillo.jpeg", "jpeg bytes", "image/jpeg"), "products")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "products/"))
	assert.True(t, strings.HasSuffix(rel, ".jpg"))

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(content))

	rel, err = fs.SaveUploadedFile(newTestFileHeader(t, "file", "factura", "%PDF-1.4", "application/pdf"), "intake")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rel, ".pdf"))
}

func TestSaveUploadedFileRejectsUnknownTypes(t *testing.T) {
	fs, _ := setupFileStorageService(t)

	_, err := fs.SaveUploadedFile(newTestFileHeader(t, "file", "notes.txt", "text", "text/plain"), "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = fs.SaveUploadedFile(nil, "docs")
	assert.EqualError(t, err, "fileHeader cannot be nil")
}

func TestResolveRejectsTraversal(t *testing.T) {
	fs, root := setupFileStorageService(t)

	for _, p := range []string{"../outside.txt", "products/../../outside.txt", "/etc/passwd", "", ".."} {
		_, err := fs.Resolve(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}

	full, err := fs.Resolve("products/a.png")
	require.NoError(t, err)
	absRoot, _ := filepath.Abs(root)
	assert.Equal(t, filepath.Join(absRoot, "products", "a.png"), full)

	_, err = fs.SaveBytes([]byte("x"), "../escape", ".pdf")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestDeleteFile(t *testing.T) {
	fs, root := setupFileStorageService(t)

	rel, err := fs.SaveBytes([]byte("%PDF"), "reports", ".pdf")
	require.NoError(t, err)
	f, err := fs.Open(rel)
	require.NoError(t, err)
	f.Close()

	require.NoError(t, fs.DeleteFile(rel))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, fs.DeleteFile("reports/missing.pdf"))

	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))
	err = fs.DeleteFile("../outside.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file path for deletion")
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}
