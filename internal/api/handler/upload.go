package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/api/response"
)

// UploadHandler stores uploaded database files on disk for later connection.
type UploadHandler struct {
	uploadDir string
	maxSizeMB int
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadDir string, maxSizeMB int) *UploadHandler {
	os.MkdirAll(uploadDir, 0755)
	return &UploadHandler{uploadDir: uploadDir, maxSizeMB: maxSizeMB}
}

// UploadDatabase handles SQLite file upload
func (h *UploadHandler) UploadDatabase(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(int64(h.maxSizeMB) << 20)

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	allowedExts := map[string]bool{".db": true, ".sqlite": true, ".sqlite3": true, ".db3": true}
	if !allowedExts[ext] {
		response.BadRequest(w, "invalid file type. Allowed: .db, .sqlite, .sqlite3, .db3")
		return
	}

	// Unique filename to avoid collisions between uploads
	uniqueName := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	destPath := filepath.Join(h.uploadDir, uniqueName)

	dst, err := os.Create(destPath)
	if err != nil {
		response.InternalError(w, "failed to save file")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(destPath)
		response.InternalError(w, "failed to save file")
		return
	}

	absPath, _ := filepath.Abs(destPath)

	response.OK(w, map[string]any{
		"file_path":     absPath,
		"original_name": header.Filename,
		"size":          header.Size,
	})
}
