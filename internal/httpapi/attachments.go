package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"buildledger/internal/blob"
)

// attachmentKey extracts the blob key from a wildcard route parameter.
func attachmentKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// uploadAttachment stores evidence bytes under the given key. Attachments are
// immutable; re-uploading an existing key is a conflict.
func (s *Server) uploadAttachment(c *gin.Context) {
	if s.blobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attachment store not configured"})
		return
	}
	key := attachmentKey(c)
	if key == "" {
		badRequest(c)
		return
	}
	info, err := s.blobs.Put(c.Request.Context(), key, c.Request.Body, blob.PutOptions{
		ContentType: c.ContentType(),
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"key":          info.Key,
		"size":         info.Size,
		"content_type": info.ContentType,
	})
}

// downloadAttachment streams stored evidence back to the caller.
func (s *Server) downloadAttachment(c *gin.Context) {
	if s.blobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attachment store not configured"})
		return
	}
	info, reader, err := s.blobs.Get(c.Request.Context(), attachmentKey(c))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attachment read failed"})
		return
	}
	defer func() { _ = reader.Close() }()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, reader, nil)
}
