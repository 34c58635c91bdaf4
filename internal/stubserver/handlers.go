package stubserver

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

var allowedExtensions = []string{"pdf", "txt", "docx"}

type uploadResponse struct {
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
}

type askRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Documents     int    `json:"documents"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.MaxMultipartMemory = s.settings.MaxUploadBytes
	router.GET("/health", s.handleHealth)
	router.POST("/upload", s.handleUpload)
	router.GET("/summary/:doc_id", s.handleSummary)
	router.POST("/ask/:doc_id", s.handleAsk)
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := s.clock()
		c.Next()
		s.logger.Printf("stubserver: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), s.clock().Sub(started).Round(time.Millisecond))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Documents:     s.docs.len(),
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	if c.Request.ContentLength > s.settings.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.settings.MaxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		if errors.Is(err, http.ErrMissingFile) && c.Request.MultipartForm != nil {
			// A part without a filename is parsed as a plain value.
			if _, ok := c.Request.MultipartForm.Value["file"]; ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
				return
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." || filename == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}
	if !allowedFile(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed. Allowed: " + strings.Join(allowedExtensions, ", ")})
		return
	}
	f, err := header.Open()
	if err != nil {
		s.logger.Printf("stubserver: open upload %s: %v", filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the document"})
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil || !utf8.Valid(raw) {
		s.logger.Printf("stubserver: extract text from %s failed", filename)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the document"})
		return
	}
	doc, ok := s.docs.add(filename, string(raw))
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the document"})
		return
	}
	s.logger.Printf("stubserver: stored %s as %s (%d chunks)", filename, doc.ID, len(doc.Chunks))
	c.JSON(http.StatusOK, uploadResponse{Message: "File uploaded and processed.", DocID: doc.ID})
}

func (s *Server) handleSummary(c *gin.Context) {
	doc, err := s.docs.get(c.Param("doc_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": doc.Summary})
}

func (s *Server) handleAsk(c *gin.Context) {
	doc, err := s.docs.get(c.Param("doc_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question not provided"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer(doc, req.Question, req.Model)})
}

func allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
