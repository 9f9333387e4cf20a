package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"imgshrink/intake"
	"imgshrink/session"
	"imgshrink/variant"
)

func handleIndex(c *gin.Context) {
	c.Data(200, "text/html; charset=utf-8", indexHTML)
}

func handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":         "ok",
		"queue_size":     pool.GetQueueSize(),
		"queue_capacity": pool.GetQueueCapacity(),
		"workers":        pool.GetWorkerCount(),
		"sessions":       store.GetStats(),
	})
}

func handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(400, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if header.Size > cfg.MaxUploadBytes {
		c.JSON(413, gin.H{"error": fmt.Sprintf("File exceeds %d byte limit", cfg.MaxUploadBytes)})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to read file"})
		return
	}

	clientID := c.DefaultPostForm("client_id", "anonymous")

	src, err := intake.FromUpload(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		// Rejection leaves the client's current session untouched.
		if errors.Is(err, intake.ErrNotAnImage) {
			c.JSON(400, gin.H{"error": "Please choose an image file"})
			return
		}
		c.JSON(422, gin.H{"error": err.Error()})
		return
	}

	sess := store.Replace(clientID, src)

	c.JSON(200, gin.H{
		"session_id":   sess.ID,
		"filename":     src.Filename,
		"content_type": src.MIME,
		"width":        src.Width,
		"height":       src.Height,
		"size_bytes":   src.ByteSize,
	})
}

func handleGenerate(c *gin.Context) {
	var req struct {
		ClientID   string   `json:"client_id"`
		WidthScale float64  `json:"width_scale"`
		SizeRatios []string `json:"size_ratios"`
	}

	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if req.ClientID == "" {
		req.ClientID = "anonymous"
	}
	if req.WidthScale == 0 {
		req.WidthScale = 1.0
	}

	sess, ok := store.Get(req.ClientID)
	if !ok {
		c.JSON(404, gin.H{"error": "No image uploaded"})
		return
	}

	// Empty selection is a no-op: the current list stands, nothing runs.
	if len(req.SizeRatios) == 0 {
		c.JSON(200, gin.H{"variants": variantMetas(req.ClientID, sess)})
		return
	}

	sel, err := variant.NewSelection(req.WidthScale, req.SizeRatios)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	result, err := pool.SubmitAndWait(req.ClientID, sess.ID, sess.Source, sel)
	if err != nil {
		c.JSON(503, gin.H{"error": err.Error()})
		return
	}
	if !result.Success {
		c.JSON(422, gin.H{"error": result.Message})
		return
	}

	sess, ok = store.Get(req.ClientID)
	if !ok {
		c.JSON(404, gin.H{"error": "Session expired"})
		return
	}

	c.JSON(200, gin.H{
		"variants":           variantMetas(req.ClientID, sess),
		"processing_time_ms": result.ProcessingTimeMs,
	})
}

func handleVariants(c *gin.Context) {
	clientID := c.DefaultQuery("client_id", "anonymous")

	sess, ok := store.Get(clientID)
	if !ok {
		c.JSON(404, gin.H{"error": "No image uploaded"})
		return
	}

	c.JSON(200, gin.H{"variants": variantMetas(clientID, sess)})
}

func handleDownload(c *gin.Context) {
	clientID := c.Param("client_id")
	label := c.Param("label")

	sess, ok := store.Get(clientID)
	if !ok {
		c.JSON(404, gin.H{"error": "No image uploaded"})
		return
	}

	v, ok := sess.Variant(label)
	if !ok {
		c.JSON(404, gin.H{"error": "Variant not found"})
		return
	}

	name := downloadName(sess.Source.Stem(), v)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(200, v.MIME, v.Data)
}

func downloadName(stem string, v *variant.Variant) string {
	return fmt.Sprintf("%s_%s.%s", stem, v.Label, v.Ext)
}

func variantMetas(clientID string, sess *session.Session) []gin.H {
	metas := make([]gin.H, 0, len(sess.Variants))
	for _, v := range sess.Variants {
		metas = append(metas, gin.H{
			"label":           v.Label,
			"width":           v.Width,
			"height":          v.Height,
			"scale":           v.Scale,
			"estimated_bytes": v.EstimatedBytes(),
			"filename":        downloadName(sess.Source.Stem(), v),
			"download_url":    fmt.Sprintf("/download/%s/%s", clientID, v.Label),
			"data_url":        v.DataURL(),
		})
	}
	return metas
}
