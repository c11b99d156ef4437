package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivlev/inbetween/internal/artifact"
	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/jobstore"
	"github.com/ivlev/inbetween/internal/source"
	"github.com/ivlev/inbetween/internal/system"
	"github.com/ivlev/inbetween/internal/worker"
)

func (s *Server) handleBanner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": config.BuildVersion,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.BuildVersion,
		"ffmpeg":  s.enc != nil,
		"system":  system.TakeSnapshot(),
	})
}

func (s *Server) handleGenerate(c *gin.Context) {
	if s.cfg.Server.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadBytes)
	}

	instruction := strings.TrimSpace(c.PostForm("instruction"))
	if err := source.ValidateInstruction(instruction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	first, err := readUpload(c, "frame1")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	second, err := readUpload(c, "frame2")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := source.DecodePair(first, second, s.cfg.Generation.MaxDimension)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	job := &jobstore.Job{
		ID:          id,
		Status:      jobstore.StatusPending,
		Instruction: instruction,
	}
	if err := s.store.Create(c.Request.Context(), job); err != nil {
		s.log.Error("create job record", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	if err := s.pool.Submit(worker.Job{ID: id, Instruction: instruction, Pair: pair}); err != nil {
		job.Status = jobstore.StatusFailed
		job.Error = err.Error()
		if uerr := s.store.Update(c.Request.Context(), job); uerr != nil {
			s.log.Warn("mark rejected job failed", "job_id", id, "error", uerr)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	s.log.Info("job accepted", "job_id", id, "instruction", instruction)
	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "status": jobstore.StatusPending})
}

func (s *Server) handleJob(c *gin.Context) {
	job, err := s.store.Get(c.Request.Context(), c.Param("job_id"))
	if errors.Is(err, jobstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		s.log.Error("get job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleJobList(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	jobs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleFrame(c *gin.Context) {
	jobID := c.Param("job_id")
	name := c.Param("frame")
	if !artifact.ValidName(jobID) || !artifact.ValidName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}

	data, err := s.arts.Read(c.Request.Context(), jobID, name)
	if errors.Is(err, artifact.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}
	if err != nil {
		s.log.Error("read frame", "job_id", jobID, "frame", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read frame"})
		return
	}
	c.Data(http.StatusOK, contentTypeFor(name), data)
}

func (s *Server) handleDownload(c *gin.Context) {
	job, ok := s.completedJob(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ID+".zip"))
	if err := artifact.WriteZip(c.Request.Context(), s.arts, job.ID, job.Frames, c.Writer); err != nil {
		// The archive may be partially written already, so only log.
		s.log.Error("write zip", "job_id", job.ID, "error", err)
	}
}

func (s *Server) handleVideo(c *gin.Context) {
	if s.enc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "video export unavailable, ffmpeg is not installed"})
		return
	}

	job, ok := s.completedJob(c)
	if !ok {
		return
	}

	frames := make([]*image.RGBA, 0, len(job.Frames))
	for _, name := range job.Frames {
		data, err := s.arts.Read(c.Request.Context(), job.ID, name)
		if err != nil {
			s.log.Error("read frame", "job_id", job.ID, "frame", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load frames"})
			return
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			s.log.Error("decode frame", "job_id", job.ID, "frame", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode frames"})
			return
		}
		frames = append(frames, source.ToRGBA(img))
	}

	tmp, err := os.CreateTemp("", "inbetween-*.mp4")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage video"})
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := s.enc.EncodeSequence(c.Request.Context(), frames, tmpPath); err != nil {
		s.log.Error("encode video", "job_id", job.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "video encoding failed"})
		return
	}
	c.FileAttachment(tmpPath, job.ID+".mp4")
}

// completedJob loads the job and rejects requests for sequences that do
// not exist yet. It writes the error response itself.
func (s *Server) completedJob(c *gin.Context) (*jobstore.Job, bool) {
	job, err := s.store.Get(c.Request.Context(), c.Param("job_id"))
	if errors.Is(err, jobstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return nil, false
	}
	if err != nil {
		s.log.Error("get job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return nil, false
	}
	if job.Status != jobstore.StatusComplete {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s, not complete", job.Status)})
		return nil, false
	}
	return job, true
}

func readUpload(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing upload %q", field)
	}
	return readAll(header)
}

func readAll(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}
	return data, nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".yaml"):
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
