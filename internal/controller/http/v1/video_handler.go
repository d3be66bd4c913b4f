package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"videogate/internal/domain/entity"
	"videogate/internal/domain/usecase"
)

type VideoUseCase interface {
	UploadVideo(ctx context.Context, file io.Reader, size int64, fileName, mimeType, userID, orgID string) (*entity.Video, error)
	GetVideos(ctx context.Context, orgID string, filter usecase.VideoFilter) ([]entity.Video, usecase.Pagination, error)
	GetVideo(ctx context.Context, videoID, orgID string) (*entity.Video, string, error)
	DeleteVideo(ctx context.Context, videoID, orgID, userID, role string) error
	StreamVideo(ctx context.Context, videoID, orgID, rangeHeader string) (*usecase.StreamData, error)
}

type VideoHandler struct {
	UseCase VideoUseCase
}

func NewVideoHandler(u VideoUseCase) *VideoHandler {
	return &VideoHandler{UseCase: u}
}

func (h *VideoHandler) Upload(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := c.GetString("org_id")
	if userID == "" || orgID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	video, err := h.UseCase.UploadVideo(
		c.Request.Context(),
		f,
		file.Size,
		file.Filename,
		file.Header.Get("Content-Type"),
		userID,
		orgID,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"video": video}})
}

func (h *VideoHandler) List(c *gin.Context) {
	orgID := c.GetString("org_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	filter := usecase.VideoFilter{
		Status:            c.Query("status"),
		SensitivityStatus: c.Query("sensitivityStatus"),
		Page:              page,
		Limit:             limit,
	}

	videos, pagination, err := h.UseCase.GetVideos(c.Request.Context(), orgID, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"videos": videos, "pagination": pagination},
	})
}

func (h *VideoHandler) Get(c *gin.Context) {
	orgID := c.GetString("org_id")
	videoID := c.Param("id")

	video, streamURL, err := h.UseCase.GetVideo(c.Request.Context(), videoID, orgID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"video": video, "streamUrl": streamURL},
	})
}

func (h *VideoHandler) Stream(c *gin.Context) {
	orgID := c.GetString("org_id")
	videoID := c.Param("id")
	rangeHeader := c.GetHeader("Range")

	data, err := h.UseCase.StreamVideo(c.Request.Context(), videoID, orgID, rangeHeader)
	if errors.Is(err, usecase.ErrRangeNotSatisfiable) {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", data.FileSize))
		c.JSON(http.StatusRequestedRangeNotSatisfiable, gin.H{"error": "requested range not satisfiable"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer data.Reader.Close()

	extraHeaders := map[string]string{
		"Accept-Ranges": "bytes",
	}
	if data.StatusCode == http.StatusPartialContent {
		extraHeaders["Content-Range"] = fmt.Sprintf("bytes %d-%d/%d", data.Start, data.End, data.FileSize)
	}
	c.DataFromReader(data.StatusCode, data.ChunkSize, data.ContentType, data.Reader, extraHeaders)
}

func (h *VideoHandler) Delete(c *gin.Context) {
	orgID := c.GetString("org_id")
	userID := c.GetString("user_id")
	role := c.GetString("role")
	videoID := c.Param("id")

	if err := h.UseCase.DeleteVideo(c.Request.Context(), videoID, orgID, userID, role); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "video deleted"})
}

func (h *VideoHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
	case errors.Is(err, usecase.ErrNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"error": "video is not ready for streaming"})
	case errors.Is(err, usecase.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
