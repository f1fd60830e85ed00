package server

import (
	"errors"
	"io"
	"log/slog"

	"inkwell/internal/blob"
	"inkwell/internal/middleware"
	"inkwell/internal/observability"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ImageUploadResponse is the API response after uploading an image.
type ImageUploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath,omitempty"`
}

// PostImage handles PUT /post-image
// @Summary Upload a post image
// @Description Stores a png or jpeg image and optionally releases the image it replaces,
// @Description provided every post showing that image belongs to the caller.
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param image formData file false "Image file"
// @Param oldPath formData string false "Previously stored image path"
// @Success 200 {object} ImageUploadResponse
// @Success 201 {object} ImageUploadResponse
// @Failure 401 {object} object{errors=[]OperationError}
// @Failure 422 {object} object{errors=[]OperationError}
// @Security BearerAuth
// @Router /post-image [put]
func (s *Server) PostImage(c *fiber.Ctx) error {
	if !middleware.Identity(c).Authenticated {
		return respondWithErrors(c, fiber.StatusUnauthorized, service.MsgNotAuthenticated, nil)
	}

	file, err := c.FormFile("image")
	if err != nil || !blob.AllowedType(file.Header.Get(fiber.HeaderContentType)) {
		return s.noFileStored(c)
	}

	src, err := file.Open()
	if err != nil {
		return respondWithErrors(c, fiber.StatusUnprocessableEntity, "Unable to read uploaded file", nil)
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return respondWithErrors(c, fiber.StatusUnprocessableEntity, "Unable to read uploaded file", nil)
	}

	ctx := c.UserContext()
	stored, err := s.images.Save(ctx, content)
	if errors.Is(err, blob.ErrUnsupportedType) {
		return s.noFileStored(c)
	}
	if err != nil {
		return respondWithServiceError(c, err)
	}

	if oldPath := c.FormValue("oldPath"); oldPath != "" {
		if _, rerr := s.postService.ReleaseImage(ctx, middleware.Identity(c), oldPath); rerr != nil {
			observability.BlobReleaseFailures.Inc()
			middleware.Logger.WarnContext(ctx, "failed to release replaced image",
				slog.String("path", oldPath), slog.String("error", rerr.Error()))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(ImageUploadResponse{
		Message:  "File Stored",
		FilePath: stored,
	})
}

// noFileStored answers uploads that carried nothing storable. This is not an error.
func (s *Server) noFileStored(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(ImageUploadResponse{Message: "No file provided."})
}
