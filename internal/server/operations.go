package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Operation names accepted by POST /api/operations.
const (
	OpRegister     = "register"
	OpLogin        = "login"
	OpListPosts    = "listPosts"
	OpGetPost      = "getPost"
	OpCreatePost   = "createPost"
	OpUpdatePost   = "updatePost"
	OpDeletePost   = "deletePost"
	OpGetStatus    = "getStatus"
	OpUpdateStatus = "updateStatus"
)

// imageUnchanged is sent by web clients that kept the existing image.
const imageUnchanged = "undefined"

type operationHandler func(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error)

// OperationRequest is the body of POST /api/operations.
type OperationRequest struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables,omitempty"`
}

type dataResponse struct {
	Data any `json:"data"`
}

type userInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type postInput struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

// entityID accepts both JSON numbers and numeric strings.
type entityID uint

func (id *entityID) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	*id = entityID(n)
	return nil
}

func (s *Server) operationTable() map[string]operationHandler {
	return map[string]operationHandler{
		OpRegister:     s.opRegister,
		OpLogin:        s.opLogin,
		OpListPosts:    s.opListPosts,
		OpGetPost:      s.opGetPost,
		OpCreatePost:   s.opCreatePost,
		OpUpdatePost:   s.opUpdatePost,
		OpDeletePost:   s.opDeletePost,
		OpGetStatus:    s.opGetStatus,
		OpUpdateStatus: s.opUpdateStatus,
	}
}

// RunOperation handles POST /api/operations
// @Summary Run an operation
// @Description Dispatches register, login, listPosts, getPost, createPost, updatePost, deletePost, getStatus and updateStatus.
// @Tags operations
// @Accept json
// @Produce json
// @Param request body OperationRequest true "Operation name and variables"
// @Success 200 {object} object{data=object}
// @Failure 401 {object} object{errors=[]OperationError}
// @Failure 403 {object} object{errors=[]OperationError}
// @Failure 404 {object} object{errors=[]OperationError}
// @Failure 409 {object} object{errors=[]OperationError}
// @Failure 422 {object} object{errors=[]OperationError}
// @Security BearerAuth
// @Router /operations [post]
func (s *Server) RunOperation(c *fiber.Ctx) error {
	var req OperationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithErrors(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}

	handler, ok := s.operations[req.Operation]
	if !ok {
		observability.OperationsTotal.WithLabelValues("unknown", strconv.Itoa(fiber.StatusBadRequest)).Inc()
		return respondWithErrors(c, fiber.StatusBadRequest, "Unknown operation", nil)
	}

	ctx := c.UserContext()

	if req.Operation == OpRegister || req.Operation == OpLogin {
		allowed, err := middleware.CheckRateLimit(ctx, s.redis, "op_"+req.Operation,
			middleware.CallerKey(c), s.config.RateLimitAuthPerMinute, time.Minute)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "rate limit store unavailable",
				slog.String("operation", req.Operation), slog.String("error", err.Error()))
		} else if !allowed {
			observability.OperationsTotal.WithLabelValues(req.Operation, strconv.Itoa(fiber.StatusTooManyRequests)).Inc()
			return respondWithErrors(c, fiber.StatusTooManyRequests, "Too many requests, please try again later.", nil)
		}
	}

	data, err := handler(ctx, middleware.Identity(c), req.Variables)
	if err != nil {
		observability.OperationsTotal.WithLabelValues(req.Operation, strconv.Itoa(mapServiceError(err).StatusCode)).Inc()
		return respondWithServiceError(c, err)
	}

	observability.OperationsTotal.WithLabelValues(req.Operation, "200").Inc()
	return c.JSON(dataResponse{Data: data})
}

// decodeVariables unmarshals vars into dst. Absent variables leave dst untouched.
func decodeVariables(vars json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(vars)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return models.NewValidationError("Invalid Input")
	}
	return nil
}

// keptImage maps the ways a client can say "keep the current image" to nil.
func keptImage(imageURL *string) *string {
	if imageURL == nil {
		return nil
	}
	v := strings.TrimSpace(*imageURL)
	if v == "" || v == imageUnchanged {
		return nil
	}
	return &v
}

func (s *Server) opRegister(ctx context.Context, _ auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		UserInput userInput `json:"userInput"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.userService.Register(ctx, service.RegisterInput{
		Email:    in.UserInput.Email,
		Password: in.UserInput.Password,
		Name:     in.UserInput.Name,
	})
}

func (s *Server) opLogin(ctx context.Context, _ auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.userService.Login(ctx, in.Email, in.Password)
}

func (s *Server) opListPosts(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		Page int `json:"page"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.postService.ListPosts(ctx, id, in.Page)
}

func (s *Server) opGetPost(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		PostID entityID `json:"postId"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.postService.GetPost(ctx, id, uint(in.PostID))
}

func (s *Server) opCreatePost(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		PostInput postInput `json:"postInput"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	var image string
	if in.PostInput.ImageURL != nil {
		image = *in.PostInput.ImageURL
	}
	return s.postService.CreatePost(ctx, id, service.CreatePostInput{
		Title:    in.PostInput.Title,
		Content:  in.PostInput.Content,
		ImageURL: image,
	})
}

func (s *Server) opUpdatePost(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		ID        entityID  `json:"id"`
		PostInput postInput `json:"postInput"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.postService.UpdatePost(ctx, id, service.UpdatePostInput{
		PostID:   uint(in.ID),
		Title:    in.PostInput.Title,
		Content:  in.PostInput.Content,
		ImageURL: keptImage(in.PostInput.ImageURL),
	})
}

func (s *Server) opDeletePost(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		ID entityID `json:"id"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.postService.DeletePost(ctx, id, uint(in.ID))
}

func (s *Server) opGetStatus(ctx context.Context, id auth.Identity, _ json.RawMessage) (any, error) {
	return s.userService.GetStatus(ctx, id)
}

func (s *Server) opUpdateStatus(ctx context.Context, id auth.Identity, vars json.RawMessage) (any, error) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeVariables(vars, &in); err != nil {
		return nil, err
	}
	return s.userService.UpdateStatus(ctx, id, in.Status)
}
