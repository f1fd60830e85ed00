package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOperation_RegisterConflict(t *testing.T) {
	_, app := newTestServer(t)

	vars := map[string]any{"userInput": map[string]string{
		"email": "ada@example.com", "name": "Ada", "password": "secret",
	}}

	status, res := runOp(t, app, "", OpRegister, vars)
	require.Equal(t, http.StatusOK, status)

	var user struct {
		ID       uint   `json:"id"`
		Email    string `json:"email"`
		Status   string `json:"status"`
		Password string `json:"password"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.DefaultStatus, user.Status)
	assert.Empty(t, user.Password)

	status, res = runOp(t, app, "", OpRegister, vars)
	assert.Equal(t, http.StatusConflict, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "User already exists!", res.Errors[0].Message)
	assert.Equal(t, http.StatusConflict, res.Errors[0].StatusCode)
}

func TestRunOperation_ValidationIssues(t *testing.T) {
	_, app := newTestServer(t)

	status, res := runOp(t, app, "", OpRegister, map[string]any{
		"userInput": map[string]string{"email": "nope", "name": "x", "password": "abc"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Invalid Input", res.Errors[0].Message)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Errors[0].StatusCode)
	assert.Len(t, res.Errors[0].Data, 2)
}

func TestRunOperation_LoginFailures(t *testing.T) {
	_, app := newTestServer(t)
	registerAndLogin(t, app, "ada@example.com", "Ada")

	status, res := runOp(t, app, "", OpLogin, map[string]string{"email": "ghost@example.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Authentication failed! User not found.", res.Errors[0].Message)

	status, res = runOp(t, app, "", OpLogin, map[string]string{"email": "ada@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Invalid Password!", res.Errors[0].Message)
}

func TestRunOperation_PostLifecycle(t *testing.T) {
	_, app := newTestServer(t)
	ownerID, owner := registerAndLogin(t, app, "ada@example.com", "Ada")
	_, other := registerAndLogin(t, app, "bob@example.com", "Bob")

	status, res := runOp(t, app, owner, OpCreatePost, map[string]any{
		"postInput": map[string]string{"title": "First post", "content": "Hello there", "imageUrl": "images/a.png"},
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Errors)

	var created models.Post
	require.NoError(t, json.Unmarshal(res.Data, &created))
	assert.Equal(t, ownerID, created.CreatorID)
	require.NotNil(t, created.Creator)
	assert.Equal(t, "Ada", created.Creator.Name)

	// String ids are accepted as well as numbers.
	status, res = runOp(t, app, other, OpGetPost, map[string]any{"postId": jsonString(created.ID)})
	require.Equal(t, http.StatusOK, status)
	var fetched models.Post
	require.NoError(t, json.Unmarshal(res.Data, &fetched))
	assert.Equal(t, "First post", fetched.Title)
	assert.Equal(t, "images/a.png", fetched.ImageURL)

	status, res = runOp(t, app, other, OpUpdatePost, map[string]any{
		"id":        created.ID,
		"postInput": map[string]string{"title": "Hijacked", "content": "Not yours", "imageUrl": "undefined"},
	})
	assert.Equal(t, http.StatusForbidden, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Action failed due to invalid authorization!", res.Errors[0].Message)

	status, res = runOp(t, app, owner, OpUpdatePost, map[string]any{
		"id":        jsonString(created.ID),
		"postInput": map[string]string{"title": "First post, edited", "content": "Hello again", "imageUrl": "undefined"},
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Errors)
	var updated models.Post
	require.NoError(t, json.Unmarshal(res.Data, &updated))
	assert.Equal(t, "First post, edited", updated.Title)
	assert.Equal(t, "images/a.png", updated.ImageURL)

	status, res = runOp(t, app, owner, OpListPosts, map[string]int{"page": 1})
	require.Equal(t, http.StatusOK, status)
	var page models.PostPage
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.Equal(t, int64(1), page.TotalPosts)
	require.Len(t, page.Posts, 1)

	status, _ = runOp(t, app, other, OpDeletePost, map[string]any{"id": created.ID})
	assert.Equal(t, http.StatusForbidden, status)

	status, res = runOp(t, app, owner, OpDeletePost, map[string]any{"id": created.ID})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "true", string(res.Data))

	status, res = runOp(t, app, owner, OpGetPost, map[string]any{"postId": created.ID})
	assert.Equal(t, http.StatusNotFound, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Post Not found", res.Errors[0].Message)
}

func TestRunOperation_RequiresAuthentication(t *testing.T) {
	_, app := newTestServer(t)

	for _, op := range []string{OpListPosts, OpGetPost, OpCreatePost, OpUpdatePost, OpDeletePost, OpGetStatus, OpUpdateStatus} {
		t.Run(op, func(t *testing.T) {
			status, res := runOp(t, app, "", op, map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, status)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, "Not Authenticated", res.Errors[0].Message)
		})
	}
}

func TestRunOperation_InvalidTokenIsAnonymous(t *testing.T) {
	_, app := newTestServer(t)

	status, res := runOp(t, app, "not-a-token", OpListPosts, map[string]int{"page": 1})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Not Authenticated", res.Errors[0].Message)
}

func TestRunOperation_Status(t *testing.T) {
	_, app := newTestServer(t)
	_, token := registerAndLogin(t, app, "ada@example.com", "Ada")

	status, res := runOp(t, app, token, OpUpdateStatus, map[string]string{"status": "Writing"})
	require.Equal(t, http.StatusOK, status)

	status, res = runOp(t, app, token, OpGetStatus, nil)
	require.Equal(t, http.StatusOK, status)
	var user models.User
	require.NoError(t, json.Unmarshal(res.Data, &user))
	assert.Equal(t, "Writing", user.Status)
}

func TestRunOperation_BadRequests(t *testing.T) {
	_, app := newTestServer(t)

	status, res := runOp(t, app, "", "dropTables", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Unknown operation", res.Errors[0].Message)

	req := httptest.NewRequest(http.MethodPost, "/api/operations", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, _ = runOp(t, app, "", OpLogin, "not an object")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestKeptImage(t *testing.T) {
	str := func(s string) *string { return &s }

	assert.Nil(t, keptImage(nil))
	assert.Nil(t, keptImage(str("")))
	assert.Nil(t, keptImage(str("  ")))
	assert.Nil(t, keptImage(str("undefined")))

	got := keptImage(str(" images/b.png "))
	require.NotNil(t, got)
	assert.Equal(t, "images/b.png", *got)
}

func TestEntityID_Unmarshal(t *testing.T) {
	var v struct {
		ID entityID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7}`), &v))
	assert.Equal(t, entityID(7), v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "12"}`), &v))
	assert.Equal(t, entityID(12), v.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id": "abc"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"id": -1}`), &v))
}

func TestMapServiceError_HidesInternalDetail(t *testing.T) {
	got := mapServiceError(models.NewInternalError(errors.New("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.Equal(t, internalErrorMessage, got.Message)
	assert.Empty(t, got.Data)

	got = mapServiceError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.NotContains(t, got.Message, "boom")

	got = mapServiceError(models.NewValidationError("Invalid Input", models.FieldIssue{Param: "title", Message: "Title is Invalid!"}))
	assert.Equal(t, http.StatusUnprocessableEntity, got.StatusCode)
	assert.Len(t, got.Data, 1)
}

func jsonString(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
