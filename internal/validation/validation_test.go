package validation

import (
	"errors"
	"strings"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuesOf(t *testing.T, err error) []models.FieldIssue {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Equal(t, MsgInvalidInput, appErr.Message)
	return appErr.Data
}

func TestIsEmail(t *testing.T) {
	t.Parallel()
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"Valid", "test@example.com", true},
		{"Subdomain", "writer@mail.example.co", true},
		{"Exactly 254 Characters", emailAt254, true},
		{"Too Long", "a" + emailAt254, false},
		{"Invalid Format", "not-an-email", false},
		{"Missing Domain", "user@", false},
		{"Missing TLD", "user@localhost", false},
		{"Display Name", "Writer <w@example.com>", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmail(tt.email))
		})
	}
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	email, password, err := Credentials("  Writer@Example.COM ", "  secret  ")
	require.NoError(t, err)
	assert.Equal(t, "writer@example.com", email)
	assert.Equal(t, "secret", password)

	_, _, err = Credentials("nope", "   abc   ")
	issues := issuesOf(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, models.FieldIssue{Param: "email", Message: MsgInvalidEmail}, issues[0])
	assert.Equal(t, models.FieldIssue{Param: "password", Message: MsgInvalidPassword}, issues[1])
}

func TestPost(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		title      string
		content    string
		wantParams []string
	}{
		{"Valid", "Hello world", "Some content", nil},
		{"Exactly Min Length", "abcde", "fghij", nil},
		{"Padding Does Not Count", "  abc  ", "content here", []string{"title"}},
		{"Short Content", "A fine title", "hey", []string{"content"}},
		{"Both Short", "hi", "yo", []string{"title", "content"}},
		{"Empty", "", "", []string{"title", "content"}},
		{"Multibyte", "ñandú", "über!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, content, err := Post(tt.title, tt.content)
			if tt.wantParams == nil {
				require.NoError(t, err)
				assert.Equal(t, strings.TrimSpace(tt.title), title)
				assert.Equal(t, strings.TrimSpace(tt.content), content)
				return
			}
			var got []string
			for _, issue := range issuesOf(t, err) {
				got = append(got, issue.Param)
			}
			assert.Equal(t, tt.wantParams, got)
		})
	}
}
