// Package seed provides helpers to create demo data for development databases
// and tests. It is not used on any request path.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is assigned to generated users unless overridden.
const DefaultPassword = "password"

// Factory builds users and posts and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	cost  int
	// MaxDays spreads generated post timestamps over the past MaxDays days.
	MaxDays int
}

// NewFactory creates a Factory bound to db. A zero seed picks a random one.
func NewFactory(db *gorm.DB, seed int64) *Factory {
	return &Factory{
		db:      db,
		faker:   gofakeit.New(seed),
		cost:    bcrypt.DefaultCost,
		MaxDays: 30,
	}
}

// WithBcryptCost overrides the password hash cost. Tests use bcrypt.MinCost.
func (f *Factory) WithBcryptCost(cost int) *Factory {
	f.cost = cost
	return f
}

func (f *Factory) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), f.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// BuildUser returns an unsaved user with a unique-looking email and a hashed DefaultPassword.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	user := &models.User{
		Name:     first + " " + last,
		Email:    strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, f.faker.Number(1000, 9999))),
		Password: DefaultPassword,
		Status:   models.DefaultStatus,
	}
	for _, override := range overrides {
		override(user)
	}

	hashed, err := f.hash(user.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed
	return user, nil
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return user, nil
}

// BuildPost returns an unsaved post owned by user. Titles and content always
// satisfy the post validation rules.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute

	post := &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(4), "."),
		Content:   f.faker.Paragraph(1, 3, 8, "\n"),
		CreatorID: user.ID,
		CreatedAt: time.Now().Add(-back),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePosts persists n posts for user in a single batch.
func (f *Factory) CreatePosts(ctx context.Context, user *models.User, n int) ([]models.Post, error) {
	if n <= 0 {
		return nil, nil
	}
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, *f.BuildPost(user))
	}
	if err := f.db.WithContext(ctx).CreateInBatches(&posts, 100).Error; err != nil {
		return nil, fmt.Errorf("create posts for user %d: %w", user.ID, err)
	}
	return posts, nil
}
