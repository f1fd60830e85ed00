package seed

import (
	"context"
	"fmt"
	"log"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	PostsPerUser int
	ShouldClean  bool
	// Seed makes generated data reproducible. Zero picks a random seed.
	Seed int64
}

// Result summarizes what a seeding run created.
type Result struct {
	Users int
	Posts int
}

// Seed fills the database with generated users and posts.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	return SeedWith(ctx, NewFactory(db, opts.Seed), db, opts)
}

// SeedWith runs Seed using an existing Factory.
func SeedWith(ctx context.Context, f *Factory, db *gorm.DB, opts Options) (*Result, error) {
	if opts.ShouldClean {
		if err := Clean(ctx, db); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return res, err
		}
		res.Users++

		posts, err := f.CreatePosts(ctx, user, opts.PostsPerUser)
		if err != nil {
			return res, err
		}
		res.Posts += len(posts)
	}

	log.Printf("seed: created %d users and %d posts", res.Users, res.Posts)
	return res, nil
}

// Clean removes every post and user.
func Clean(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("clean posts: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clean users: %w", err)
		}
		return nil
	})
}
