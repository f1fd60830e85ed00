package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is a hand-written data set, usually loaded from a YAML file:
//
//	users:
//	  - email: ada@example.com
//	    name: Ada
//	    password: secret
//	    posts:
//	      - title: Hello world
//	        content: First post on the feed.
type Fixtures struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser is one account plus the posts it owns.
type FixtureUser struct {
	Email    string        `yaml:"email"`
	Name     string        `yaml:"name"`
	Password string        `yaml:"password"`
	Status   string        `yaml:"status"`
	Posts    []FixturePost `yaml:"posts"`
}

// FixturePost is one post of a FixtureUser.
type FixturePost struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	ImageURL string `yaml:"imageUrl"`
}

// ParseFixtures decodes YAML fixtures from r.
func ParseFixtures(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Email) == "" {
			return nil, fmt.Errorf("fixture user %d: email is required", i)
		}
	}
	return &fx, nil
}

// LoadFixturesFile reads fixtures from a YAML file.
func LoadFixturesFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseFixtures(f)
}

// ApplyFixtures inserts fx. Users whose email already exists are reused, so a
// fixture file can be applied more than once; their posts are still added.
func (f *Factory) ApplyFixtures(ctx context.Context, fx *Fixtures) (*Result, error) {
	res := &Result{}
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fu := range fx.Users {
			user, created, err := f.fixtureUser(tx, fu)
			if err != nil {
				return err
			}
			if created {
				res.Users++
			}

			for _, fp := range fu.Posts {
				post := f.BuildPost(user, func(p *models.Post) {
					if fp.Title != "" {
						p.Title = fp.Title
					}
					if fp.Content != "" {
						p.Content = fp.Content
					}
					p.ImageURL = fp.ImageURL
				})
				if err := tx.Create(post).Error; err != nil {
					return fmt.Errorf("create fixture post %q: %w", post.Title, err)
				}
				res.Posts++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *Factory) fixtureUser(tx *gorm.DB, fu FixtureUser) (*models.User, bool, error) {
	email := validation.NormalizeEmail(fu.Email)

	var existing models.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup fixture user %s: %w", email, err)
	}

	user, err := f.BuildUser(func(u *models.User) {
		u.Email = email
		if fu.Name != "" {
			u.Name = fu.Name
		}
		if fu.Password != "" {
			u.Password = fu.Password
		}
		if fu.Status != "" {
			u.Status = fu.Status
		}
	})
	if err != nil {
		return nil, false, err
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, false, fmt.Errorf("create fixture user %s: %w", email, err)
	}
	return user, true, nil
}
