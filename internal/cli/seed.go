package cli

import (
	"errors"
	"fmt"

	"inkwell/internal/database"
	"inkwell/internal/seed"

	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Users        int
	PostsPerUser int
	Clean        bool
	Fixtures     string
	Seed         int64
	Force        bool
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users and posts",
		Long: `Generate users and posts, or load them from a YAML fixture file.
Generated users share the password "` + seed.DefaultPassword + `".

Refuses to run against a production profile unless --force is given.

Examples:
  inkwellctl seed --users 5 --posts 4
  inkwellctl seed --clean --fixtures ./fixtures.yml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Users, "users", 5, "number of users to generate")
	cmd.Flags().IntVar(&opts.PostsPerUser, "posts", 4, "posts per generated user")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "delete all users and posts first")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "YAML fixture file to apply instead of generated data")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed for reproducible data (0 = random)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "allow seeding a production database")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	if opts.Users < 0 || opts.PostsPerUser < 0 {
		return errors.New("--users and --posts must not be negative")
	}

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if cfg.IsProduction() && !opts.Force {
		return fmt.Errorf("refusing to seed %s database without --force", cfg.Env)
	}

	ctx := cmd.Context()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	factory := seed.NewFactory(db, opts.Seed)
	out := cmd.OutOrStdout()

	if opts.Fixtures != "" {
		fx, err := seed.LoadFixturesFile(opts.Fixtures)
		if err != nil {
			return err
		}
		if opts.Clean {
			if err := seed.Clean(ctx, db); err != nil {
				return err
			}
		}
		res, err := factory.ApplyFixtures(ctx, fx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "applied %s: %d users, %d posts\n", opts.Fixtures, res.Users, res.Posts)
		return nil
	}

	res, err := seed.SeedWith(ctx, factory, db, seed.Options{
		NumUsers:     opts.Users,
		PostsPerUser: opts.PostsPerUser,
		ShouldClean:  opts.Clean,
		Seed:         opts.Seed,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "seeded %d users, %d posts\n", res.Users, res.Posts)
	return nil
}
