// Command migrate manages the highscore database schema and seeds the game catalog.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/okian/highscore/internal/adapters/postgres"
	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/pkg/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := newApp().Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "highscore database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dsn",
				Usage:    "postgres connection string",
				EnvVars:  []string{"HIGHSCORE_DATABASE_DSN"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer func() { _ = m.Unlock(c.Context) }()

					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no new migrations to run")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer func() { _ = m.Unlock(c.Context) }()

					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no groups to roll back")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "migrations: %s\n", ms)
					fmt.Fprintf(c.App.Writer, "unapplied: %s\n", ms.Unapplied())
					fmt.Fprintf(c.App.Writer, "last group: %s\n", ms.LastGroup())
					return nil
				}),
			},
			{
				Name:      "create_go",
				Usage:     "create a Go migration file next to the registered migrations",
				ArgsUsage: "<name words...>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					name := strings.Join(c.Args().Slice(), "_")
					if name == "" {
						return cli.Exit("migration name is required", 2)
					}
					mf, err := m.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				}),
			},
			{
				Name:  "seed",
				Usage: "upsert game modes and contents from a catalog file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "catalog",
						Usage:   "YAML catalog file",
						Value:   "catalog.yaml",
						EnvVars: []string{"HIGHSCORE_CATALOG_FILE"},
					},
				},
				Action: withDB(func(c *cli.Context, db *bun.DB) error {
					modes, contents, err := catalog.NewFileLoader(c.String("catalog")).Load(c.Context)
					if err != nil {
						return err
					}
					if err := postgres.SeedCatalog(c.Context, db, modes, contents); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "seeded %d modes and %d contents\n", len(modes), len(contents))
					return nil
				}),
			},
		},
	}
}

func withDB(fn func(*cli.Context, *bun.DB) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := postgres.Open(c.Context, c.String("dsn"), logger.Named("migrate"))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return fn(c, db)
	}
}

func withMigrator(fn func(*cli.Context, *migrate.Migrator) error) cli.ActionFunc {
	return withDB(func(c *cli.Context, db *bun.DB) error {
		return fn(c, postgres.NewMigrator(db))
	})
}
