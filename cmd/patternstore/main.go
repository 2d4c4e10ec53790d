package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldwork/patternstore/internal/profile"
	"github.com/fieldwork/patternstore/server"
	"github.com/fieldwork/patternstore/store"
	"github.com/fieldwork/patternstore/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "patternstore",
	Short: "Versioned pattern document store with client-side caching",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a pattern document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			pattern, err := s.GetPattern(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id:\t%s\nversion:\t%s\ntitle:\t%s\ntimeField:\t%s\nfields:\t%d\n",
				pattern.ID, pattern.Version, pattern.Title, pattern.TimeFieldName, len(pattern.Fields))
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pattern ids and titles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fields, _ := cmd.Flags().GetString("fields")
		refresh, _ := cmd.Flags().GetBool("refresh")
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			if fields != "" {
				projections, err := s.ListPatternFields(ctx, strings.Split(fields, ","), refresh)
				if err != nil {
					return err
				}
				for _, projection := range projections {
					fmt.Printf("%s\t%v\n", projection.ID, projection.Attributes)
				}
				return nil
			}
			titles, err := s.ListPatternTitles(ctx, refresh)
			if err != nil {
				return err
			}
			for _, title := range titles {
				fmt.Printf("%s\t%s\n", title.ID, title.Title)
			}
			return nil
		})
	},
}

var makeCmd = &cobra.Command{
	Use:   "make <title>",
	Short: "Create a pattern, discovering its fields from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		timeField, _ := cmd.Flags().GetString("time-field")
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			pattern, err := s.MakePattern(ctx, &store.MakePattern{
				ID:            id,
				Title:         args[0],
				TimeFieldName: timeField,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s at version %s with %d fields\n", pattern.ID, pattern.Version, len(pattern.Fields))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a pattern document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			if err := s.DeletePattern(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	viper.SetEnvPrefix("patternstore")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	listCmd.Flags().String("fields", "", "comma-separated attribute names to project")
	listCmd.Flags().Bool("refresh", false, "force a fresh fetch instead of the cached list")
	makeCmd.Flags().String("id", "", "explicit document id, defaults to the title")
	makeCmd.Flags().String("time-field", "", "name of the primary time field")

	rootCmd.AddCommand(serveCmd, getCmd, listCmd, makeCmd, deleteCmd)
}

func newProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func newStore(p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	if err := driver.Migrate(context.Background()); err != nil {
		_ = driver.Close()
		return nil, err
	}
	fieldSource, ok := driver.(store.FieldSource)
	if !ok {
		_ = driver.Close()
		return nil, fmt.Errorf("driver %q has no field catalog", p.Driver)
	}
	return store.New(driver, fieldSource, p), nil
}

func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	p, err := newProfile()
	if err != nil {
		return err
	}
	s, err := newStore(p)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(ctx, s)
}

func runServe(ctx context.Context) error {
	p, err := newProfile()
	if err != nil {
		return err
	}
	s, err := newStore(p)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(p, s)
	if err != nil {
		_ = s.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
