package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-server-session/internal/config"
	"github.com/jrsteele09/go-server-session/serversession"
	"github.com/jrsteele09/go-server-session/sessionapi"
	"github.com/jrsteele09/go-server-session/storage"
	"github.com/jrsteele09/go-server-session/storage/filestore"
	"github.com/jrsteele09/go-server-session/storage/memstore"
	"github.com/jrsteele09/go-server-session/storage/redisstore"
)

// options are the global flags. Empty values fall back to the environment.
type options struct {
	app     string
	apiURL  string
	store   string
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "Manage a session with a session API",
		Long: `sessionctl opens, inspects and closes a session on a session API and
keeps it between runs in the configured store (file, memory or redis).

Environment: APP_NAME, SESSION_API_URL, SESSION_STORE, FOLDER,
REDIS_ADDR, REDIS_PREFIX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.app, "app", "", "application name (default $APP_NAME or \"app\")")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "session API base URL (default $SESSION_API_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "session store: file, memory or redis (default $SESSION_STORE)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log API calls")

	rootCmd.AddCommand(
		connectCmd(opts),
		disconnectCmd(opts),
		statusCmd(opts),
		getCmd(opts),
		setCmd(opts),
		refreshCmd(opts),
	)
	return rootCmd
}

// newManager wires a Manager from flags and environment. The returned func
// releases the store.
func newManager(ctx context.Context, opts *options) (*serversession.Manager, func(), error) {
	c := config.New()

	app := opts.app
	if app == "" {
		app = c.GetAppName()
	}
	apiURL := opts.apiURL
	if apiURL == "" {
		apiURL = c.GetSessionAPIURL()
	}
	storeType := config.StoreType(opts.store)
	if storeType == "" {
		storeType = c.GetSessionStore()
	}

	store, closeStore, err := openStore(c, storeType)
	if err != nil {
		return nil, nil, err
	}

	api := sessionapi.NewHTTPClient(apiURL, sessionapi.WithLogger(&log.Logger))
	m := serversession.New(ctx, serversession.Config{Application: app, Logger: &log.Logger}, api, store)
	return m, closeStore, nil
}

func openStore(c config.Config, storeType config.StoreType) (storage.Store, func(), error) {
	switch storeType {
	case config.StoreMemory:
		return memstore.New(), func() {}, nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
		return redisstore.New(rdb, c.GetRedisPrefix(), 0), func() { _ = rdb.Close() }, nil
	case config.StoreFile:
		fs, err := filestore.NewOS(filepath.Join(c.GetDataFolder(), "sessions"))
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", storeType)
	}
}
