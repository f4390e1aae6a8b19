package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitea.kood.tech/saathi/matchmaking/client/api"
	"gitea.kood.tech/saathi/matchmaking/client/coordinator"
	"gitea.kood.tech/saathi/matchmaking/client/interest"
	"gitea.kood.tech/saathi/matchmaking/client/session"
)

// errReported is returned once the failure has already been printed.
var errReported = errors.New("reported")

var errNotSignedIn = errors.New("not signed in, run `matchctl login` first")

type cli struct {
	server      string
	credentials string
	verbose     bool
	timeout     time.Duration

	out    io.Writer
	in     io.Reader
	now    func() time.Time
	logger *zap.Logger

	client  *api.Client
	sess    *session.Context
	machine *interest.Machine
	coord   *coordinator.Coordinator
}

func newRootCmd() *cobra.Command {
	c := &cli{now: time.Now}

	root := &cobra.Command{
		Use:   "matchctl",
		Short: "Browse profiles and manage interests on a Saathi store",
		Long: `matchctl signs in to a Saathi store, lists and filters member profiles,
and sends, accepts, rejects, removes and resends interests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.server, "server", envOr("SAATHI_SERVER", "http://localhost:8080"), "store base URL")
	pf.StringVar(&c.credentials, "credentials", defaultCredentialsPath(), "where the sign-in token is kept")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	pf.DurationVar(&c.timeout, "timeout", api.DefaultTimeout, "per-request timeout")

	root.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.profileCmd(),
		c.photoCmd(),
		c.browseCmd(),
		c.viewCmd(),
		c.interestCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	c.out = cmd.OutOrStdout()
	c.in = cmd.InOrStdin()

	lc := zap.NewDevelopmentConfig()
	if !c.verbose {
		lc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := lc.Build()
	if err != nil {
		return err
	}
	c.logger = logger

	c.client = api.New(c.server, api.WithTimeout(c.timeout), api.WithLogger(logger))
	c.sess = session.New(c.client, session.FileStore{Path: c.credentials}, session.WithLogger(logger))
	c.machine = interest.NewMachine(c.client, c.sess, logger)
	c.coord = coordinator.New(c.machine, c.sess, c.client, logger)

	return c.sess.Init(cmd.Context())
}

func (c *cli) requireAuth() error {
	if !c.sess.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultCredentialsPath() string {
	if v := os.Getenv("SAATHI_CREDENTIALS"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "saathi", "credentials.yaml")
}
