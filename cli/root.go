package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vote-ledger/config"
	"vote-ledger/logger"
)

const (
	keyConfig     = "config"
	keyLogConsole = "log-console"
)

// baseConfiguration is shared by all commands and filled in before any of
// them runs.
type baseConfiguration struct {
	CfgFile    string
	LogConsole bool
	Config     config.Config

	log zerolog.Logger
	out io.Writer
}

// New creates the vote-ledger command tree.
func New() *cobra.Command {
	base := &baseConfiguration{Config: config.Default()}

	cmd := &cobra.Command{
		Use:           "vote-ledger",
		Short:         "Hash-chained proof-of-work vote ledger",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := base.initialize(cmd); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	base.addConfigurationFlags(cmd)

	cmd.AddCommand(
		newServeCmd(base),
		newVoteCmd(base),
		newResultsCmd(base),
		newVerifyCmd(base),
		newExportCmd(base),
		newImportCmd(base),
		newResetCmd(base),
		newCandidatesCmd(base),
		newWalletCmd(base),
		newExplorerCmd(base),
	)
	return cmd
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return New().ExecuteContext(ctx)
}

func (c *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.PersistentFlags()
	f.StringVar(&c.CfgFile, keyConfig, "", "config file (yaml, json or toml)")
	f.BoolVar(&c.LogConsole, keyLogConsole, true, "human readable log output instead of JSON")

	f.StringVar(&c.Config.StorageBackend, "storage-backend", d.StorageBackend, "storage backend: json, bolt, postgres or memory")
	f.StringVar(&c.Config.StorageDir, "storage-dir", d.StorageDir, "directory for ledger files and chain snapshots")
	f.StringVar(&c.Config.DatabaseURL, "database-url", "", "postgres connection string (also read from DATABASE_URL)")
	f.IntVar(&c.Config.Port, "port", d.Port, "HTTP API port")
	f.StringVar(&c.Config.DifficultyPrefix, "difficulty-prefix", d.DifficultyPrefix, "required hex prefix of mined block hashes")
	f.Uint64Var(&c.Config.NonceCap, "nonce-cap", d.NonceCap, "highest nonce tried before a block is accepted anyway")
	f.Float64Var(&c.Config.GasCost, "gas-cost", d.GasCost, "balance charged to demo wallets per vote")
	f.StringVar(&c.Config.HashAlgorithm, "hash-algorithm", d.HashAlgorithm, "block hash function: sha256 or keccak256")
	f.StringVar(&c.Config.AdminAddress, "admin-address", d.AdminAddress, "wallet address allowed to run admin operations")
	f.BoolVar(&c.Config.StrictCandidates, "strict-candidates", d.StrictCandidates, "reject votes for candidates not on the roster")
	f.IntVar(&c.Config.QueueSize, "queue-size", d.QueueSize, "pending votes accepted by the mining queue")
	f.DurationVar(&c.Config.SnapshotInterval, "snapshot-interval", d.SnapshotInterval, "interval between chain snapshots, 0 disables")
	f.IntVar(&c.Config.SnapshotKeep, "snapshot-keep", d.SnapshotKeep, "number of chain snapshots to keep")
	f.BoolVar(&c.Config.Debug, "debug", d.Debug, "enable debug logging")
}

func (c *baseConfiguration) initialize(cmd *cobra.Command) error {
	// .env is optional, existing environment wins
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
	}

	v := viper.New()
	if c.CfgFile != "" {
		v.SetConfigFile(c.CfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// a database URL without an explicit backend selects postgres
	if c.Config.DatabaseURL != "" && !cmd.Flags().Changed("storage-backend") {
		c.Config.StorageBackend = config.BackendPostgres
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}

	c.out = cmd.OutOrStdout()
	c.log = logger.New(logger.Config{Debug: c.Config.Debug, Console: c.LogConsole, Writer: cmd.ErrOrStderr()})
	c.log.Debug().Msg(c.Config.DebugString())
	return nil
}

// bindFlags applies config file and environment values to every flag the
// user did not set on the command line. --storage-dir reads VOTE_STORAGE_DIR.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig {
			return
		}

		envVars := []string{fmt.Sprintf("%s_%s", config.EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))}
		if f.Name == "database-url" {
			envVars = append(envVars, "DATABASE_URL")
		}
		if err := v.BindEnv(append([]string{f.Name}, envVars...)...); err != nil {
			bindFlagErr = append(bindFlagErr, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
			return
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
				return
			}
		}
	})

	return errors.Join(bindFlagErr...)
}
