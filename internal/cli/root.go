// Package cli provides the terminal interface for the advisor.
package cli

import (
	"errors"
	"fmt"
	"os"

	"enstp-advisor-go/internal/config"
	"enstp-advisor-go/pkg/log"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

// errReported 表示错误信息已经输出给用户，Execute 不再重复打印。
var errReported = errors.New("already reported")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Conseiller ENSTP: choisir entre DMS et DIB",
	Long: `Conseiller d'orientation pour les étudiants de l'ENSTP qui terminent le cycle
préparatoire et doivent choisir entre le DMS et le DIB.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 终端模式默认不输出日志，避免干扰对话
		if verbose {
			if err := log.Init(cfg.Log.Level, "console", cfg.Log.OutputPath); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), config.UserMessage(err))
			return errReported
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
}
