/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: root.go
Description: Root command for the AS/400 modernizer. Persistent flags are bound to viper
keys so flags, config files and AS400_* environment variables share one namespace.
*/

package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand builds the command tree with its own viper instance
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "as400-modernizer",
		Short: "Recover typed schemas and service boundaries from AS/400 artifacts",
		Long: `The AS/400 modernizer reads legacy artifacts (fixed-width and delimited flat files,
DDS and SQL table definitions, RPG source and green-screen layouts), recovers their
field structure and types, and proposes JSON schemas, REST resources and service
boundaries for a modern system.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file path")
	flags.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json, custom)")
	flags.String("log-dir", "", "Directory for log files (empty logs to the console only)")
	flags.Int("workers", 4, "Number of inputs processed in parallel")
	flags.Float64("min-confidence", 0.5, "Minimum detection confidence")
	flags.Int64("max-bytes", 64<<20, "Largest input file accepted, in bytes (0 = no limit)")

	v.BindPFlag("config", flags.Lookup("config"))
	v.BindPFlag("logging.level", flags.Lookup("log-level"))
	v.BindPFlag("logging.format", flags.Lookup("log-format"))
	v.BindPFlag("logging.output_dir", flags.Lookup("log-dir"))
	v.BindPFlag("workers", flags.Lookup("workers"))
	v.BindPFlag("detection.min_confidence", flags.Lookup("min-confidence"))
	v.BindPFlag("max_bytes", flags.Lookup("max-bytes"))

	rootCmd.AddCommand(newDetectCommand(v))
	rootCmd.AddCommand(newParseCommand(v))
	rootCmd.AddCommand(newAnalyzeCommand(v))
	return rootCmd
}
