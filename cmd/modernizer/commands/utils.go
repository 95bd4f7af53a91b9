/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared setup for the modernizer commands: configuration loading, logging
and input loading.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/kleascm/as400-modernizer/pkg/config"
	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/logging"
	"github.com/kleascm/as400-modernizer/pkg/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session carries what every command needs once flags are parsed
type session struct {
	cfg    *config.Config
	logger *logging.Logger
}

// setup loads the configuration and creates the logger. Logs go to stderr so command
// output on stdout stays machine readable.
func setup(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	cfg, err := config.Load(v, v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LoggerConfig(), cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return &session{cfg: cfg, logger: logger}, nil
}

// loadInputs reads every location argument and applies a forced format, if any
func loadInputs(ctx context.Context, v *viper.Viper, s *session, locations []string, kind string) ([]*core.RawInput, error) {
	forced, err := core.ParseFormatKind(kind)
	if err != nil {
		return nil, err
	}
	inputs, err := source.NewLoader(v.GetInt64("max_bytes"), s.logger.GetLogger()).Load(ctx, locations...)
	if err != nil {
		return nil, err
	}
	if forced != core.FormatUnknown {
		for _, in := range inputs {
			in.Hint = forced
		}
	}
	return inputs, nil
}
