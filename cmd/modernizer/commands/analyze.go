/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyze.go
Description: analyze command. Runs the whole batch pipeline and writes JSON schemas, REST
resource shapes, fixed-width layouts, service boundaries and a batch report.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/overlay"
	"github.com/kleascm/as400-modernizer/pkg/pipeline"
	"github.com/kleascm/as400-modernizer/pkg/schema"
	"github.com/kleascm/as400-modernizer/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAnalyzeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file|dir>...",
		Short: "Derive schemas, REST resources and service boundaries",
		Long: `Process every input, link entities by foreign key, optionally enrich them with the
advisory overlay and group them into service boundaries. Artifacts are written to the
output location, which may be a directory or any URL afs supports.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, v, args)
		},
	}

	flags := cmd.Flags()
	flags.String("output", "./modernized", "Output location for artifacts")
	flags.String("output-format", utils.FormatJSON, "Artifact encoding (json, yaml)")
	flags.String("overlay", "", "Overlay provider (openai, file); empty disables the overlay")
	flags.String("overlay-file", "", "Annotation file for the file overlay provider")
	flags.Int("max-boundary-size", 8, "Largest service boundary before it is split")

	v.BindPFlag("overlay.provider", flags.Lookup("overlay"))
	v.BindPFlag("overlay.file", flags.Lookup("overlay-file"))
	v.BindPFlag("segmentation.max_boundary_size", flags.Lookup("max-boundary-size"))
	return cmd
}

func runAnalyze(cmd *cobra.Command, v *viper.Viper, args []string) error {
	s, err := setup(cmd, v)
	if err != nil {
		return err
	}
	defer s.logger.Close()
	ctx := cmd.Context()

	output, _ := cmd.Flags().GetString("output")
	encoding, _ := cmd.Flags().GetString("output-format")

	inputs, err := loadInputs(ctx, v, s, args, "")
	if err != nil {
		return err
	}

	advisor, err := overlay.NewAdvisor(ctx, s.cfg.OverlayOptions())
	if err != nil {
		return fmt.Errorf("failed to create overlay advisor: %w", err)
	}

	p := pipeline.New(s.cfg, advisor, s.logger.GetLogger())
	p.AddReporter(pipeline.NewLoggerReporter(s.logger))
	report, err := p.Run(ctx, inputs)
	if err != nil {
		return err
	}

	written, err := writeArtifacts(cmd, output, encoding, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d entities, %d service boundaries, %d warnings, %d failed input(s); %d artifacts written to %s\n",
		len(report.Entities), len(report.Boundaries), len(report.AllWarnings()), len(report.Failures()), written, output)
	return nil
}

// writeArtifacts writes one schema and resource per entity, a layout per positional
// entity, the boundaries and the report
func writeArtifacts(cmd *cobra.Command, output, encoding string, report *pipeline.Report) (int, error) {
	ctx := cmd.Context()
	written := 0
	write := func(name string, v interface{}) error {
		if _, err := utils.WriteArtifact(ctx, output, name, encoding, v); err != nil {
			return err
		}
		written++
		return nil
	}

	for _, entity := range report.Entities {
		base := schema.Kebab(entity.Name)
		if err := write(base+".schema", schema.ToJSONSchema(entity)); err != nil {
			return written, err
		}
		if err := write(base+".resource", schema.ToResource(entity, report.Entities)); err != nil {
			return written, err
		}
		if entity.Source != core.FormatFixedWidth {
			continue
		}
		if columns, err := schema.FixedWidthLayout(entity); err == nil {
			if err := write(base+".layout", columns); err != nil {
				return written, err
			}
		}
	}
	if err := write("boundaries", report.Boundaries); err != nil {
		return written, err
	}
	if err := write("report", report); err != nil {
		return written, err
	}
	return written, nil
}
