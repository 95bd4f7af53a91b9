/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parse.go
Description: parse command. Prints the typed field descriptors, sample records and
warnings recovered from each input.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/pipeline"
	"github.com/kleascm/as400-modernizer/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// parsedInput is the printed form of one parsed input
type parsedInput struct {
	Input      string                 `json:"input"`
	Format     core.FormatKind        `json:"format"`
	Variant    string                 `json:"variant,omitempty"`
	Entity     string                 `json:"entity"`
	PrimaryKey []string               `json:"primary_key,omitempty"`
	Fields     []core.FieldDescriptor `json:"fields"`
	Records    []core.Record          `json:"records,omitempty"`
	Warnings   core.Warnings          `json:"warnings,omitempty"`
}

func newParseCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file|dir>...",
		Short: "Parse legacy artifacts into typed field descriptors",
		Long: `Detect (or use the given format), parse and type every input, printing the field
descriptors, sample records and any warnings. Inputs are processed independently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, v, args)
		},
	}
	cmd.Flags().String("format", "auto", "Input format (auto, fixed_width, delimited, dds, rpg, green_screen)")
	cmd.Flags().String("output-format", utils.FormatJSON, "Output encoding (json, yaml)")
	cmd.Flags().Int("max-records", 10, "Sample records printed per input (0 = none)")
	return cmd
}

func runParse(cmd *cobra.Command, v *viper.Viper, args []string) error {
	s, err := setup(cmd, v)
	if err != nil {
		return err
	}
	defer s.logger.Close()

	kind, _ := cmd.Flags().GetString("format")
	encoding, _ := cmd.Flags().GetString("output-format")
	maxRecords, _ := cmd.Flags().GetInt("max-records")

	inputs, err := loadInputs(cmd.Context(), v, s, args, kind)
	if err != nil {
		return err
	}

	p := pipeline.New(s.cfg, nil, s.logger.GetLogger())
	reporter := pipeline.NewLoggerReporter(s.logger)

	var parsed []parsedInput
	failed := 0
	for _, in := range inputs {
		out := p.ProcessInput(cmd.Context(), in)
		reporter.OnInputProcessed(out)
		if out.Err != nil {
			failed++
			continue
		}
		records := out.Result.Records
		if len(records) > maxRecords {
			records = records[:maxRecords]
		}
		parsed = append(parsed, parsedInput{
			Input:      out.Input,
			Format:     out.Format,
			Variant:    out.Variant,
			Entity:     out.EntityName,
			PrimaryKey: out.Entity.PrimaryKey,
			Fields:     out.Entity.Fields,
			Records:    records,
			Warnings:   out.Warnings,
		})
	}

	data, err := utils.Marshal(encoding, parsed)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d input(s) failed to parse", failed, len(inputs))
	}
	return nil
}
