/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: detect.go
Description: detect command. Reports the format, confidence and winning signature of
each input without parsing it.
*/

package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/detect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDetectCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <file|dir>...",
		Short: "Detect the format of legacy artifacts",
		Long: `Score every input against the registered format signatures and print the winning
format with its confidence. Inputs below the minimum confidence are reported as unknown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, v, args)
		},
	}
	cmd.Flags().Bool("scores", false, "Print the score of every signature")
	return cmd
}

func runDetect(cmd *cobra.Command, v *viper.Viper, args []string) error {
	s, err := setup(cmd, v)
	if err != nil {
		return err
	}
	defer s.logger.Close()

	inputs, err := loadInputs(cmd.Context(), v, s, args, "")
	if err != nil {
		return err
	}
	showScores, _ := cmd.Flags().GetBool("scores")

	detector := detect.NewDetector(s.cfg.DetectOptions(), s.logger.GetLogger())
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INPUT\tFORMAT\tCONFIDENCE\tSIGNATURE")

	unknown := 0
	for _, in := range inputs {
		d, err := detector.Detect(in)
		if err != nil {
			if !errors.Is(err, core.ErrUnrecognizedFormat) {
				return err
			}
			unknown++
			fmt.Fprintf(w, "%s\tunknown\t-\t%s\n", in.Name, err)
			continue
		}
		s.logger.LogDetection(in.Name, d.Kind, d.Confidence, d.Signature)
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", in.Name, d.Kind, d.Confidence, d.Signature)
		if showScores {
			for _, sc := range d.Scores {
				fmt.Fprintf(w, "\t  %s\t%.2f\t%s\n", sc.Kind, sc.Confidence, sc.Signature)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if unknown > 0 {
		return fmt.Errorf("%d of %d input(s) not recognized", unknown, len(inputs))
	}
	return nil
}
