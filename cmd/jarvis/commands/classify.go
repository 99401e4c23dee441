package commands

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Print the intent the classifier extracts from a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			voice, _ := cmd.Flags().GetBool("voice")
			intent := a.Classifier.Classify(cmd.Context(), strings.Join(args, " "), nil, voice)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(intent)
		},
	}
	cmd.Flags().Bool("voice", false, "classify as a transcribed voice note")
	return cmd
}
