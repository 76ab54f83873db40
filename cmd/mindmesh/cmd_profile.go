package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/xaenox/mindmesh-bot/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Fill in or show questionnaire answers",
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a user's answers as the assistant sees them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := build()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Service.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Knowledge profile:\n%s\n\nLearning profile:\n%s\n",
			p.KnowledgeDescription, p.LearnerDescription)
		return nil
	},
}

var profileKnowledgeCmd = &cobra.Command{
	Use:   "knowledge NAME FILE",
	Short: "Submit the knowledge questionnaire from a \"key: value\" file (- for stdin)",
	Long:  "Submit the knowledge questionnaire. Example file:\n\n" + profile.KnowledgeFormTemplate,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readForm(cmd, args[1])
		if err != nil {
			return err
		}
		kp, err := profile.ParseKnowledgeForm(form)
		if err != nil {
			return err
		}

		a, err := build()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SubmitKnowledgeProfile(cmd.Context(), args[0], kp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Knowledge profile saved.")
		return nil
	},
}

var profileLearningCmd = &cobra.Command{
	Use:   "learning NAME FILE",
	Short: "Submit the learning preferences questionnaire from a \"key: value\" file (- for stdin)",
	Long:  "Submit the learning preferences questionnaire. Example file:\n\n" + profile.LearnerFormTemplate,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readForm(cmd, args[1])
		if err != nil {
			return err
		}
		lp, err := profile.ParseLearnerForm(form)
		if err != nil {
			return err
		}

		a, err := build()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SubmitLearnerProfile(cmd.Context(), args[0], lp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Learning profile saved.")
		return nil
	},
}

func readForm(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileKnowledgeCmd, profileLearningCmd)
	rootCmd.AddCommand(profileCmd)
}
