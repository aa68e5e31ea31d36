package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"chat-gateway/sanitize"
)

// newSanitizeCommand roda o sanitizer fora do servidor, útil para testar
// um arquivo de política antes do deploy.
func newSanitizeCommand() *cobra.Command {
	var (
		policyFile string
		maxLength  int
	)
	cmd := &cobra.Command{
		Use:   "sanitize [text]",
		Short: "Check a message against the sanitizer (reads stdin when no text is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := sanitize.DefaultPolicy()
			if policyFile != "" {
				p, err := sanitize.LoadPolicy(policyFile)
				if err != nil {
					return err
				}
				policy = p
			}
			s, err := sanitize.New(policy, sanitize.WithMaxLength(maxLength))
			if err != nil {
				return err
			}

			text := ""
			if len(args) == 1 {
				text = args[0]
			} else {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = strings.TrimRight(string(raw), "\n")
			}

			out, err := s.Message(text, maxLength)
			if err != nil {
				return fmt.Errorf("rejected: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&policyFile, "policy", "", "YAML policy file (default: built-in rules)")
	cmd.Flags().IntVar(&maxLength, "max", sanitize.DefaultMaxLength, "maximum message length")
	return cmd
}
