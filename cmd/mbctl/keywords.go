package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"multiblock/internal/service/memory"
)

func NewKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords [text...]",
		Short: "Print the keywords extracted from text",
		Long:  `Extract memory keywords from the arguments, or from stdin when no arguments are given.`,
		RunE:  runKeywords,
	}
}

func runKeywords(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	keywords := memory.ExtractKeywords(text)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(keywords)
	}

	for _, kw := range keywords {
		fmt.Fprintln(cmd.OutOrStdout(), kw)
	}
	return nil
}
