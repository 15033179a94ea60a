// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/Liang-Chaoyue/PaperFinder/internal/names"
)

var variantsCmd = &cobra.Command{
	Use:   "variants <name>",
	Short: "Preview the name variants a search would generate",
	Long: `Variants shows the full ladder of name forms generated for a researcher,
ordered by priority: verbatim and reordered forms first, then initialed
forms, then separator rewrites. Only priorities 0-2 are searched; the rest
exist for matching. Pass --pinyin to override the automatic romanization
of a CJK name.`,
	Args: cobra.ExactArgs(1),
	RunE: runVariants,
}

func init() {
	variantsCmd.Flags().String("pinyin", "", "romanization override for a CJK name")
	variantsCmd.Flags().Bool("yaml", false, "output as YAML")

	rootCmd.AddCommand(variantsCmd)
}

func runVariants(cmd *cobra.Command, args []string) error {
	pinyin, _ := cmd.Flags().GetString("pinyin")
	variants := names.Generate(args[0], pinyin)
	if len(variants) == 0 {
		return fmt.Errorf("no variants generated for %q", args[0])
	}

	if yamlOut, _ := cmd.Flags().GetBool("yaml"); yamlOut {
		return yaml.NewEncoder(os.Stdout).Encode(variants)
	}

	fmt.Printf("%-8s  %s\n", "Priority", "Variant")
	for _, v := range variants {
		fmt.Printf("%-8d  %s\n", v.Priority, v.Text)
	}
	fmt.Printf("\n%d variants, %d match tokens\n", len(variants), len(names.MatchTokens(variants)))
	return nil
}
