package main

import (
	"os"

	"nitrado-deploy/xmlcopy"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xmlcopy <element> <src_file> <target_file>",
	Short: "Copy specified element values from a vanilla XML to a types XML",
	Long: `xmlcopy copies the value of <element> from every <type name="..."> entry of
src_file into the <type> entry with the same name in target_file, adding the
element where it is missing. target_file is rewritten in place; everything
other than the copied values is left as it was.

Example:
  xmlcopy lifetime types_vanilla.xml db/types.xml`,
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		element, srcFile, targetFile := args[0], args[1], args[2]

		updated, err := xmlcopy.CopyFile(element, srcFile, targetFile)
		if err != nil {
			return err
		}
		log.Info("Updated target file", "file", targetFile, "element", element, "types", updated)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("❌ Copy failed", "err", err)
		os.Exit(1)
	}
}
