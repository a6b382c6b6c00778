package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karuna-health/assess-portal/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the assessment catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog sections and indicator counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		fmt.Println(cat.Title)
		for _, cg := range cat.Categories {
			fmt.Printf("\n%s\n", cg.Title)
			for _, sid := range cg.Sections {
				sec, err := cat.Section(sid)
				if err != nil {
					return err
				}
				scored := 0
				for i := range sec.Indicators {
					if sec.Indicators[i].Scored() {
						scored++
					}
				}
				na := ""
				if sec.AllowNA {
					na = " (N/A allowed)"
				}
				fmt.Printf("  %-28s %2d indicators, %2d scored%s\n", sec.ID, len(sec.Indicators), scored, na)
			}
		}
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cat *catalog.Catalog
		var err error
		if len(args) == 1 {
			cat, err = catalog.Load(args[0])
		} else {
			cat, err = loadCatalog()
		}
		if err != nil {
			return err
		}

		indicators := 0
		for _, sec := range cat.Sections {
			indicators += len(sec.Indicators)
		}
		fmt.Printf("ok: %d categories, %d sections, %d indicators\n",
			len(cat.Categories), len(cat.Sections), indicators)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd, catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
