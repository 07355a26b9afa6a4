package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshrepart/config"
	"github.com/notargets/meshrepart/partitioner"
	"github.com/notargets/meshrepart/transport"
)

var validateMeshIn string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a mesh and an options file initialize without running the pipeline",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateMeshIn, "mesh", "", "input mesh file (attrtree gob encoding)")
	_ = validateCmd.MarkFlagRequired("mesh")
	rootCmd.AddCommand(validateCmd)
}

// runValidate exercises Initialize (spec section 4.7 steps 1-4: selection
// resolution and Applicable checks) without Execute, so a malformed options
// file or an inapplicable selection is caught before any chunk work runs.
func runValidate(cmd *cobra.Command, args []string) error {
	root, err := readMesh(validateMeshIn)
	if err != nil {
		return err
	}

	rawOpts, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("repartition: loading options: %w", err)
	}

	selections, err := rawOpts.Build(domainList(root))
	if err != nil {
		return fmt.Errorf("repartition: interpreting options: %w", err)
	}

	p := partitioner.New(partitioner.WithGroup(transport.NewSerialGroup()))
	if err := p.Initialize(root, partitioner.Options{
		Target:             rawOpts.Target,
		Fields:             rawOpts.Fields,
		PreserveMapping:    rawOpts.PreserveMapping(),
		MergeTolerance:     rawOpts.ResolvedMergeTolerance(),
		SelectionsByDomain: selections,
	}); err != nil {
		return fmt.Errorf("repartition: validation failed: %w", err)
	}

	fmt.Println("ok")
	return nil
}
