package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "repartition",
	Short: "Repartition a Blueprint-style mesh across a target number of domains",
	Long: `repartition reads a mesh tree and an options file describing how the
mesh should be split, redistributed and recombined, then runs the
repartitioning pipeline and writes the result back out.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initViper)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "options file (default $PWD/.repartition.yaml or $HOME/.repartition.yaml)")
}

// initViper points the global viper instance at an explicit --config path
// ahead of any subcommand's own config.Load call; it binds no environment
// variables.
func initViper() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}
