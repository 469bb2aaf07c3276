// Package cmd is for command line interactions with the pangraph application
package cmd

import (
	"log"
	"os"

	"github.com/jemmacfen/pangraph/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// stderr is for logging to Stderr (without an annoying timestamp)
var stderr = log.New(os.Stderr, "", 0)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "pangraph",
	Short: `Build a guide tree over a set of sequences and progressively merge
them, bottom-up, into a compressed pangenome representation`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	viper.SetDefault("self-merge-cap", config.DefaultSelfMergeCap)
	viper.SetDefault("quality-margin", config.DefaultQualityMargin)

	// every setting can also come from a PANGRAPH_* environment variable
	viper.SetEnvPrefix("pangraph")
	viper.AutomaticEnv()
}
