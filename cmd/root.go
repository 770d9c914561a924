package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/streambinder/spotiseek/config"
	"github.com/streambinder/spotiseek/util"
	"github.com/streambinder/spotiseek/util/anchor"
	"go.uber.org/zap"
)

var (
	cmdRoot = &cobra.Command{
		Use:   "spotiseek",
		Short: "Resolve Spotify playlists into local files fetched from a peer network",
	}
	tui = anchor.New(anchor.Red)
)

func init() {
	cmdRoot.PersistentFlags().StringP("config", "c", "", "Configuration file (defaults to spotiseek.yaml in the working or configuration directory)")
	cmdRoot.PersistentFlags().Bool("debug", false, "Print diagnostics")
}

func Execute() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setup loads the configuration, with the command flags on top, and the logger
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	var (
		path  = util.ErrWrap("")(cmd.Flags().GetString("config"))
		debug = util.ErrWrap(false)(cmd.Flags().GetBool("debug"))
	)

	logger := zap.NewNop()
	if debug {
		development, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		logger = development
	}

	conf, err := config.Load(path, cmd.LocalFlags())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, logger, nil
}
