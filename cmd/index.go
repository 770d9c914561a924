package cmd

import (
	"strings"

	"github.com/arunsworld/nursery"
	"github.com/spf13/cobra"
	"github.com/streambinder/spotiseek/library"
	"github.com/streambinder/spotiseek/util"
)

func init() {
	cmdRoot.AddCommand(cmdIndex())
}

func cmdIndex() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "index",
		Short:        "Refresh the local library cache",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { util.ErrSuppress(logger.Sync()) }()

			var (
				list  = util.ErrWrap(false)(cmd.Flags().GetBool("list"))
				index = library.New(
					library.WithThresholds(conf.LibraryThresholds()),
					library.WithCache(conf.Cache),
					library.WithLogger(logger),
				)
			)
			if err := nursery.RunConcurrently(routineIndex(index, conf.LibraryRoots())); err != nil {
				return err
			}

			if list {
				for _, entry := range index.Entries() {
					tui.Printf("%s: %s - %s (%ds)", entry.Path, util.Excerpt(strings.Join(entry.Artists, ", "), 40), entry.Title, entry.Duration)
				}
			}
			tui.Printf("cache written to %s", conf.Cache)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "output", "Output directory, indexed as part of the library")
	cmd.Flags().StringSliceP("library", "l", []string{}, "Additional library directory")
	cmd.Flags().Bool("list", false, "Print every indexed track")
	return cmd
}
