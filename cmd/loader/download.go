package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"bookloader/internal/platform/openlibrary"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDownloadCmd(a *app) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:       "download authors|works",
		Short:     "Fetch the latest Open Library dump",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{openlibrary.DumpAuthors, openlibrary.DumpWorks},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if dest == "" {
				dest = a.cfg.Dump.AuthorsPath
				if kind == openlibrary.DumpWorks {
					dest = a.cfg.Dump.WorksPath
				}
			}

			ol := a.cfg.OpenLibrary
			client := openlibrary.NewClient(ol.BaseURL, ol.UserAgent, ol.RPS, ol.MaxRetries)
			if !a.quiet && term.IsTerminal(int(os.Stderr.Fd())) {
				client.Progress = func(size int64) io.Writer {
					return progressbar.NewOptions64(size,
						progressbar.OptionSetDescription("downloading "+kind),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowBytes(true),
						progressbar.OptionSetWidth(40),
						progressbar.OptionThrottle(200*time.Millisecond),
						progressbar.OptionClearOnFinish(),
					)
				}
			}

			log.Infof("Downloading %s to %s", client.DumpURL(kind), dest)
			start := time.Now()
			n, err := client.DownloadDump(cmd.Context(), kind, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s) in %s\n", dest, humanize.Bytes(uint64(n)), time.Since(start).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "destination file (default is the configured dump path)")
	return cmd
}
