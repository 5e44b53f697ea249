package main

import (
	"fmt"

	"bookloader/internal/ingest"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newLoadCmd(a *app) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the authors dump, then the works dump",
		Long: `Load reads the authors dump and upserts every author, then reads the works
dump and upserts every work that lists authors. A store failure while loading
authors stops the run before any work is read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, ok := ingest.ParsePhase(only)
			if !ok {
				return fmt.Errorf("--only must be authors or works, got %q", only)
			}
			ctx := cmd.Context()

			st, err := openStores(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.close()

			m, err := newMetricsBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					log.Warnf("Failed to close metrics backend: %v", err)
				}
			}()

			svc := ingest.NewService(st.catalog, st.catalog, st.runs, m, ingest.Config{
				AuthorsPath:     a.cfg.Dump.AuthorsPath,
				WorksPath:       a.cfg.Dump.WorksPath,
				WritesPerSecond: a.cfg.Ingest.WritesPerSecond,
				MaxLineBytes:    a.cfg.Ingest.MaxLineBytes,
				Progress:        a.cfg.Ingest.Progress,
			})
			return svc.Run(ctx, phase)
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "run a single pipeline: authors or works")
	return cmd
}
