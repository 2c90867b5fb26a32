package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var languages []string

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Transcribe and translate local media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			orch, err := newOrchestrator(cfg, artifact.NewStore(cfg.Media.OutputDir))
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs := make([]pipeline.Job, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				jobs = append(jobs, pipeline.Job{
					VideoName: filepath.Base(path),
					Content:   f,
					Languages: languages,
				})
			}

			sess, err := store.Session(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			results, runErr := orch.AcceptAll(cmd.Context(), jobs, sess)
			if len(results) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
			}
			if runErr != nil {
				return runErr
			}
			for _, res := range results {
				if res.Err() != nil {
					return errors.New("some translations failed")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&languages, "lang", "l", nil, "Target language, repeatable (e.g. French)")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func renderResults(results []pipeline.FileResult) string {
	var rows [][]string
	for _, res := range results {
		for _, o := range res.Outcomes {
			status := "ok"
			if o.Err != nil {
				status = o.Err.Error()
			}
			rows = append(rows, []string{
				res.VideoName,
				strconv.FormatFloat(res.Duration, 'f', 1, 64),
				o.Language,
				status,
				o.ArtifactPath,
			})
		}
	}
	return renderTable(
		[]string{"File", "Duration (s)", "Language", "Status", "SRT"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}
