package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/media-subtitle-translator/internal/persistence"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var video string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := store.Session(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			var records []persistence.TranslationRecord
			if video != "" {
				records, err = sess.ListByVideo(cmd.Context(), video)
			} else {
				records, err = sess.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "translation not found")
				return nil
			}
			fmt.Fprintln(out, renderRecords(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&video, "video", "", "Only list translations of this video name")
	return cmd
}

func renderRecords(records []persistence.TranslationRecord) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.VideoName,
			rec.Language,
			firstLine(rec.Translation),
			rec.ArtifactPath,
			rec.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"ID", "Video", "Language", "Translation", "SRT", "Created"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func firstLine(s string) string {
	line, rest, found := strings.Cut(strings.TrimSpace(s), "\n")
	if found && strings.TrimSpace(rest) != "" {
		return line + " …"
	}
	return line
}
