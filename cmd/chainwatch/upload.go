package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/chainwatch/internal/api"
	"github.com/Veraticus/chainwatch/internal/cli"
	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/service"
)

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV of transactions for offline analysis",
		Long: `Upload a CSV file (10MB max) to the analysis service. The file is
checked locally before anything is sent; on success the results page
address is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			out := cmd.OutOrStdout()

			info, err := api.ValidateUpload(path)
			if err != nil {
				return common.NewUserError("Cannot upload "+filepath.Base(path), err)
			}

			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			quiet, _ := cmd.Flags().GetBool("quiet")
			var progress service.ProgressFunc
			if !quiet {
				bar := newUploadBar(out, info.Name(), info.Size())
				progress = func(sent, total int64) {
					bar.ChangeMax64(total)
					if err := bar.Set64(sent); err != nil {
						slog.Debug("Failed to update progress bar", "error", err)
					}
				}
				defer func() { _ = bar.Finish() }()
			}

			slog.Debug("Uploading file", "path", path, "bytes", info.Size())
			result, err := s.client.Upload(ctx, path, progress)
			if err != nil {
				return common.NewUserError("Upload failed", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Uploaded %s (%d bytes)", result.FileName, result.Size)))
			if loc := result.Location; loc != "" {
				if strings.HasPrefix(loc, "/") {
					loc = s.client.BaseURL() + loc
				}
				fmt.Fprintln(out, cli.FormatInfo("Results: "+loc))
			}
			return nil
		},
	}

	cmd.Flags().BoolP("quiet", "q", false, "Hide the progress bar")

	return cmd
}

func newUploadBar(w io.Writer, name string, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Uploading "+name+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
