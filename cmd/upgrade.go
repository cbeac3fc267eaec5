package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"projup/config"
	"projup/pkg/batch"
	"projup/pkg/core"
	"projup/pkg/counter"
	"projup/pkg/progress"
	"projup/pkg/sink"
)

var errNothingUpgraded = errors.New("no document was upgraded")

var upgradeFlags struct {
	target string
	out    string
	format string
	prefix string
	quiet  bool
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade --target N [flags] path...",
	Short: "Upgrade documents and write them as one archive",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpgrade,
}

func init() {
	f := upgradeCmd.Flags()
	f.StringVarP(&upgradeFlags.target, "target", "t", "", "target version (digits)")
	f.StringVarP(&upgradeFlags.out, "out", "o", "", "destination: directory, gs://bucket/prefix or s3://bucket/prefix")
	f.StringVar(&upgradeFlags.format, "format", "", "archive format: zip or agcp")
	f.StringVar(&upgradeFlags.prefix, "prefix", "", "archive name prefix")
	f.BoolVarP(&upgradeFlags.quiet, "quiet", "q", false, "only print the summary")
	_ = upgradeCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := slog.Default()

	if err := batch.ValidateTarget(upgradeFlags.target); err != nil {
		return err
	}
	format := firstNonEmpty(upgradeFlags.format, cfg.Archive.Format)
	if format != config.FormatZip && format != config.FormatAGCP {
		return fmt.Errorf("unknown archive format %q", format)
	}

	paths, err := collectInputs(args, cfg.Input.Extension)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s documents found", cfg.Input.Extension)
	}
	inputs, err := loadInputs(ctx, paths)
	if err != nil {
		return err
	}

	patcher, err := cfg.Patcher()
	if err != nil {
		return err
	}
	store, closer, err := counter.Open(ctx, cfg.Counter)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	tracker := progress.New(out)
	tracker.SetQuiet(upgradeFlags.quiet)
	// The counter is advanced only once the archive is stored.
	b := batch.New(batch.Deps{
		Patcher:  patcher,
		Observer: tracker,
		Logger:   logger,
	})
	for _, in := range inputs {
		b.Add(in)
	}

	res, err := b.Run(ctx, upgradeFlags.target)
	if err != nil {
		return err
	}
	if res.SuccessCount == 0 {
		tracker.Summary()
		return errNothingUpgraded
	}

	prefix := firstNonEmpty(upgradeFlags.prefix, cfg.Archive.Prefix)
	name, contentType, data, err := buildOutput(format, prefix, upgradeFlags.target, res.Outputs, tracker)
	if err != nil {
		return err
	}

	dest := firstNonEmpty(upgradeFlags.out, cfg.Output)
	s, err := sink.Open(ctx, dest, sink.Options{S3: cfg.Sink.S3})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	location, err := s.Put(ctx, name, data, contentType)
	if err != nil {
		return err
	}

	tracker.Summary()
	fmt.Fprintf(out, "Wrote %s\n", location)

	total, err := counter.Increment(ctx, store, res.SuccessCount)
	if err != nil {
		logger.Warn("Lifetime total not updated", "error", err)
		return nil
	}
	fmt.Fprintf(out, "Lifetime upgrades: %d\n", total)
	return nil
}

// buildOutput encodes the outputs in the requested container and returns
// its file name, content type and bytes.
func buildOutput(format, prefix, target string, outputs []batch.Output, tracker *progress.Tracker) (string, string, []byte, error) {
	var buf bytes.Buffer
	w := &progress.Writer{W: &buf, Tracker: tracker}

	switch format {
	case config.FormatAGCP:
		name := batch.ArchiveNameExt(prefix, target, ".agcp")
		root := strings.TrimSuffix(name, ".agcp")
		if err := core.WriteBundle(w, core.ArchiveDir, root, batch.BundleEntries(outputs)); err != nil {
			return "", "", nil, fmt.Errorf("write bundle: %w", err)
		}
		return name, core.BundleContentType, buf.Bytes(), nil
	default:
		if _, err := core.WriteArchive(w, batch.ZipEntries(outputs)); err != nil {
			return "", "", nil, fmt.Errorf("write archive: %w", err)
		}
		return batch.ArchiveName(prefix, target), core.ZipContentType, buf.Bytes(), nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
