// Package lib exposes the upgrade pipeline to programs embedding projup.
// It re-exports the pieces of the internal packages that form a stable
// surface: upgrading a set of documents and packing the results.
package lib

import (
	"context"

	"projup/pkg/batch"
	"projup/pkg/core"
	"projup/pkg/counter"
	"projup/pkg/patch"
)

// Constants for the AGCP bundle format re-exported from core
const (
	Magic   = core.Magic
	Version = core.Version
)

type (
	InputFile = batch.InputFile
	Output    = batch.Output
	Item      = batch.Item
	Result    = batch.Result
	Observer  = batch.Observer
)

var (
	ErrInvalidTarget   = batch.ErrInvalidTarget
	ErrVersionNotFound = patch.ErrVersionNotFound
	ErrArchiveTooLarge = core.ErrArchiveTooLarge
)

// Upgrade runs files through a fresh batch using the project patcher and
// returns the run result together with the final item states. store may
// be nil.
func Upgrade(ctx context.Context, files []InputFile, target string, store counter.Store) (Result, []Item, error) {
	b := batch.New(batch.Deps{Counter: store})
	for _, f := range files {
		b.Add(f)
	}
	res, err := b.Run(ctx, target)
	return res, b.Items(), err
}

// Archive packs outputs into a ZIP archive in order.
func Archive(outputs []Output) ([]byte, error) {
	return core.BuildArchive(batch.ZipEntries(outputs))
}

// Bundle packs outputs into an AGCP bundle under rootName.
func Bundle(rootName string, outputs []Output) ([]byte, error) {
	return core.BuildBundle(rootName, batch.BundleEntries(outputs))
}

// ArchiveName returns the download name for a run against target.
func ArchiveName(target string) string {
	return batch.ArchiveName(batch.DefaultArchivePrefix, target)
}
