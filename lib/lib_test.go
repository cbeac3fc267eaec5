package lib

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projup/pkg/codec"
	"projup/pkg/core"
)

func TestUpgradeAndArchive(t *testing.T) {
	doc, err := codec.Compress(`<Project ObjectID="1" ClassID="c" Version="40">`)
	require.NoError(t, err)

	res, items, err := Upgrade(context.Background(), []InputFile{
		{Name: "a.prproj", Data: doc},
		{Name: "b.prproj", Data: []byte("junk")},
	}, "43", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	require.Len(t, items, 2)
	assert.Equal(t, "40", items[0].DetectedVersion)
	assert.NotEmpty(t, items[1].ErrorDetail)

	data, err := Archive(res.Outputs)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "a_upgraded_v43.prproj", zr.File[0].Name)

	bundle, err := Bundle("set", res.Outputs)
	require.NoError(t, err)
	hdr, entries, err := core.ReadBundle(bundle)
	require.NoError(t, err)
	assert.Equal(t, "set", hdr.RootName)
	require.Len(t, entries, 1)
	assert.Equal(t, res.Outputs[0].Data, entries[0].Data)

	assert.Equal(t, "upgraded_projects_v43.zip", ArchiveName("43"))
}

func TestUpgradeInvalidTarget(t *testing.T) {
	_, items, err := Upgrade(context.Background(), []InputFile{{Name: "a"}}, "x", nil)
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, "pending", string(items[0].Status))
}
