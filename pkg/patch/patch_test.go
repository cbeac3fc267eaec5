package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8" ?>
<PremiereData Version="3">
	<Project ObjectRef="1"/>
	<Project ObjectID="1" ClassID="62ad66dd-0dcd-42da-a660-6d8fbde94876" Version="40">
		<Node Version="12"/>
	</Project>
</PremiereData>
`

func TestDetect(t *testing.T) {
	v, err := Default().Detect(sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, "40", v)
}

func TestPatchRewritesFirstMatchOnly(t *testing.T) {
	doc := sampleDoc + `<Project ObjectID="9" Version="41">`

	out, err := Default().Patch(doc, "43")
	require.NoError(t, err)

	want := strings.Replace(doc,
		`<Project ObjectID="1" ClassID="62ad66dd-0dcd-42da-a660-6d8fbde94876" Version="40">`,
		`<Project ObjectID="1" ClassID="62ad66dd-0dcd-42da-a660-6d8fbde94876" Version="43">`, 1)
	assert.Equal(t, want, out)
	assert.True(t, strings.HasSuffix(out, `<Project ObjectID="9" Version="41">`))
}

func TestPatchRebuildsTagWithFixedAttributes(t *testing.T) {
	doc := "head<Project Version=\"38\" Extra=\"x\">tail"

	out, err := Default().Patch(doc, "43")
	require.NoError(t, err)
	assert.Equal(t,
		`head<Project ObjectID="1" ClassID="62ad66dd-0dcd-42da-a660-6d8fbde94876" Version="43">tail`,
		out)
}

func TestPatchTwiceKeepsSurroundingContent(t *testing.T) {
	p := Default()
	once, err := p.Patch(sampleDoc, "41")
	require.NoError(t, err)
	twice, err := p.Patch(once, "43")
	require.NoError(t, err)

	v, err := p.Detect(twice)
	require.NoError(t, err)
	assert.Equal(t, "43", v)

	direct, err := p.Patch(sampleDoc, "43")
	require.NoError(t, err)
	assert.Equal(t, direct, twice)
}

func TestPatchNotFound(t *testing.T) {
	docs := []string{
		"",
		"<PremiereData Version=\"3\"></PremiereData>",
		"<Project ObjectID=\"1\">",
		"<Project Version=\"abc\">",
		"<ProjectSettings Version=\"4\">",
	}
	for _, doc := range docs {
		_, err := Default().Patch(doc, "43")
		assert.ErrorIs(t, err, ErrVersionNotFound, "doc %q", doc)

		_, err = Default().Detect(doc)
		assert.ErrorIs(t, err, ErrVersionNotFound, "doc %q", doc)
	}
}

func TestPatchInvalidVersion(t *testing.T) {
	for _, v := range []string{"", "4.3", "v43", " 43"} {
		_, err := Default().Patch(sampleDoc, v)
		assert.ErrorIs(t, err, ErrInvalidVersion)
	}
}

func TestCustomElement(t *testing.T) {
	p, err := New("Ableton", []Attr{{Name: "MajorVersion", Value: "5"}})
	require.NoError(t, err)

	out, err := p.Patch(`<Ableton MajorVersion="5" Version="11" Creator="x">`, "12")
	require.NoError(t, err)
	assert.Equal(t, `<Ableton MajorVersion="5" Version="12">`, out)

	_, err = New("", nil)
	require.Error(t, err)
}

func TestValidVersion(t *testing.T) {
	assert.True(t, ValidVersion("0"))
	assert.True(t, ValidVersion("43"))
	assert.False(t, ValidVersion(""))
	assert.False(t, ValidVersion("-1"))
	assert.False(t, ValidVersion("٤٣"))
}
