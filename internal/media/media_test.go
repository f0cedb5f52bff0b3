package media

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveImage(t *testing.T) {
	s := testStore(t)

	name, err := s.SaveImage("photo.PNG", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(name, ".png"), "extension lowercased: %q", name)
	assert.NotContains(t, name, "photo", "stored name must not reuse the upload name")

	_, err = os.Stat(s.Path(name))
	assert.NoError(t, err)

	thumb, err := imagingOpenSize(s.Path("thumb_" + name))
	require.NoError(t, err, "thumbnail should exist")
	assert.Equal(t, 400, thumb.Dx())
}

func imagingOpenSize(path string) (image.Rectangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Rectangle{}, err
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return image.Rectangle{}, err
	}
	return image.Rect(0, 0, cfg.Width, cfg.Height), nil
}

func TestSaveImage_RejectsUnknownExtension(t *testing.T) {
	s := testStore(t)

	_, err := s.SaveImage("payload.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.SaveImage("clip.mp4", strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrUnsupportedType, "video extensions are not images")
}

func TestSaveImage_UndecodableKeepsFile(t *testing.T) {
	s := testStore(t)

	name, err := s.SaveImage("broken.png", strings.NewReader("not a png"))
	require.NoError(t, err)

	_, err = os.Stat(s.Path(name))
	assert.NoError(t, err, "original survives a failed thumbnail")
	_, err = os.Stat(s.Path("thumb_" + name))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveVideo(t *testing.T) {
	s := testStore(t)

	name, err := s.SaveVideo("clip.MOV", strings.NewReader("fake video"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".mov"))

	_, err = s.SaveVideo("page.html", strings.NewReader("<html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestRemove(t *testing.T) {
	s := testStore(t)

	name, err := s.SaveImage("a.png", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	s.Remove(name, "", "never_existed.png")

	_, err = os.Stat(s.Path(name))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(s.Path("thumb_" + name))
	assert.True(t, os.IsNotExist(err))
}

func TestPath_StripsTraversal(t *testing.T) {
	s := testStore(t)

	p := s.Path("../../etc/passwd")
	assert.Equal(t, filepath.Join(s.Dir(), "passwd"), p)
}

func TestUniqueNames(t *testing.T) {
	s := testStore(t)

	a, err := s.SaveVideo("x.mp4", strings.NewReader("1"))
	require.NoError(t, err)
	b, err := s.SaveVideo("x.mp4", strings.NewReader("2"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
