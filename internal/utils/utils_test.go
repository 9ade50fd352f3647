package utils

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-hub/internal/model"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeImageDownscalesWideImages(t *testing.T) {
	out, err := NormalizeImage(pngOf(t, 1600, 400))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestNormalizeImageKeepsNarrowImages(t *testing.T) {
	out, err := NormalizeImage(pngOf(t, 320, 240))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, err := NormalizeImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	u := model.User{ID: "g-123", Email: "ada@example.com", Name: "Ada"}
	tok, err := NewSessionToken("secret", u, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	got, err := ParseSessionToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestParseSessionTokenRejectsBadTokens(t *testing.T) {
	u := model.User{ID: "g-123", Email: "ada@example.com"}

	tok, err := NewSessionToken("secret", u, time.Hour)
	require.NoError(t, err)
	_, err = ParseSessionToken("other-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	expired, err := NewSessionToken("secret", u, -time.Minute)
	require.NoError(t, err)
	_, err = ParseSessionToken("secret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = ParseSessionToken("secret", "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(16)
	require.NoError(t, err)
	b, err := RandomHex(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
