package util

import (
	"strings"
	"testing"
	"time"

	"learnhub_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "ada@example.com", Role: model.Teacher}
	user.ID = "u-1"

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, model.Teacher, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.TokenTTL().Seconds(), 5)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestValidateMimeType(t *testing.T) {
	pdf := strings.NewReader("%PDF-1.4\n%...")
	mime, err := ValidateMimeType(pdf, DocumentMimeTypes)
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mime)

	_, err = ValidateMimeType(strings.NewReader("just some text"), DocumentMimeTypes)
	assert.Error(t, err)
}

func TestMatchMimeType(t *testing.T) {
	assert.True(t, IsDocument("image/png"))
	assert.True(t, IsDocument("application/pdf"))
	assert.False(t, IsDocument("application/pdfx"))
	assert.False(t, IsDocument("text/plain; charset=utf-8"))
	assert.True(t, MatchMimeType("text/plain; charset=utf-8", []string{"text/plain"}))
}

func TestParseProbeOutput(t *testing.T) {
	out := `{"streams":[{"codec_type":"audio","codec_name":"aac"},{"codec_type":"video","codec_name":"h264","width":1280,"height":720}],
	"format":{"duration":"61.5","format_name":"mov,mp4,m4a"}}`

	info, err := ParseProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.Equal(t, "h264", info.Codec)
	assert.Equal(t, 61.5, info.Duration)
	assert.Equal(t, "mov", info.Format)

	_, err = ParseProbeOutput("not json")
	assert.Error(t, err)
}
