package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"control chars", "ab\x00c�", "abc"},
		{"collapse spaces", "a  \t b", "a b"},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"cap blank lines", "para one\n\n\n\n\npara two", "para one\n\npara two"},
		{"trim lines", "  first  \n   second", "first\nsecond"},
		{"whitespace only lines", "a\n   \n \n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestTesseractUnavailable(t *testing.T) {
	r := NewTesseract("docsum-missing-tesseract-binary", "", nil)
	err := r.Available(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, []string{"--oem", "3", "--psm", "6"}, r.ExtraArgs)
	assert.Equal(t, "eng", r.Languages)
}

func TestPdftoppmUnavailable(t *testing.T) {
	err := NewPdftoppm("docsum-missing-pdftoppm-binary").Available(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSortPageFiles(t *testing.T) {
	files := []string{"/tmp/x/page-10.png", "/tmp/x/page-2.png", "/tmp/x/page-1.png"}
	assert.Equal(t, []string{"/tmp/x/page-1.png", "/tmp/x/page-2.png", "/tmp/x/page-10.png"}, sortPageFiles(files))
	assert.Equal(t, 0, pageNumber("/tmp/x/cover.png"))
}

type fakeVision struct {
	prompt   string
	mimeType string
}

func (f *fakeVision) PromptImage(_ context.Context, prompt, mimeType string, data []byte) (string, error) {
	f.prompt = prompt
	f.mimeType = mimeType
	return "text of " + string(data), nil
}

func TestGeminiRecognizer(t *testing.T) {
	vision := &fakeVision{}
	r := NewGeminiRecognizer(vision)
	require.NoError(t, r.Available(context.Background()))

	out, err := r.Recognize(context.Background(), Image{Page: 1, Data: []byte("page1")})
	require.NoError(t, err)
	assert.Equal(t, "text of page1", out)
	assert.Equal(t, "image/png", vision.mimeType)
	assert.Contains(t, vision.prompt, "Transcribe")

	assert.ErrorIs(t, NewGeminiRecognizer(nil).Available(context.Background()), ErrUnavailable)
}
