package errclass

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saker-ai/akbar-server/internal/comic"
)

func TestClassifyRules(t *testing.T) {
	cases := []struct {
		name     string
		in       any
		category Category
		contains string
	}{
		{"safety", errors.New("response blocked by SAFETY filter"), CategorySafety, "Kena sensor"},
		{"video credential", errors.New("Gagal memproses video. Kunci API yang dipilih mungkin tidak valid"), CategoryCredential, "Kunci API lo bermasalah"},
		{"video not found", errors.New("Gagal memulai video: 404 NOT_FOUND: entity not found"), CategoryCredential, "Kunci API lo bermasalah"},
		{"video billing", errors.New("Gagal memulai video: billing disabled"), CategoryQuotaBilling, "masalah tagihan"},
		{"video quota", errors.New("Gagal bikin video: quota exceeded"), CategoryQuotaBilling, "Kuota lo abis"},
		{"video invalid", errors.New("Gagal memulai video: INVALID ARGUMENT"), CategoryValidation, "Perintah lo aneh"},
		{"video timeout", errors.New("Gagal memproses video: deadline exceeded"), CategoryTransient, "kelamaan mikir"},
		{"video download", errors.New("Gagal bikin video. Server menolak unduhan video (status: 403)."), CategoryTransient, "nolak pas mau diunduh"},
		{"video generic", errors.New("Gagal bikin video. Server tidak memberikan hasil."), CategoryGeneration, "Gagal total bikin video"},
		{"quota", errors.New("RESOURCE EXHAUSTED"), CategoryQuotaBilling, "Jatah gratisan"},
		{"billing", "account inactive", CategoryQuotaBilling, "tagihannya belum dibayar"},
		{"api key", errors.New("API key not valid. Please pass a valid API key."), CategoryCredential, "salah format"},
		{"image quality", errors.New("Kualitas gambar tidak valid. Pilih dari: 1, 2, 3, 4"), CategoryValidation, "antara 1 dan 4"},
		{"wallpaper aspect", errors.New("Rasio aspek tidak valid untuk wallpaper. Pilih '16:9' (desktop) atau '9:16' (mobile)."), CategoryValidation, "Rasio aspek wallpaper salah"},
		{"video aspect", errors.New("Rasio aspek video tidak valid. Pilih dari: 16:9, 9:16"), CategoryValidation, "Rasio aspek video salah"},
		{"video res", errors.New("Resolusi video tidak valid. Pilih dari: 720p, 1080p"), CategoryValidation, "720p"},
		{"video quality", errors.New("Kualitas video tidak valid. Pilih dari: high, fast"), CategoryValidation, "'fast'"},
		{"file type", errors.New("Tipe file tidak didukung."), CategoryFileHandling, "Cuma gambar sama PDF"},
		{"file size", errors.New("file too large"), CategoryFileHandling, "kegedean"},
		{"pdf", errors.New("PDF processing failed"), CategoryFileHandling, "PDF lo aneh"},
		{"listen", errors.New("Perintah /dengarkan butuh gambar."), CategoryCommandLogic, "Mana gambarnya"},
		{"image only", errors.New("hanya file gambar yang bisa diubah"), CategoryCommandLogic, "BIKIN gambar"},
		{"comic json", fmt.Errorf("%w: unexpected end", comic.ErrMalformedJSON), CategoryCorruptResponse, "Sirkuit naratif"},
		{"comic fields", comic.ErrIncompletePanel, CategoryCorruptResponse, "Sesi komik dibatalkan"},
		{"audio", errors.New("Gagal menghasilkan audio."), CategoryGeneration, "Gagal bikin audio"},
		{"image", errors.New("Korteks visual gue error"), CategoryGeneration, "Gagal total bikin gambar"},
		{"empty image", errors.New("Tidak ada data gambar dalam respons."), CategoryGeneration, "zonk"},
		{"network", errors.New("Failed to fetch"), CategoryTransient, "Koneksi internet lo jelek"},
		{"server", errors.New("500 internal error"), CategoryTransient, "nge-hang"},
		{"unknown", errors.New("something odd"), CategoryUnknown, "Error misterius"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in)
			assert.Equal(t, tc.category, got.Category)
			assert.Contains(t, got.Text, tc.contains)
		})
	}
}

func TestClassifyVideoQuotaBeatsGeneralQuota(t *testing.T) {
	got := Classify(errors.New("Gagal memulai video: quota exceeded for model"))
	assert.Equal(t, "Gagal bikin video. Lo udah kebanyakan minta. Kuota lo abis. Coba lagi nanti, atau minta jatah lebih sama Google.", got.Text)
}

func TestClassifySafetyFirst(t *testing.T) {
	got := Classify(errors.New("Gagal bikin video: prompt blocked"))
	assert.Equal(t, CategorySafety, got.Category)
}

func TestClassifyImageStyleReformat(t *testing.T) {
	got := Classify(errors.New("Gaya gambar tidak valid. Coba salah satu dari: anime, cartoon"))
	assert.Equal(t, "Gaya gambar salah. Pilihannya cuma: anime, cartoon", got.Text)
}

func TestClassifyPlaceholderReformat(t *testing.T) {
	got := Classify(errors.New("Tema tidak valid. Pilih dari: dark, light"))
	assert.Equal(t, "Flag placeholder lo salah. Tema salah. Pilihannya: dark, light.", got.Text)
}

func TestClassifyNestedJSON(t *testing.T) {
	got := Classify(errors.New(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	assert.Equal(t, CategoryQuotaBilling, got.Category)
	assert.False(t, got.Retryable)
}

func TestClassifyIsTotal(t *testing.T) {
	for _, in := range []any{nil, "", 42, map[string]any{"x": 1}, []byte("network down"), func() {}} {
		got := Classify(in)
		assert.NotEmpty(t, got.Text)
	}
	assert.Equal(t, CategoryTransient, Classify([]byte("network down")).Category)
	assert.Equal(t, Fallback, Classify(nil).Text)
}
