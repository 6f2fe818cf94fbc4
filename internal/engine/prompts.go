package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/saker-ai/akbar-server/internal/command"
)

// User-facing texts of the generation paths.
const (
	textImageDone        = "Sesuai perintah, bos. Nih gambarnya."
	textWallpaperDone    = "Wallpaper pesanan lo. Jangan bilang jelek."
	textPlaceholderDone  = "Nih, placeholder buat artikel lo yang... semoga aja menarik."
	textVideoDone        = "Nih videonya, sesuai perintah. Udah gue download-in juga buat lo, biar gak repot."
	textListenDone       = "Ini yang gue lihat:"
	textTransformDone    = "Nih, udah gue ubah sesuai maumu."
	textReimagineDone    = "Nih, versi lebih kerennya. Sama-sama."
	textReimaginePrompt  = "Imajinasi ulang gambar ini jadi sesuatu yang gak ngebosenin."
	textDescribeImage    = "Jelaskan gambar ini secara detail. Kalau ada teks, baca juga."
	textSummarizePDF     = "Ringkasin isi dokumen %q ini. Cepat, gue gak punya banyak waktu."
	textStylePicker      = "Bagus, ide yang... menarik. Sekarang pilih gaya visual buat komik lo:"
	textComicInterrupted = "Oke, oke, ganti topik. Sesi komik selesai."
	textSuggestListen    = "Gambar doang tanpa perintah? Mau gue jelasin pake suara? Pakai /dengarkan, atau kirim lagi kalau mau gue imajinasi ulang."

	textCredentialRequired = "Pembuatan video butuh Kunci API. Proses dibatalkan."
	textCredentialRetry    = "Pemilihan Kunci API dibatalkan. Coba lagi kalau sudah siap."
	textPersonaChanged     = "Gaya AI diubah. Obrolan baru dimulai."
	textHistoryCleared     = "Riwayat chat berhasil dihapus."
	textHistorySaveFailed  = "Gagal menyimpan chat. Mungkin penyimpanannya penuh."
	textPanelPromptMissing = "Prompt gambar asli tidak ditemukan. Tidak bisa membuat ulang."

	statusInit        = "Inisialisasi..."
	statusAnalyzing   = "Menganalisis gambar..."
	statusPreview     = "Membuat pratinjau..."
	statusUploading   = "Mengunggah video..."
	statusDownloading = "Mengunduh video..."
	statusProgress    = "Memproses... (%.0f%%)"
)

const fullEnhancer = "photorealistic, hyperrealistic, cinematic lighting, ultra-detailed, 8K, professional photography, award-winning, sharp focus, intricate details, masterpiece"

// qualityEnhancers maps --quality onto the descriptor suffix. Unset uses the full one.
var qualityEnhancers = map[int]string{
	1: "high quality",
	2: "detailed, sharp focus, high quality",
	3: "photorealistic, cinematic lighting, ultra-detailed, sharp focus, professional photography",
	4: fullEnhancer,
}

// imagenAspects are the ratios the image model accepts.
var imagenAspects = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// imagePrompt decorates a /gambar or comic panel prompt.
func imagePrompt(prompt string, flags *command.ImageFlags) string {
	enhancer := fullEnhancer
	style := ""
	if flags != nil {
		if e, ok := qualityEnhancers[flags.Quality]; ok {
			enhancer = e
		}
		style = flags.Style
	}
	if style != "" {
		return fmt.Sprintf("%s, in a %s style, %s", prompt, style, enhancer)
	}
	return fmt.Sprintf("%s, %s", prompt, enhancer)
}

// imageAspect picks the aspect ratio for /gambar. An explicit supported
// --aspect wins; otherwise --width and --height select the closest ratio.
func imageAspect(flags *command.ImageFlags) string {
	if flags == nil {
		return ""
	}
	for _, a := range imagenAspects {
		if flags.Aspect == a {
			return a
		}
	}
	w, errW := strconv.Atoi(strings.TrimSpace(flags.Width))
	h, errH := strconv.Atoi(strings.TrimSpace(flags.Height))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return ""
	}
	want := float64(w) / float64(h)
	best, bestDiff := "", math.MaxFloat64
	for _, a := range imagenAspects {
		var aw, ah float64
		fmt.Sscanf(a, "%g:%g", &aw, &ah)
		if diff := math.Abs(aw/ah - want); diff < bestDiff {
			best, bestDiff = a, diff
		}
	}
	return best
}

func wallpaperPrompt(prompt, aspect string) string {
	target := "desktop wallpaper"
	if aspect == "9:16" {
		target = "phone wallpaper"
	}
	return fmt.Sprintf("%s, photorealistic, hyperrealistic, professional photography, natural lighting, sharp focus, 4K quality, ultra detailed, cinematic composition, masterpiece, %s", prompt, target)
}

func placeholderPrompt(title string, f *command.PlaceholderFlags) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create a photorealistic, professional, visually stunning 16:9 placeholder image for a presentation or article. It should look like a high-resolution photograph or a hyper-realistic render, not an abstract illustration.

**Background:**
- The background should be abstract and minimalist.
- Theme: A %s color palette.
- Style: Based on %s patterns.
- It must be aesthetically pleasing but not distracting.

**Content:**`, f.Theme, f.Style)

	hasText := title != "" || f.Subtitle != ""
	if f.Icon != "" {
		fmt.Fprintf(&b, "\n- Include a sleek, abstract, minimalist icon representing %q. This icon should be subtle and integrated into the design, not a literal clipart.", f.Icon)
		if hasText {
			switch f.IconPosition {
			case "top", "bottom":
				fmt.Fprintf(&b, " The icon should be positioned %s the main text block.", f.IconPosition)
			default:
				fmt.Fprintf(&b, " The icon should be positioned to the %s of the main text block.", f.IconPosition)
			}
		}
	}
	if hasText {
		fmt.Fprintf(&b, `
- Text Alignment: The text should be aligned to the %s.
- Font: Use a clean, modern, sans-serif font like Inter or Helvetica.
- Title: Display the text %q prominently.
- Subtitle: If present, display the text %q below the title in a smaller font size.
- Readability: Ensure high contrast between the text and the background for excellent readability.`, f.Layout, title, f.Subtitle)
	} else {
		b.WriteString("\n- This is a background-only image. Do NOT include any text. Focus on creating a beautiful abstract background based on the theme and style.")
	}
	b.WriteString(`

**Crucial Instructions:**
- NO other text, watermarks, or signatures.
- The final image should look professional, clean, modern, and hyper-realistic. Aspect ratio is strictly 16:9.`)
	return b.String()
}

func videoProgressText(st VideoStatus) string {
	switch st.Phase {
	case PhaseGeneratingPreview:
		return statusPreview
	case PhaseUploadingVideo:
		return statusUploading
	default:
		return fmt.Sprintf(statusProgress, st.Progress)
	}
}
