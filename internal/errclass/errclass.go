// Package errclass turns arbitrary failures into the fixed set of user-facing
// messages shown by the chat front end.
package errclass

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/saker-ai/akbar-server/internal/comic"
)

// Category groups classified messages.
type Category string

const (
	CategorySafety          Category = "safety"
	CategoryCredential      Category = "credential"
	CategoryQuotaBilling    Category = "quota_billing"
	CategoryValidation      Category = "validation"
	CategoryFileHandling    Category = "file_handling"
	CategoryCommandLogic    Category = "command_logic"
	CategoryCorruptResponse Category = "corrupt_response"
	CategoryGeneration      Category = "generation"
	CategoryTransient       Category = "transient"
	CategoryUnknown         Category = "unknown"
)

// Message is the classified, user-facing form of a failure.
type Message struct {
	Category  Category `json:"category"`
	Text      string   `json:"text"`
	Retryable bool     `json:"retryable"`
}

const unknownError = "Terjadi kesalahan tidak diketahui."

// Fallback is returned when no rule matches.
const Fallback = "Error misterius. Entah koneksi lo, entah servernya, entah gue lagi bad mood. Cek koneksi internet lo, terus coba lagi. Kalau masih gagal, ya nasib."

type rule struct {
	any       []string
	category  Category
	retryable bool
	text      string
	// format builds the text from the original message when set.
	format func(msg string) string
}

func (r rule) matches(lower string) bool {
	for _, needle := range r.any {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func (r rule) message(msg string) Message {
	text := r.text
	if r.format != nil {
		text = r.format(msg)
	}
	return Message{Category: r.category, Text: text, Retryable: r.retryable}
}

var placeholderFlagPattern = regexp.MustCompile(`(?i) tidak valid\. Pilih dari: `)

var safetyRule = rule{
	any:      []string{"safety", "blocked"},
	category: CategorySafety,
	text:     "Whoa, ide lo terlalu liar buat sirkuit gue. Kena sensor. Coba yang lebih 'aman', kalau lo ngerti maksud gue.",
}

var videoMarkers = []string{"gagal bikin video", "gagal memproses video", "gagal memulai video"}

var videoRules = []rule{
	{
		any:      []string{"permission denied", "kunci api", "not found", "authentication"},
		category: CategoryCredential,
		text:     "Gagal bikin video. Kunci API lo bermasalah. Mungkin gak punya izin buat model ini atau salah pilih project. Coba lagi buat pilih kunci yang bener.",
		// The retry path re-prompts for a key.
		retryable: true,
	},
	{
		any:      []string{"billing"},
		category: CategoryQuotaBilling,
		text:     "Gagal bikin video. Akun Google Cloud yang terhubung sama Kunci API lo kayaknya ada masalah tagihan. Cek gih, jangan bikin gue nunggu.",
	},
	{
		any:      []string{"resource exhausted", "quota"},
		category: CategoryQuotaBilling,
		text:     "Gagal bikin video. Lo udah kebanyakan minta. Kuota lo abis. Coba lagi nanti, atau minta jatah lebih sama Google.",
	},
	{
		any:      []string{"invalid argument", "bad request"},
		category: CategoryValidation,
		text:     "Gagal bikin video. Perintah lo aneh. Entah deskripsinya yang gak nyambung atau ada yang salah sama flag yang lo pake (--aspect, --res, dll). Coba periksa lagi.",
	},
	{
		any:       []string{"deadline exceeded", "unavailable"},
		category:  CategoryTransient,
		retryable: true,
		text:      "Servernya kelamaan mikir, terus nyerah. Mungkin lagi sibuk. Coba lagi aja, siapa tau mood-nya lagi bagus.",
	},
	{
		any:       []string{"menolak unduhan video"},
		category:  CategoryTransient,
		retryable: true,
		text:      "Gue berhasil bikin videonya, tapi servernya nolak pas mau diunduh. Aneh. Coba lagi aja.",
	},
}

var videoFallback = Message{
	Category:  CategoryGeneration,
	Text:      "Gagal total bikin video. Entah servernya lagi sibuk, atau ide lo emang gak bisa divisualisasikan. Coba lagi nanti, kalau gue lagi mood.",
	Retryable: true,
}

var rules = []rule{
	{
		any:      []string{"quota", "resource exhausted"},
		category: CategoryQuotaBilling,
		text:     "Lo udah kebanyakan nanya hari ini. Jatah gratisan lo abis. Coba lagi besok, atau... ya udahlah.",
	},
	{
		any:      []string{"billing", "account inactive"},
		category: CategoryQuotaBilling,
		text:     "Ada masalah sama akun lo, kayaknya tagihannya belum dibayar. Cek akun Google Cloud lo, jangan nyusahin gue.",
	},
	{
		any:      []string{"api key not valid", "invalid api key"},
		category: CategoryCredential,
		text:     "Kunci API lo salah format. Gak valid. Coba salin lagi yang bener, jangan ngasal.",
	},
	{
		any:      []string{"gaya gambar tidak valid"},
		category: CategoryValidation,
		format: func(msg string) string {
			return "Gaya gambar salah. " + strings.Replace(msg, "Gaya gambar tidak valid. Coba salah satu dari: ", "Pilihannya cuma: ", 1)
		},
	},
	{
		any:      []string{"tema tidak valid", "gaya tidak valid", "tata letak tidak valid", "posisi ikon tidak valid"},
		category: CategoryValidation,
		format: func(msg string) string {
			loc := placeholderFlagPattern.FindStringIndex(msg)
			if loc != nil {
				msg = msg[:loc[0]] + " salah. Pilihannya: " + msg[loc[1]:]
			}
			return "Flag placeholder lo salah. " + msg + "."
		},
	},
	{
		any:      []string{"kualitas gambar tidak valid"},
		category: CategoryValidation,
		text:     "Kualitas harus antara 1 dan 4, dasar!",
	},
	{
		any:      []string{"rasio aspek tidak valid untuk wallpaper"},
		category: CategoryValidation,
		text:     "Rasio aspek wallpaper salah. Cuma bisa '16:9' (desktop) atau '9:16' (mobile). Jangan ngarang.",
	},
	{
		any:      []string{"rasio aspek video tidak valid"},
		category: CategoryValidation,
		text:     "Rasio aspek video salah. Cuma bisa '16:9' (lanskap) atau '9:16' (potret). Jangan ngarang.",
	},
	{
		any:      []string{"resolusi video tidak valid"},
		category: CategoryValidation,
		text:     "Resolusi video salah. Pilih '720p' atau '1080p'. Gak ada yang lain.",
	},
	{
		any:      []string{"kualitas video tidak valid"},
		category: CategoryValidation,
		text:     "Kualitas video salah. Pilih 'high' (standar) atau 'fast' (lebih cepat). Simpel kan?",
	},
	{
		any:      []string{"tipe file tidak didukung"},
		category: CategoryFileHandling,
		text:     "Lo pikir gue apaan, bisa baca semua jenis file? Cuma gambar sama PDF yang gue urusin. Sisanya, buang aja.",
	},
	{
		any:      []string{"file too large", "payload size"},
		category: CategoryFileHandling,
		text:     "File lo kegedean, bikin sirkuit gue panas. Kompres dulu, baru kirim lagi.",
	},
	{
		any:      []string{"pdf processing failed", "corrupt document"},
		category: CategoryFileHandling,
		text:     "PDF lo aneh. Entah rusak, dikunci, atau isinya cuma gambar. Gue gak bisa baca. Cari file yang bener.",
	},
	{
		any:      []string{"perintah /dengarkan butuh gambar"},
		category: CategoryCommandLogic,
		text:     "Woi, jenius. Perintah `/dengarkan` itu buat dengerin deskripsi GAMBAR. Mana gambarnya?",
	},
	{
		any:      []string{"hanya file gambar"},
		category: CategoryCommandLogic,
		text:     "Woi, jenius. Perintah `/gambar` itu buat BIKIN gambar, bukan buat ngerusak file aneh-aneh yang lo kasih. Kasih gue file gambar, atau jangan sama sekali.",
	},
	{
		any:       []string{"sirkuit naratif"},
		category:  CategoryCorruptResponse,
		retryable: true,
		text:      comic.ErrMalformedJSON.Error(),
	},
	{
		any:       []string{"respons komik"},
		category:  CategoryCorruptResponse,
		retryable: true,
		text:      comic.ErrIncompletePanel.Error(),
	},
	{
		any:       []string{"sirkuit auditori", "gagal menghasilkan audio"},
		category:  CategoryGeneration,
		retryable: true,
		text:      "Gagal bikin audio. Entah sirkuit suara gue lagi rusak atau gambarnya emang gak bisa dijelasin. Coba gambar lain.",
	},
	{
		any:       []string{"korteks visual", "gagal bikin gambar"},
		category:  CategoryGeneration,
		retryable: true,
		text:      "Gagal total bikin gambar. Entah sirkuit visual gue lagi ngambek atau perintah lo terlalu abstrak. Coba sederhanain deskripsinya, atau coba lagi nanti.",
	},
	{
		any:       []string{"tidak ada data gambar"},
		category:  CategoryGeneration,
		retryable: true,
		text:      "Hasilnya kosong, nihil, zonk. Gue gak bisa bikin gambar dari perintah itu. Coba ubah deskripsinya, mungkin yang lebih jelas. Jangan bikin gue mikir keras.",
	},
	{
		any:       []string{"network", "timeout", "failed to fetch", "jaringannya jelek"},
		category:  CategoryTransient,
		retryable: true,
		text:      "Koneksi internet lo jelek, atau servernya lagi lemot. Cek koneksi lo dan coba lagi. Bukan salah gue, catat itu.",
	},
	{
		any:       []string{"server error", "internal error", "unavailable"},
		category:  CategoryTransient,
		retryable: true,
		text:      "Servernya lagi nge-hang, bukan gue. Mereka juga butuh istirahat kayak manusia. Coba lagi bentar lagi.",
	},
}

// Classify maps v onto a user-facing message. v may be an error, a string,
// nil, or any JSON-encodable value. Classify never fails.
func Classify(v any) Message {
	msg := normalize(v)
	lower := strings.ToLower(msg)

	if safetyRule.matches(lower) {
		return safetyRule.message(msg)
	}
	if containsAny(lower, videoMarkers) {
		for _, r := range videoRules {
			if r.matches(lower) {
				return r.message(msg)
			}
		}
		return videoFallback
	}
	for _, r := range rules {
		if r.matches(lower) {
			return r.message(msg)
		}
	}
	return Message{Category: CategoryUnknown, Text: Fallback, Retryable: true}
}

func normalize(v any) string {
	switch x := v.(type) {
	case nil:
		return unknownError
	case error:
		return extractNested(x.Error())
	case string:
		return x
	case []byte:
		return string(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return unknownError
		}
		return string(data)
	}
}

// extractNested pulls error.message out of a JSON error body.
func extractNested(msg string) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(msg), &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return msg
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
