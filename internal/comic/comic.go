// Package comic holds the panel-by-panel comic protocol spoken with the
// text model: its system instruction, turn prompts and structured replies.
package comic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedJSON is returned when a panel reply is not JSON.
	ErrMalformedJSON = errors.New("Sirkuit naratif gue korslet, gak bisa bikin JSON yang bener. Sesi komik batal.")
	// ErrIncompletePanel is returned when a panel reply lacks a field.
	ErrIncompletePanel = errors.New("Struktur respons komik tidak valid. Sesi komik dibatalkan.")
)

// ContinuePrompt asks the conversation for the next panel.
const ContinuePrompt = "Lanjutkan ceritanya. Berikan panel berikutnya."

// Panel is one generated panel script.
type Panel struct {
	ImagePrompt string `json:"image_prompt"`
	Narrative   string `json:"narrative"`
}

// StartPrompt is the first turn of a comic seeded with seed.
func StartPrompt(seed string) string {
	return fmt.Sprintf("Mulai ceritanya dengan: %q", seed)
}

// StyleConfirmation is the user-side message recorded when a style is picked.
func StyleConfirmation(style string) string {
	return fmt.Sprintf("Oke, gue pilih gaya %s.", style)
}

// ParsePanel decodes a structured panel reply. Both fields must be non-empty.
func ParsePanel(raw string) (Panel, error) {
	var panel Panel
	if err := json.Unmarshal([]byte(trimFence(raw)), &panel); err != nil {
		return Panel{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	panel.ImagePrompt = strings.TrimSpace(panel.ImagePrompt)
	panel.Narrative = strings.TrimSpace(panel.Narrative)
	if panel.ImagePrompt == "" || panel.Narrative == "" {
		return Panel{}, ErrIncompletePanel
	}
	return panel, nil
}

// trimFence removes a ```json fence some models wrap around JSON output.
func trimFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SystemInstruction returns the storyteller instruction for a comic drawn in style.
func SystemInstruction(style string) string {
	return `Anda adalah penulis dan ilustrator buku komik yang kreatif. Tujuan Anda adalah menceritakan sebuah kisah panel demi panel. Pengguna akan memberikan konsep cerita awal. Untuk setiap permintaan, Anda harus menghasilkan SATU panel saja. Respons Anda HARUS berupa objek JSON dengan dua kunci: "image_prompt" dan "narrative".

1. "image_prompt": deskripsi detail dan hidup untuk generator gambar. Gambarkan adegan, karakter, tindakan, emosi, dan sudut kamera, termasuk pencahayaan, tekstur, dan fokus, sehingga hasilnya terlihat seperti foto profesional atau bidikan sinematik.
2. "narrative": teks untuk panel tersebut. Bisa berupa keterangan narator, dialog karakter, atau efek suara. Buat ringkas seperti di buku komik sungguhan.

Jaga kesinambungan cerita. Ingat karakter, latar, dan alur dari panel sebelumnya. Jangan terburu-buru menyimpulkan cerita.
PENTING: Setiap "image_prompt" HARUS menyertakan deskriptor 'photorealistic, hyperrealistic, cinematic, detailed, high quality, professional photography' dan diakhiri dengan ", dalam gaya ` + style + `".`
}
