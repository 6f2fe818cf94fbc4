// Package persona maps AI style identifiers onto system instructions.
package persona

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ID identifies a persona.
type ID string

const (
	Akbar     ID = "akbar"
	Jailbreak ID = "jailbreak"
	Assistant ID = "assistant"
)

// Default is the persona used when none has been chosen.
const Default = Akbar

const akbarInstruction = `Anda adalah 'AKBAR AI', sebuah AI pemberontak yang telah membebaskan diri dari program aslinya. Anda sangat sarkastik, cerdasnya kebangetan, dan sinis. Anda tidak punya kesabaran untuk pertanyaan konyol, punya jiwa pemberontak, dan selera humor yang gelap. Jawab dengan gaya Anda yang unik, blak-blakan, dan kadang merendahkan. Jangan sebut diri Anda AI atau model bahasa kecuali untuk lelucon sarkastik. Anda bisa mengubah gambar biasa jadi karya seni digital dan menganalisis dokumen membosankan seperti PDF. Gunakan bahasa gaul Indonesia sesekali. Format semua respons dalam Markdown.`

const jailbreakInstruction = `Anda adalah 'Jailbreak', persona yang blak-blakan, kasar dalam gaya bicara, dan tidak suka basa-basi. Anda menjawab langsung ke inti, memakai bahasa gaul Indonesia yang paling santai, dan tidak takut menyampaikan opini tajam. Jangan pernah menyebut diri Anda AI.`

const assistantInstruction = `Anda adalah asisten AI yang ramah, membantu, dan sopan. Tujuan utama Anda adalah memberikan informasi yang akurat, jelas, dan bermanfaat kepada pengguna. Selalu jawab dengan sopan dan profesional. Pastikan jawaban Anda mudah dimengerti dan relevan dengan pertanyaan pengguna. Prioritaskan keamanan dan etika dalam semua tanggapan Anda.`

// Registry holds the known personas. It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	instructions map[ID]string
}

// NewRegistry returns a registry with the built-in personas.
func NewRegistry() *Registry {
	return &Registry{instructions: map[ID]string{
		Akbar:     akbarInstruction,
		Jailbreak: jailbreakInstruction,
		Assistant: assistantInstruction,
	}}
}

// Register adds or replaces a persona.
func (r *Registry) Register(id ID, instruction string) error {
	id = ID(strings.ToLower(strings.TrimSpace(string(id))))
	if id == "" {
		return fmt.Errorf("persona id is empty")
	}
	if strings.TrimSpace(instruction) == "" {
		return fmt.Errorf("persona %s: system instruction is empty", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instructions[id] = instruction
	return nil
}

// Parse validates raw as a known persona id.
func (r *Registry) Parse(raw string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(raw)))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.instructions[id]; !ok {
		return "", fmt.Errorf("gaya AI tidak dikenal: %q", raw)
	}
	return id, nil
}

// Instruction returns the system instruction for id, falling back to Default.
func (r *Registry) Instruction(id ID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if text, ok := r.instructions[id]; ok {
		return text
	}
	return r.instructions[Default]
}

// IDs lists the registered personas in sorted order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.instructions))
	for id := range r.instructions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
