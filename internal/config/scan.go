package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PersonaFile is a persona override read from personas_dir.
type PersonaFile struct {
	Filename          string `yaml:"-"`
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	SystemInstruction string `yaml:"system_instruction"`
}

type personaFilePayload struct {
	Persona PersonaFile `yaml:"persona"`
}

// ScanPersonas reads every *.yaml persona file below dir, sorted by filename.
// A missing dir yields no personas.
func ScanPersonas(dir string) ([]PersonaFile, error) {
	personas := []PersonaFile{}
	if dir == "" {
		return personas, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return personas, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d == nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".yaml") && !strings.HasSuffix(d.Name(), ".yml") {
			return nil
		}
		persona, err := ReadPersonaFile(path)
		if err != nil {
			return err
		}
		personas = append(personas, persona)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(personas, func(i, j int) bool {
		return personas[i].Filename < personas[j].Filename
	})
	return personas, nil
}

// ReadPersonaFile parses a single persona yaml file. The id defaults to the file's base name.
func ReadPersonaFile(path string) (PersonaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PersonaFile{}, err
	}
	var payload personaFilePayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return PersonaFile{}, err
	}
	persona := payload.Persona
	persona.Filename = filepath.Base(path)
	if persona.ID == "" {
		persona.ID = strings.TrimSuffix(persona.Filename, filepath.Ext(persona.Filename))
	}
	persona.ID = strings.ToLower(strings.TrimSpace(persona.ID))
	if persona.Name == "" {
		persona.Name = persona.ID
	}
	return persona, nil
}
