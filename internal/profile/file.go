package profile

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileProfile is the YAML layout of a profile file.
type fileProfile struct {
	Name     string      `yaml:"name"`
	Alphabet string      `yaml:"alphabet"`
	Mode     string      `yaml:"mode"`
	Length   int         `yaml:"length,omitempty"`
	Match    [][]float32 `yaml:"match"`
}

// Decode reads a YAML profile.
func Decode(r io.Reader) (*Profile, error) {
	var fp fileProfile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fp); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	abc, err := AlphabetByName(fp.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	mode, err := ParseMode(fp.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	p := &Profile{
		Name:     fp.Name,
		M:        len(fp.Match),
		Alphabet: abc,
		MSC:      fp.Match,
		Mode:     mode,
		L:        fp.Length,
	}
	if p.L == 0 {
		p.L = DefaultLength
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}
	return p, nil
}

// Encode writes a profile as YAML.
func Encode(w io.Writer, p *Profile) error {
	fp := fileProfile{
		Name:     p.Name,
		Alphabet: p.Alphabet.Name,
		Mode:     p.Mode.String(),
		Length:   p.L,
		Match:    p.MSC,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&fp); err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return enc.Close()
}

// Load reads a profile file from disk.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, err
	}
	slog.Debug("Profile loaded", "path", path, "name", p.Name, "m", p.M, "alphabet", p.Alphabet.Name)
	return p, nil
}

// Save writes a profile file atomically (temp file + rename).
func Save(path string, p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp profile file: %w", err)
	}
	if err := Encode(f, p); err != nil {
		f.Close()
		os.Remove(tempPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp profile file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename profile file: %w", err)
	}
	return nil
}
