// Package skills loads zen's workflow skill templates.
//
// A skill is a markdown file with YAML frontmatter (name, description,
// tools, trigger) describing a reusable workflow the host model follows —
// e.g. "pre-commit validation" chaining validator, autotest, and
// codereview. Default skills ship embedded; users override or extend
// them by dropping files into <data dir>/skills/.
package skills

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
)

//go:embed templates/*.md
var defaultSkills embed.FS

// Meta is the YAML frontmatter every skill file must carry.
type Meta struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools"`
	Trigger     string   `yaml:"trigger"`
}

// Skill is a parsed skill: frontmatter plus the instruction body.
type Skill struct {
	Meta
	Body   string
	Source string // "embedded" or the user file path
}

// Load returns all skills: the embedded defaults, with user skills from
// userDir layered on top (a user skill with the same name replaces the
// default). userDir may be empty or missing.
func Load(userDir string) ([]Skill, error) {
	byName := map[string]Skill{}

	if err := loadEmbedded(byName); err != nil {
		return nil, err
	}
	if userDir != "" {
		if err := loadUserDir(userDir, byName); err != nil {
			return nil, err
		}
	}

	out := make([]Skill, 0, len(byName))
	for _, s := range byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func loadEmbedded(byName map[string]Skill) error {
	return fs.WalkDir(defaultSkills, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := defaultSkills.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("skills: read embedded %s: %w", path, readErr)
		}
		skill, parseErr := parse(data, "embedded")
		if parseErr != nil {
			return fmt.Errorf("skills: embedded %s: %w", path, parseErr)
		}
		byName[skill.Name] = skill
		return nil
	})
}

// loadUserDir parses user skill files. Malformed files are skipped, not
// fatal — a broken user skill must not take the server down.
func loadUserDir(dir string, byName map[string]Skill) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("skills: read user dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		skill, parseErr := parse(data, path)
		if parseErr != nil {
			continue
		}
		byName[skill.Name] = skill
	}
	return nil
}

// parse extracts frontmatter and body from a skill file.
func parse(data []byte, source string) (Skill, error) {
	var meta Meta
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return Skill{}, fmt.Errorf("no valid frontmatter: %w", err)
	}
	if strings.TrimSpace(meta.Name) == "" {
		return Skill{}, fmt.Errorf("frontmatter is missing 'name'")
	}
	if strings.TrimSpace(meta.Description) == "" {
		return Skill{}, fmt.Errorf("frontmatter is missing 'description'")
	}
	return Skill{
		Meta:   meta,
		Body:   strings.TrimSpace(string(body)),
		Source: source,
	}, nil
}

// Catalog renders a markdown listing of the given skills, used by the
// zen://skills resource.
func Catalog(list []Skill) string {
	if len(list) == 0 {
		return "No skills available.\n"
	}
	var sb strings.Builder
	sb.WriteString("# zen Skills\n\n")
	for _, s := range list {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Name, s.Description)
		if len(s.Tools) > 0 {
			fmt.Fprintf(&sb, "Tools: %s\n\n", strings.Join(s.Tools, ", "))
		}
		if s.Trigger != "" {
			fmt.Fprintf(&sb, "Trigger: %s\n\n", s.Trigger)
		}
	}
	return sb.String()
}
