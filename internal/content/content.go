// Package content holds the static data the portfolio page renders.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidContent is wrapped by Validate failures.
var ErrInvalidContent = errors.New("invalid site content")

type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

type Profile struct {
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Tagline  string `yaml:"tagline"`
	Email    string `yaml:"email"`
	Location string `yaml:"location"`
	Links    []Link `yaml:"links"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tech        []string `yaml:"tech"`
	Repo        string   `yaml:"repo"`
	Demo        string   `yaml:"demo"`
	Featured    bool     `yaml:"featured"`
}

type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"` // 0-100
}

type SkillGroup struct {
	Category string  `yaml:"category"`
	Skills   []Skill `yaml:"skills"`
}

// TimelineEntry is a job or a qualification.
type TimelineEntry struct {
	Kind         string   `yaml:"kind"` // work | education
	Title        string   `yaml:"title"`
	Organization string   `yaml:"organization"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Logo         string   `yaml:"logo"`
	Highlights   []string `yaml:"highlights"`
}

// Section is one anchor of the single-page layout.
type Section struct {
	ID    string
	Label string
}

// Sections lists the page anchors in navigation order.
var Sections = []Section{
	{ID: "home", Label: "Home"},
	{ID: "about", Label: "About"},
	{ID: "projects", Label: "Projects"},
	{ID: "skills", Label: "Skills"},
	{ID: "timeline", Label: "Timeline"},
	{ID: "contact", Label: "Contact"},
}

// Site is everything the page shows.
type Site struct {
	Profile  Profile         `yaml:"profile"`
	About    []string        `yaml:"about"`
	Projects []Project       `yaml:"projects"`
	Skills   []SkillGroup    `yaml:"skills"`
	Timeline []TimelineEntry `yaml:"timeline"`
}

// Featured returns the featured projects, or all of them if none is marked.
func (s Site) Featured() []Project {
	var out []Project
	for _, p := range s.Projects {
		if p.Featured {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return s.Projects
	}
	return out
}

// TimelineOf filters the timeline by kind, keeping file order.
func (s Site) TimelineOf(kind string) []TimelineEntry {
	var out []TimelineEntry
	for _, e := range s.Timeline {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Default returns the embedded site content.
func Default() Site {
	site, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded content: %v", err))
	}
	return site
}

// Parse decodes and validates YAML content.
func Parse(data []byte) (Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return Site{}, fmt.Errorf("parse content: %w", err)
	}
	if err := site.Validate(); err != nil {
		return Site{}, err
	}
	return site, nil
}

// Load reads content from path, or the embedded default when path is empty.
func Load(path string) (Site, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("read content %s: %w", path, err)
	}
	return Parse(data)
}

func (s Site) Validate() error {
	if s.Profile.Name == "" {
		return fmt.Errorf("%w: profile.name is required", ErrInvalidContent)
	}
	for i, p := range s.Projects {
		if p.Title == "" {
			return fmt.Errorf("%w: projects[%d].title is required", ErrInvalidContent, i)
		}
	}
	for _, g := range s.Skills {
		for _, sk := range g.Skills {
			if sk.Level < 0 || sk.Level > 100 {
				return fmt.Errorf("%w: skill %q level %d out of range 0-100", ErrInvalidContent, sk.Name, sk.Level)
			}
		}
	}
	for i, e := range s.Timeline {
		if e.Kind != "work" && e.Kind != "education" {
			return fmt.Errorf("%w: timeline[%d].kind must be work or education", ErrInvalidContent, i)
		}
	}
	return nil
}

// Library holds the current Site and lets a watcher swap it.
type Library struct {
	mu   sync.RWMutex
	site Site
}

func NewLibrary(site Site) *Library {
	return &Library{site: site}
}

func (l *Library) Site() Site {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.site
}

func (l *Library) Replace(site Site) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.site = site
}
