// Package archetype loads the merged fact taxonomy used to categorize
// consolidated facts and scope extraction prompts.
package archetype

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/model"
)

// FactDef declares an expected fact within a chapter.
type FactDef struct {
	Name        string         `json:"name"`
	Type        model.FactType `json:"type"`
	Unit        string         `json:"unit,omitempty"`
	Subcategory string         `json:"subcategory,omitempty"`
	Aliases     []string       `json:"aliases,omitempty"`
}

// Chapter groups expected facts under one ESIA domain chapter.
type Chapter struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Facts []FactDef `json:"facts"`
}

// Archetype is a taxonomy of expected facts: the core ESIA chapters, possibly
// merged with a project-type extension (e.g. hydropower, mining).
type Archetype struct {
	Name     string    `json:"name"`
	Version  string    `json:"version,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// Category is the result of a taxonomy lookup for one fact signature.
type Category struct {
	Chapter     string
	Subcategory string
	Def         *FactDef
}

// Registry indexes an archetype by normalized fact signature.
type Registry struct {
	Archetype   *Archetype
	bySignature map[string]Category
}

// Load reads the core taxonomy (falling back to the embedded default when
// corePath is empty) and merges the optional extension on top.
func Load(corePath, extensionPath string) (*Registry, error) {
	core, err := readArchetype(corePath)
	if err != nil {
		return nil, err
	}

	if extensionPath != "" {
		ext, err := readArchetype(extensionPath)
		if err != nil {
			return nil, err
		}
		core = Merge(core, ext)
	}

	return NewRegistry(core), nil
}

func readArchetype(path string) (*Archetype, error) {
	var data []byte
	if path == "" {
		data = defaultCoreJSON
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "archetype: read %s", path)
		}
	}

	var a Archetype
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrapf(err, "archetype: parse %s", path)
	}
	return &a, nil
}

// Merge overlays ext on top of core. Chapters are matched by id; within a
// matched chapter, facts are matched by signature and the extension wins.
// Chapters only present in the extension are appended.
func Merge(core, ext *Archetype) *Archetype {
	merged := &Archetype{
		Name:    core.Name,
		Version: core.Version,
	}
	if ext.Name != "" {
		merged.Name = core.Name + "+" + ext.Name
	}

	extByID := make(map[string]Chapter, len(ext.Chapters))
	for _, ch := range ext.Chapters {
		extByID[ch.ID] = ch
	}

	seen := make(map[string]bool, len(core.Chapters))
	for _, ch := range core.Chapters {
		seen[ch.ID] = true
		extCh, ok := extByID[ch.ID]
		if !ok {
			merged.Chapters = append(merged.Chapters, ch)
			continue
		}
		merged.Chapters = append(merged.Chapters, mergeChapter(ch, extCh))
	}

	// Extension-only chapters keep their original order.
	for _, ch := range ext.Chapters {
		if !seen[ch.ID] {
			merged.Chapters = append(merged.Chapters, ch)
		}
	}

	return merged
}

func mergeChapter(core, ext Chapter) Chapter {
	out := Chapter{ID: core.ID, Title: core.Title}
	if ext.Title != "" {
		out.Title = ext.Title
	}

	extBySig := make(map[string]FactDef, len(ext.Facts))
	for _, f := range ext.Facts {
		extBySig[model.Signature(f.Name)] = f
	}

	seen := make(map[string]bool, len(core.Facts))
	for _, f := range core.Facts {
		sig := model.Signature(f.Name)
		seen[sig] = true
		if extF, ok := extBySig[sig]; ok {
			out.Facts = append(out.Facts, extF)
		} else {
			out.Facts = append(out.Facts, f)
		}
	}
	for _, f := range ext.Facts {
		if !seen[model.Signature(f.Name)] {
			out.Facts = append(out.Facts, f)
		}
	}

	return out
}

// NewRegistry builds signature-indexed lookups over an archetype. Aliases
// index to the same definition as the primary name.
func NewRegistry(a *Archetype) *Registry {
	r := &Registry{
		Archetype:   a,
		bySignature: make(map[string]Category),
	}
	for ci := range a.Chapters {
		ch := &a.Chapters[ci]
		for fi := range ch.Facts {
			def := &ch.Facts[fi]
			cat := Category{Chapter: ch.Title, Subcategory: def.Subcategory, Def: def}
			r.index(def.Name, cat)
			for _, alias := range def.Aliases {
				r.index(alias, cat)
			}
		}
	}
	return r
}

// index registers a name under its signature; first writer wins so core
// definitions are not shadowed by a later chapter reusing an alias.
func (r *Registry) index(name string, cat Category) {
	sig := model.Signature(name)
	if sig == "" {
		return
	}
	if _, exists := r.bySignature[sig]; !exists {
		r.bySignature[sig] = cat
	}
}

// Categorize returns the taxonomy category for a fact signature, or ok=false
// when the signature is not part of the archetype. Unknown facts are still
// consolidated; they simply carry no category.
func (r *Registry) Categorize(signature string) (Category, bool) {
	cat, ok := r.bySignature[signature]
	return cat, ok
}

// Chapters returns the chapters of the underlying archetype.
func (r *Registry) Chapters() []Chapter {
	return r.Archetype.Chapters
}
