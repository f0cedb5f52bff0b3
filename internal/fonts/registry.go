// Package fonts manages the process-wide font registry and exposes string
// metrics for the receipt layout passes.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// FontLoadError reports font program bytes that could not be parsed.
type FontLoadError struct {
	Name string
	Err  error
}

func (e *FontLoadError) Error() string {
	return fmt.Sprintf("font %q: %v", e.Name, e.Err)
}

func (e *FontLoadError) Unwrap() error { return e.Err }

// Registry holds parsed font programs addressable by name. It is populated
// once at startup and read-only afterwards; all read paths are safe for
// concurrent use, so parallel receipt requests share one instance.
//
// Both the height estimator and the document renderer measure through the
// same registry, which is what makes their line-break decisions identical.
type Registry struct {
	mu          sync.Mutex
	defaultName string
	fonts       map[string]*entry
}

type entry struct {
	raw  []byte
	font *sfnt.Font
	// faces caches one face per point size. Face lookups go through the
	// registry mutex because a face carries an internal drawing buffer.
	faces map[float64]font.Face
}

// New creates a registry seeded with a default font, so Resolve always has
// somewhere to land even when no bundled font files are present.
func New(defaultName string, defaultTTF []byte) (*Registry, error) {
	r := &Registry{
		defaultName: defaultName,
		fonts:       make(map[string]*entry),
	}
	if err := r.Register(defaultName, defaultTTF); err != nil {
		return nil, err
	}
	return r, nil
}

// Register parses a font program and makes it addressable by name for the
// remainder of the process lifetime.
func (r *Registry) Register(name string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return &FontLoadError{Name: name, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts[name] = &entry{
		raw:   data,
		font:  f,
		faces: make(map[float64]font.Face),
	}
	return nil
}

// LoadDir registers every .ttf and .otf file in dir under its base name
// (DejaVuSans.ttf becomes "DejaVuSans"). Missing directories and unreadable
// or invalid files leave those fonts absent rather than failing startup; the
// names that did register are returned.
func (r *Registry) LoadDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var loaded []string
	for _, de := range entries {
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if de.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))
		if err := r.Register(name, data); err != nil {
			continue
		}
		loaded = append(loaded, name)
	}
	return loaded
}

// Resolve returns the requested name if registered, else the default. It
// never fails; an unknown font silently falls back.
func (r *Registry) Resolve(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fonts[name]; ok {
		return name
	}
	return r.defaultName
}

// DefaultName returns the fallback font name.
func (r *Registry) DefaultName() string { return r.defaultName }

// Names returns the registered font names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.fonts))
	for n := range r.fonts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Measure returns the rendered width of text in points for the named font
// at the given size. It is a pure function of its inputs: calling it from
// the estimator and from the renderer with the same arguments yields the
// same width. Unknown fonts measure with the default.
func (r *Registry) Measure(text, name string, size float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	face, err := r.faceLocked(name, size)
	if err != nil {
		return 0
	}
	return float64(font.MeasureString(face, text)) / 64
}

// Bytes returns the raw font program for embedding into a document, or nil
// for unknown names.
func (r *Registry) Bytes(name string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.fonts[name]
	if !ok {
		return nil
	}
	return e.raw
}

// Face returns a rasterizable face at the given point size, falling back to
// the default font for unknown names. The face is freshly built on every
// call: faces carry drawing buffers, and the cached ones only ever get used
// under the registry mutex by Measure.
func (r *Registry) Face(name string, size float64) (font.Face, error) {
	r.mu.Lock()
	e, ok := r.fonts[name]
	if !ok {
		e, ok = r.fonts[r.defaultName]
	}
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no default font registered")
	}

	return opentype.NewFace(e.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func (r *Registry) faceLocked(name string, size float64) (font.Face, error) {
	e, ok := r.fonts[name]
	if !ok {
		e, ok = r.fonts[r.defaultName]
		if !ok {
			return nil, fmt.Errorf("no default font registered")
		}
	}
	if face, ok := e.faces[size]; ok {
		return face, nil
	}

	// DPI 72 makes one pixel equal one point, and unhinted advances keep
	// measurement independent of any rasterizer state.
	face, err := opentype.NewFace(e.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	e.faces[size] = face
	return face, nil
}
