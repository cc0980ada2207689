package template

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"decoyd/internal/models"
)

// RootFileName is the root template document inside a template directory.
const RootFileName = "template.xml"

// NotAvailable is rendered for metadata fields the template does not set.
const NotAvailable = "not available"

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateInvalid  = errors.New("template invalid")
)

// ValidationError lists the schema violations of one template document.
type ValidationError struct {
	Path       string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d violation(s): %s", e.Path, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrTemplateInvalid }

/**
 * Resolved root template
 * @property {string} Root - Template directory, sub-templates live beneath it
 * @property {TemplateMeta} Meta - Descriptive metadata for humans
 * @property {map} Databus - Seed values for the shared state store
 * @description Parsed once at startup and immutable thereafter; the
 * planners borrow it read-only.
 */
type Template struct {
	Root    string
	Meta    models.TemplateMeta
	Databus map[string]string
}

type rootDoc struct {
	XMLName     xml.Name `xml:"template"`
	Unit        string   `xml:"unit"`
	Vendor      string   `xml:"vendor"`
	Description string   `xml:"description"`
	Protocols   string   `xml:"protocols"`
	Creator     string   `xml:"creator"`
	Databus     struct {
		Keys []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"key"`
	} `xml:"databus"`
}

/**
 * Resolve a template by name or path
 * @param {string} nameOrPath - Explicit directory containing template.xml,
 * or the name of a subdirectory under the built-in templates root
 * @param {string} templatesRoot - Built-in templates root directory
 * @returns {*Template} Parsed, validated template
 * @returns {error} ErrTemplateNotFound if neither location resolves,
 * ErrTemplateInvalid (with violation list) if validation fails
 * @description Checked in order: explicit path first, then the named
 * subdirectory. No state is mutated.
 */
func Resolve(nameOrPath, templatesRoot string) (*Template, error) {
	dir, err := locate(nameOrPath, templatesRoot)
	if err != nil {
		return nil, err
	}
	return load(dir)
}

func locate(nameOrPath, templatesRoot string) (string, error) {
	if hasRootFile(nameOrPath) {
		return nameOrPath, nil
	}
	named := filepath.Join(templatesRoot, nameOrPath)
	if hasRootFile(named) {
		return named, nil
	}
	return "", fmt.Errorf("%w: %q is neither a template directory nor a template under %s",
		ErrTemplateNotFound, nameOrPath, templatesRoot)
}

func hasRootFile(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, RootFileName))
	return err == nil && info.Mode().IsRegular()
}

func load(dir string) (*Template, error) {
	path := filepath.Join(dir, RootFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read root template: %w", err)
	}

	var doc rootDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Path: path, Violations: []string{err.Error()}}
	}

	var violations []string
	bus := make(map[string]string, len(doc.Databus.Keys))
	for _, k := range doc.Databus.Keys {
		name := strings.TrimSpace(k.Name)
		if name == "" {
			violations = append(violations, "databus key with empty name")
			continue
		}
		if _, dup := bus[name]; dup {
			violations = append(violations, fmt.Sprintf("duplicate databus key %q", name))
			continue
		}
		bus[name] = strings.TrimSpace(k.Value)
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Path: path, Violations: violations}
	}

	return &Template{
		Root:    dir,
		Meta:    metaFromDoc(filepath.Base(dir), &doc),
		Databus: bus,
	}, nil
}

func metaFromDoc(name string, doc *rootDoc) models.TemplateMeta {
	return models.TemplateMeta{
		Name:        name,
		Unit:        orNotAvailable(doc.Unit),
		Vendor:      orNotAvailable(doc.Vendor),
		Description: orNotAvailable(doc.Description),
		Protocols:   orNotAvailable(doc.Protocols),
		Creator:     orNotAvailable(doc.Creator),
	}
}

func orNotAvailable(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotAvailable
	}
	return s
}

/**
 * List metadata of every template under the built-in templates root
 * @returns {[]TemplateMeta} One entry per subdirectory containing a root
 * template file, sorted by name
 * @description Read-only reporting path. Subdirectories whose root
 * template fails to parse are skipped with their name only.
 */
func ListAll(templatesRoot string) ([]models.TemplateMeta, error) {
	entries, err := os.ReadDir(templatesRoot)
	if err != nil {
		return nil, fmt.Errorf("read templates root: %w", err)
	}

	var metas []models.TemplateMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(templatesRoot, e.Name())
		if !hasRootFile(dir) {
			continue
		}
		tpl, err := load(dir)
		if err != nil {
			metas = append(metas, models.TemplateMeta{
				Name:        e.Name(),
				Unit:        NotAvailable,
				Vendor:      NotAvailable,
				Description: NotAvailable,
				Protocols:   NotAvailable,
				Creator:     NotAvailable,
			})
			continue
		}
		metas = append(metas, tpl.Meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}
