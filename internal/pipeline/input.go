package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/landchain/internal/model"
)

// TractFile is a tract input file. YAML and JSON share the same keys.
//
//	prospect: Roe 12
//	legal_description: NE4 of Section 12-150-95
//	as_of: 2024-06-01
//	runsheet: roe-12.csv
//	rows:
//	  - {Instrument: Patent, Grantee: Jane Doe, Recorded: 1910}
//	documents:
//	  - path: abstracts/deed-1950.txt
//	  - url: https://recorder.example.gov/exports/12-150-95.html
//	overrides:
//	  "Bk 120 Pg 44": {production_present: true}
type TractFile struct {
	Prospect         string                         `yaml:"prospect"`
	LegalDescription string                         `yaml:"legal_description"`
	AsOf             string                         `yaml:"as_of"`
	Rows             []model.RawRow                 `yaml:"rows"`
	Runsheet         string                         `yaml:"runsheet"`
	Documents        []DocumentSource               `yaml:"documents"`
	Overrides        map[string]model.LeaseOverride `yaml:"overrides"`

	// Dir is the file's directory; relative paths resolve against it
	Dir string `yaml:"-"`
}

// DocumentSource names one document for the extraction chain: inline
// content, a local file, or a URL
type DocumentSource struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	URL         string `yaml:"url"`
	ContentType string `yaml:"content_type"`
	Content     string `yaml:"content"`
}

// LoadTractFile reads and checks a tract input file
func LoadTractFile(path string) (*TractFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tract file: %w", err)
	}

	tf, err := ParseTractFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tf.Dir = filepath.Dir(path)
	if tf.Prospect == "" {
		tf.Prospect = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return tf, nil
}

// ParseTractFile decodes YAML or JSON tract input
func ParseTractFile(data []byte) (*TractFile, error) {
	var tf TractFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tract file: %w", err)
	}
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// Validate checks that the file names a tract and that each document has exactly one source
func (tf *TractFile) Validate() error {
	if strings.TrimSpace(tf.LegalDescription) == "" {
		return errors.New("legal_description is required")
	}
	for i, doc := range tf.Documents {
		sources := 0
		for _, s := range []string{doc.Path, doc.URL, doc.Content} {
			if s != "" {
				sources++
			}
		}
		if sources != 1 {
			return fmt.Errorf("documents[%d]: exactly one of path, url or content is required", i)
		}
	}
	return nil
}

// resolve makes a relative path relative to the tract file
func (tf *TractFile) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || tf.Dir == "" {
		return p
	}
	return filepath.Join(tf.Dir, p)
}

// contentTypeFor guesses a content type from a file extension
func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return "text/html"
	case ".csv":
		return "text/csv"
	case ".tsv", ".tab":
		return "text/tab-separated-values"
	default:
		return "text/plain"
	}
}
