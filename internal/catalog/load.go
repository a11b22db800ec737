package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const seedSchemaURL = "schema://catalog-seed.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// seed is the on-disk shape of a catalog file.
type seed struct {
	Competencies []Competency `yaml:"competencies"`
	Topics       []Topic      `yaml:"topics"`
	Questions    []Question   `yaml:"questions"`
}

// Load reads, schema-validates and indexes a YAML (or JSON) catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory data.
func Parse(data []byte) (*Catalog, error) {
	if err := validateSeed(data); err != nil {
		return nil, err
	}

	var s seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(s.Competencies, s.Topics, s.Questions)
}

// validateSeed checks the raw document against seedSchema.
func validateSeed(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	// The validator expects JSON-decoded values (float64 numbers,
	// map[string]any objects), so normalize through encoding/json.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize catalog: %w", err)
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("normalize catalog: %w", err)
	}

	sch, err := seedValidator()
	if err != nil {
		return err
	}
	if err := sch.Validate(parsed); err != nil {
		return fmt.Errorf("catalog schema validation failed: %w", err)
	}
	return nil
}

func seedValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler expects a parsed JSON value, not Go literals.
		defBytes, err := json.Marshal(seedSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal catalog schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(seedSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(seedSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile catalog schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}
