package intent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed pack_schema.json
var packSchemaJSON string

var packSchema = jsonschema.MustCompileString("pack_schema.json", packSchemaJSON)

// Pack is a set of extra trigger wordings for existing canonical actions,
// loaded from one YAML document. Packs add synonyms only: they cannot
// introduce new actions or contextual follow-ups, and their entries slot in
// between the built-in specific tier and the generic defaults.
type Pack struct {
	Name    string
	Entries []Entry
}

type packDoc struct {
	Name    string     `yaml:"name"`
	Entries []packItem `yaml:"entries"`
}

type packItem struct {
	Action   string   `yaml:"action"`
	Phrases  []string `yaml:"phrases"`
	Keywords []string `yaml:"keywords"`
	Usage    string   `yaml:"usage"`
}

// ParsePack decodes and validates one YAML pack document. The document must
// satisfy the embedded schema and every entry must name a canonical action.
func ParsePack(data []byte) (*Pack, error) {
	var loose any
	if err := yaml.Unmarshal(data, &loose); err != nil {
		return nil, fmt.Errorf("pack parse: %w", err)
	}
	if err := packSchema.Validate(jsonValue(loose)); err != nil {
		return nil, fmt.Errorf("pack schema: %w", err)
	}

	var doc packDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pack parse: %w", err)
	}

	pack := &Pack{Name: doc.Name}
	for i, item := range doc.Entries {
		if !KnownAction(item.Action) {
			return nil, fmt.Errorf("pack %q entries[%d]: unknown action %q", doc.Name, i, item.Action)
		}
		usage := item.Usage
		if usage == "" {
			if len(item.Phrases) > 0 {
				usage = item.Phrases[0]
			} else if examples := Examples(item.Action); len(examples) > 0 {
				usage = examples[0]
			}
		}
		pack.Entries = append(pack.Entries, Entry{
			Action:   item.Action,
			Phrases:  item.Phrases,
			Keywords: item.Keywords,
			Usage:    usage,
			FromPack: doc.Name,
		})
	}
	return pack, nil
}

// jsonValue reroutes a yaml-decoded value through encoding/json so the schema
// validator sees the value shapes it expects.
func jsonValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// LoadPacks reads every *.yaml / *.yml file in dir in name order. A missing
// directory is not an error: packs are optional.
func LoadPacks(dir string) ([]*Pack, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read packs dir: %w", err)
	}

	var packs []*Pack
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("read pack %s: %w", de.Name(), err)
		}
		pack, err := ParsePack(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", de.Name(), err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}
