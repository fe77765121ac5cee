package reference

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"gopkg.in/yaml.v3"
)

//go:embed reference_data.yaml
var defaultReferenceData []byte

// Load reads reference data from path, or the embedded defaults when path is empty.
func Load(path string) (domain.ReferenceData, error) {
	raw := defaultReferenceData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return domain.ReferenceData{}, fmt.Errorf("failed to read reference data %s: %w", path, err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and checks a reference data document.
func Parse(raw []byte) (domain.ReferenceData, error) {
	var data domain.ReferenceData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return domain.ReferenceData{}, fmt.Errorf("failed to decode reference data: %w", err)
	}

	seen := make(map[string]bool, len(data.Countries))
	for i, c := range data.Countries {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" {
			return domain.ReferenceData{}, fmt.Errorf("country #%d has no code", i+1)
		}
		if seen[code] {
			return domain.ReferenceData{}, fmt.Errorf("country %s is listed twice", code)
		}
		if c.CardFee.IsNegative() {
			return domain.ReferenceData{}, fmt.Errorf("country %s has a negative card fee", code)
		}
		seen[code] = true
		data.Countries[i].Code = code
	}
	if len(data.Countries) == 0 {
		return domain.ReferenceData{}, fmt.Errorf("reference data lists no country")
	}
	return data, nil
}
