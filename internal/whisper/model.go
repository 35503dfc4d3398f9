package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultModel is the tier used when no model is requested. Larger tiers are
// slower and more accurate.
const DefaultModel = "base"

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

type Tier struct {
	Name     string
	FileName string
	SHA256   string
}

func (t Tier) URL() string {
	return modelBaseURL + t.FileName
}

type ResolvedModel struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	NeedsDownload bool
	IsCustomPath  bool
}

type TierStatus struct {
	Tier
	Path      string
	Installed bool
	Default   bool
}

var tiers = map[string]Tier{
	"tiny":     {Name: "tiny", FileName: "ggml-tiny.bin", SHA256: "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21"},
	"base":     {Name: "base", FileName: "ggml-base.bin", SHA256: "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe"},
	"small":    {Name: "small", FileName: "ggml-small.bin", SHA256: "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b"},
	"medium":   {Name: "medium", FileName: "ggml-medium.bin", SHA256: "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208"},
	"large-v3": {Name: "large-v3", FileName: "ggml-large-v3.bin", SHA256: "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2"},
}

func ModelNames() []string {
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupTier(name string) (Tier, bool) {
	tier, ok := tiers[strings.ToLower(strings.TrimSpace(name))]
	return tier, ok
}

// ResolveModel maps a tier name or a ggml file path to a model on disk. Named
// tiers live in modelDir and may still need downloading; custom paths must
// already exist.
func ResolveModel(ref, modelDir string) (ResolvedModel, error) {
	if strings.TrimSpace(ref) == "" {
		ref = DefaultModel
	}

	if tier, ok := LookupTier(ref); ok {
		if strings.TrimSpace(modelDir) == "" {
			return ResolvedModel{}, errors.New("model directory must not be empty for named model")
		}

		path := filepath.Join(modelDir, tier.FileName)
		installed, err := fileExists(path)
		if err != nil {
			return ResolvedModel{}, fmt.Errorf("stat model path: %w", err)
		}

		return ResolvedModel{
			Name:          tier.Name,
			Path:          path,
			URL:           tier.URL(),
			SHA256:        tier.SHA256,
			NeedsDownload: !installed,
		}, nil
	}

	if !looksLikePath(ref) {
		return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", ref, strings.Join(ModelNames(), ", "))
	}

	custom := filepath.Clean(ref)
	exists, err := fileExists(custom)
	if err != nil {
		return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
	}
	if !exists {
		return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", custom)
	}

	return ResolvedModel{
		Name:         filepath.Base(custom),
		Path:         custom,
		IsCustomPath: true,
	}, nil
}

// ListTiers reports every known tier in name order along with whether its
// file is present in modelDir.
func ListTiers(modelDir string) ([]TierStatus, error) {
	statuses := make([]TierStatus, 0, len(tiers))
	for _, name := range ModelNames() {
		tier := tiers[name]
		path := filepath.Join(modelDir, tier.FileName)
		installed, err := fileExists(path)
		if err != nil {
			return nil, fmt.Errorf("stat model %s: %w", name, err)
		}
		statuses = append(statuses, TierStatus{
			Tier:      tier,
			Path:      path,
			Installed: installed,
			Default:   name == DefaultModel,
		})
	}
	return statuses, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.HasSuffix(strings.ToLower(input), ".bin")
}
