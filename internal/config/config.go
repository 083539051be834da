package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"ecosort_service/internal/domain/model"
)

type Config struct {
	Port             string
	InferenceURL     string
	PostgresURL      string
	RecordDetections bool

	CatalogPath         string
	ConfidenceThreshold float64
	IOUThreshold        float64
	ImageSize           int

	LogsDir     string
	UploadDir   string
	SnapshotDir string
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		InferenceURL:     getEnv("INFERENCE_URL", "http://localhost:5000"),
		PostgresURL:      getEnv("POSTGRES_URL", ""),
		RecordDetections: os.Getenv("RECORD_DETECTIONS") == "true",

		CatalogPath:         getEnv("CATALOG_PATH", "catalog.json"),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.5),
		IOUThreshold:        getEnvFloat("IOU_THRESHOLD", 0.45),
		ImageSize:           getEnvInt("IMG_SIZE", 640),

		LogsDir:     getEnv("LOGS_DIR", "logs"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		SnapshotDir: getEnv("SNAPSHOT_DIR", "snapshots"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// DefaultCatalog is the class set of the observed deployment: three
// inorganic and three organic waste classes.
func DefaultCatalog() model.Catalog {
	return model.Catalog{
		0: {Name: "bag", Category: model.CategoryInorganic},
		1: {Name: "banana_peel", Category: model.CategoryOrganic},
		2: {Name: "bottle", Category: model.CategoryInorganic},
		3: {Name: "can", Category: model.CategoryInorganic},
		4: {Name: "eggshell", Category: model.CategoryOrganic},
		5: {Name: "leaves", Category: model.CategoryOrganic},
	}
}

// LoadCatalog reads the class catalog from a JSON file keyed by class id.
// A missing file falls back to the built-in default catalog; a present but
// invalid file is an error, since a wrong catalog would misroute items.
func LoadCatalog(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var entries map[string]model.ClassEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	catalog := make(model.Catalog, len(entries))
	for key, entry := range entries {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: class id %q is not an integer", path, key)
		}
		if entry.Name == "" {
			return nil, fmt.Errorf("catalog %s: class %d has no name", path, id)
		}
		if entry.Category != model.CategoryOrganic && entry.Category != model.CategoryInorganic {
			return nil, fmt.Errorf("catalog %s: class %d has unknown category %q", path, id, entry.Category)
		}
		catalog[id] = entry
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("catalog %s: no classes defined", path)
	}
	return catalog, nil
}
