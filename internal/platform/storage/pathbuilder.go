package storage

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

const (
	// PurposeBatchUpload places admitted batch documents awaiting classification.
	PurposeBatchUpload AssetPurpose = "batch-upload"
	// PurposePrintSheet places rendered print sheets produced by the renderer.
	PurposePrintSheet AssetPurpose = "print-sheet"
	// PurposePhotoExport places cropped passport photo exports.
	PurposePhotoExport AssetPurpose = "photo-export"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	OwnerID  string
	BatchID  string
	ItemID   string
	JobID    string
	FileName string
}

// PathBuilder composes the object path for a given asset purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[AssetPurpose]PathBuilder{
		PurposeBatchUpload: buildBatchUploadPath,
		PurposePrintSheet:  buildPrintSheetPath,
		PurposePhotoExport: buildPhotoExportPath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for a specific purpose.
func RegisterPathBuilder(purpose AssetPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
	return builder(params)
}

func buildBatchUploadPath(params PathParams) (string, error) {
	ownerID, err := validateSegment("ownerID", params.OwnerID)
	if err != nil {
		return "", err
	}
	batchID, err := validateSegment("batchID", params.BatchID)
	if err != nil {
		return "", err
	}
	itemID, err := validateSegment("itemID", params.ItemID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("uploads/%s/%s/%s/%s", ownerID, batchID, itemID, fileName), nil
}

func buildPrintSheetPath(params PathParams) (string, error) {
	ownerID, err := validateSegment("ownerID", params.OwnerID)
	if err != nil {
		return "", err
	}
	jobID, err := validateSegment("jobID", params.JobID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("prints/%s/%s/%s", ownerID, jobID, fileName), nil
}

func buildPhotoExportPath(params PathParams) (string, error) {
	ownerID, err := validateSegment("ownerID", params.OwnerID)
	if err != nil {
		return "", err
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("photos/%s/%s", ownerID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	// Camera apps emit full-width and decomposed unicode in file names.
	value = norm.NFKC.String(strings.TrimSpace(value))
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
