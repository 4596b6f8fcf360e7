package ocr

import (
	"fmt"

	"github.com/rezonia/facture-ocr/internal/model"
)

// MaxBatchSize is the largest number of documents accepted in one batch request.
const MaxBatchSize = 10

// validateBatch rejects oversized batches before anything is opened or sent.
func validateBatch(docs []Document) error {
	if len(docs) > MaxBatchSize {
		return model.NewValidationError(
			fmt.Sprintf("maximum %d files per batch request, got %d", MaxBatchSize, len(docs)),
			0, nil)
	}
	return nil
}
