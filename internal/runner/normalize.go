package runner

import "context"

// PassthroughNormalizer implements Normalizer by no-op'ing: the uploaded
// file is used as-is. Real audio pre-processing (resampling to 16 kHz
// mono WAV) is an opaque external collaborator per spec.md §1; this default
// satisfies the interface for runners that accept the browser's native
// upload formats directly.
type PassthroughNormalizer struct{}

// Normalize returns path unchanged.
func (PassthroughNormalizer) Normalize(ctx context.Context, path string) (string, error) {
	return path, nil
}
