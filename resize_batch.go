package ultrahdr

import (
	"errors"
	"sync"
)

// ResizeJPEGSpec describes one output of a ResizeJPEGBatch call.
type ResizeJPEGSpec struct {
	Width         uint
	Height        uint
	Quality       int
	Interpolation Interpolation
	KeepMeta      bool
}

// ResizeJPEGBatchResult pairs a batch output with the spec that produced it.
type ResizeJPEGBatchResult struct {
	Spec ResizeJPEGSpec
	Data []byte
}

// ResizeJPEGBatch resizes the same source JPEG to multiple target
// dimensions concurrently, each output produced exactly as ResizeJPEG
// would for that spec.
func ResizeJPEGBatch(data []byte, specs []ResizeJPEGSpec) ([]ResizeJPEGBatchResult, error) {
	if len(specs) == 0 {
		return nil, errors.New("no resize specs given")
	}
	for _, s := range specs {
		if s.Width == 0 || s.Height == 0 {
			return nil, errors.New("invalid target dimensions")
		}
	}

	out := make([]ResizeJPEGBatchResult, len(specs))
	errs := make([]error, len(specs))
	var wg sync.WaitGroup
	for i, s := range specs {
		wg.Add(1)
		go func(i int, s ResizeJPEGSpec) {
			defer wg.Done()
			result, err := ResizeJPEG(data, s.Width, s.Height, s.Quality, s.Interpolation, s.KeepMeta)
			out[i] = ResizeJPEGBatchResult{Spec: s, Data: result}
			errs[i] = err
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
