package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/kicadgen/pkg/intent"
)

// RunBatch generates several designs concurrently, one goroutine per
// design. Designs share nothing but cfg, which is validated once and then
// only read. Results come back in input order; a failed design leaves a nil
// entry and its error joins the returned error.
func RunBatch(ctx context.Context, ins []*intent.Intent, cfg *Config) ([]*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	results := make([]*Result, len(ins))
	errs := make([]error, len(ins))
	var wg sync.WaitGroup
	for i, in := range ins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if in == nil {
				errs[i] = fmt.Errorf("design %d: %w", i, ErrNilIntent)
				return
			}
			res, err := run(ctx, in, cfg)
			if err != nil {
				errs[i] = fmt.Errorf("design %q: %w", in.Name, err)
				return
			}
			results[i] = res
		}()
	}
	wg.Wait()
	return results, errors.Join(errs...)
}
