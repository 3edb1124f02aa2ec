// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parallel

import (
	"context"
	"sync"

	"github.com/gorse-io/lodrec/common/util"
	"github.com/juju/errors"
	"go.uber.org/atomic"
)

// Parallel runs worker for every job id in [0, nJobs) on nWorkers goroutines. Workers claim
// job ids from a shared counter, so cheap and expensive jobs balance themselves. The first
// error, or the cancellation of ctx, stops every worker before its next job.
func Parallel(ctx context.Context, nJobs, nWorkers int, worker func(workerId, jobId int) error) error {
	if nWorkers <= 1 || nJobs <= 1 {
		for i := 0; i < nJobs; i++ {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			if err := worker(0, i); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	next := atomic.NewInt64(-1)
	var wg sync.WaitGroup
	for workerId := 0; workerId < min(nWorkers, nJobs); workerId++ {
		wg.Go(func() {
			defer util.CheckPanic()
			for ctx.Err() == nil {
				jobId := int(next.Inc())
				if jobId >= nJobs {
					return
				}
				if err := worker(workerId, jobId); err != nil {
					cancel(err)
					return
				}
			}
		})
	}
	wg.Wait()
	if err := context.Cause(ctx); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// For runs worker for every job id in [0, nJobs) and stops early when ctx is canceled.
func For(ctx context.Context, nJobs, nWorkers int, worker func(int)) error {
	return Parallel(ctx, nJobs, nWorkers, func(_, jobId int) error {
		worker(jobId)
		return nil
	})
}
