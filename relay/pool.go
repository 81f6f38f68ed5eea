// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"sync"
	"time"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

// Job is one withdrawal request to couple with a PoW claim (spec.md §4.5).
type Job struct {
	ID                string
	ExpectedMinerAuth [32]byte
	ExpectedBatchHash [32]byte
	TotalFee          uint64
	CallerProgram     [32]byte
	CurrentSlot       uint64
	RegistryProgram   [32]byte
	SlotSysvar        [32]byte
}

// JobResult is the outcome of processing one Job.
type JobResult struct {
	JobID          string
	Accounts       WithdrawAccounts
	ScramblerShare uint64
	ProtocolShare  uint64
	Claim          *registry.Claim
	Err            error
}

// Worker processes each job a Pool hands it from a bounded channel end to
// end with a per-job context timeout (spec.md §5 "Cancellation and timeouts":
// "Relay jobs carry a per-job timeout; on expiry the job is failed and no
// partial on-chain state is created"), grounded on
// `mining/mobilex/pool/job_manager.go`'s job/worker shape.
type Worker struct {
	finder  *Finder
	prog    *registry.Program
	timeout time.Duration
}

// NewWorker wires a Worker to its claim finder and registry program.
func NewWorker(finder *Finder, prog *registry.Program, timeout time.Duration) *Worker {
	return &Worker{finder: finder, prog: prog, timeout: timeout}
}

// Process runs one job to completion: find a candidate claim, then consume
// it and compute the fee split. w.timeout bounds the context handed to the
// finder's scan, and a job whose deadline has passed once a claim is
// selected fails with the context error before anything is consumed.
// ConsumeAndSplit itself does not observe the context. An all-zero
// ExpectedMinerAuth accepts the selected claim's own miner authority.
func (w *Worker) Process(ctx context.Context, job Job) JobResult {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	view, err := w.finder.Select(ctx, job.ExpectedBatchHash, job.CurrentSlot)
	if err != nil {
		return JobResult{JobID: job.ID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return JobResult{JobID: job.ID, Err: err}
	}

	expectedMiner := job.ExpectedMinerAuth
	if expectedMiner == ([32]byte{}) {
		expectedMiner = view.Claim.MinerAuthority
	}
	scramblerShare, protocolShare, claim, _, err := ConsumeAndSplit(
		w.prog, job.CallerProgram, view.Key, expectedMiner, job.ExpectedBatchHash, job.TotalFee, job.CurrentSlot)
	if err != nil {
		return JobResult{JobID: job.ID, Err: err}
	}

	accounts := BuildWithdrawAccounts(job.RegistryProgram, view.Key, claim.MinerAuthority, job.SlotSysvar)
	return JobResult{
		JobID:          job.ID,
		Accounts:       accounts,
		ScramblerShare: scramblerShare,
		ProtocolShare:  protocolShare,
		Claim:          claim,
	}
}

// Pool is a bounded pool of Workers draining a shared job channel, the
// same shape `mining/mobilex/pool/job_manager.go` uses for pool-side job
// dispatch, generalized from mining jobs to withdrawal-coupling jobs.
type Pool struct {
	worker  *Worker
	jobs    chan Job
	results chan JobResult
	wg      sync.WaitGroup
	quit    chan struct{}
}

// NewPool starts numWorkers goroutines draining jobs of depth queueDepth.
func NewPool(worker *Worker, numWorkers, queueDepth int) *Pool {
	p := &Pool{
		worker:  worker,
		jobs:    make(chan Job, queueDepth),
		results: make(chan JobResult, queueDepth),
		quit:    make(chan struct{}),
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- p.worker.Process(context.Background(), job)
		case <-p.quit:
			return
		}
	}
}

// Submit enqueues job for processing. It blocks if the queue is full.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// Results returns the channel job outcomes are published on.
func (p *Pool) Results() <-chan JobResult {
	return p.results
}

// Stop signals every worker to exit after draining in-flight work and
// waits for them to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}
