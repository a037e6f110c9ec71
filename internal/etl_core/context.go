// Package etl_core holds shared state threaded through extractors and
// transformers, kept separate to avoid import cycles between the ETL stages.
package etl_core

import "github.com/stockslurp/stockslurp/internal/job"

// Context carries the job spec driving a pipeline run.
type Context struct {
	Spec *job.JobSpec
}
