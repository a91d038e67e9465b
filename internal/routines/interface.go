package routines

import (
	"context"

	"github.com/swxsoc/swxingest/internal/annotation"
	"github.com/swxsoc/swxingest/internal/sourcehost"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

//go:generate mockgen -destination=mocks/mock_sinks.go -package=mocks github.com/swxsoc/swxingest/internal/routines SeriesRecorder,Annotator,Uploader,RepoLister

// SeriesRecorder records a time series. Satisfied by timeseries.Sink.
type SeriesRecorder interface {
	Record(ctx context.Context, s timeseries.Series) error
}

// Annotator creates dashboard annotations. Satisfied by annotation.Sink.
type Annotator interface {
	Create(ctx context.Context, a annotation.Annotation, overwrite bool) error
}

// Uploader stores a local file in an object store.
type Uploader interface {
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// RepoLister lists public repositories of an organization or user.
type RepoLister interface {
	ListRepos(ctx context.Context, orgOrUser string) ([]sourcehost.Repo, error)
}
