package source

import (
	"context"
	"fmt"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	infraconfig "github.com/erp/sharepointsync/internal/infrastructure/config"
	"github.com/erp/sharepointsync/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// New builds the folder source selected by sharepoint.provider, wrapped with tracing.
// The result also implements sharepoint.DownloadLinker.
func New(cfg *infraconfig.Config, logger *zap.Logger) (sharepoint.FolderSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		src sharepoint.FolderSource
		err error
	)
	switch cfg.SharePoint.Provider {
	case infraconfig.ProviderGraph:
		src, err = NewGraphFolderSource(&cfg.SharePoint, WithGraphLogger(logger.Named("graph")))
	case infraconfig.ProviderS3:
		src, err = NewS3FolderSource(&cfg.Storage,
			WithS3Logger(logger.Named("s3")),
			WithMaxConcurrency(cfg.SharePoint.MaxConcurrency),
		)
	default:
		return nil, fmt.Errorf("unknown folder source provider %q", cfg.SharePoint.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s folder source: %w", cfg.SharePoint.Provider, err)
	}
	return Traced(src, cfg.SharePoint.Provider), nil
}

// tracedSource records a client span around every listing
type tracedSource struct {
	next     sharepoint.FolderSource
	provider string
}

// Traced wraps a FolderSource with a span per ListFolders call.
func Traced(next sharepoint.FolderSource, provider string) sharepoint.FolderSource {
	return &tracedSource{next: next, provider: provider}
}

func (t *tracedSource) ListFolders(ctx context.Context, rootPath string) ([]sharepoint.RemoteFolder, error) {
	ctx, span := telemetry.StartSpan(ctx, "folder_source.list_folders",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrSourceProvider, t.provider),
		telemetry.WithAttribute(telemetry.SpanAttrRootPath, rootPath),
	)
	defer span.End()

	folders, err := t.next.ListFolders(ctx, rootPath)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrFoldersFound, len(folders))
	telemetry.SetOK(span)
	return folders, nil
}

// LinkFor delegates to the wrapped source when it mints links, otherwise the reference
// is already usable as is.
func (t *tracedSource) LinkFor(ctx context.Context, ref string) (string, error) {
	if linker, ok := t.next.(sharepoint.DownloadLinker); ok {
		return linker.LinkFor(ctx, ref)
	}
	return ref, nil
}

var _ sharepoint.DownloadLinker = (*tracedSource)(nil)
