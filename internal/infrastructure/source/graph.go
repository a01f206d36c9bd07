// Package source lists remote operation folders from Microsoft Graph drives or an
// S3-compatible bucket.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	infraconfig "github.com/erp/sharepointsync/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

// maxErrorBody caps how much of a failed response ends up in the error
const maxErrorBody = 512

// GraphFolderSource lists folders through the Microsoft Graph drive API.
type GraphFolderSource struct {
	client         *http.Client
	baseURL        string
	driveID        string
	maxConcurrency int
	logger         *zap.Logger
}

// GraphOption configures a GraphFolderSource
type GraphOption func(*GraphFolderSource)

// WithHTTPClient replaces the OAuth2 client, for tests against a local server.
func WithHTTPClient(c *http.Client) GraphOption {
	return func(g *GraphFolderSource) {
		g.client = c
	}
}

// WithGraphLogger sets the logger
func WithGraphLogger(logger *zap.Logger) GraphOption {
	return func(g *GraphFolderSource) {
		g.logger = logger
	}
}

// NewGraphFolderSource creates a Graph source authenticated with the client-credentials flow.
func NewGraphFolderSource(cfg *infraconfig.SharePointConfig, opts ...GraphOption) (*GraphFolderSource, error) {
	if cfg == nil {
		return nil, errors.New("sharepoint configuration is required")
	}
	if cfg.DriveID == "" {
		return nil, errors.New("sharepoint drive id is required")
	}

	g := &GraphFolderSource{
		baseURL:        strings.TrimRight(cfg.GraphBaseURL, "/"),
		driveID:        cfg.DriveID,
		maxConcurrency: cfg.MaxConcurrency,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.maxConcurrency < 1 {
		g.maxConcurrency = 1
	}

	if g.client == nil {
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
			return nil, errors.New("sharepoint client id, client secret and token url are required")
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		// the token fetch uses the same timeout as the Graph calls
		base := &http.Client{Timeout: cfg.RequestTimeout}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		g.client = cc.Client(ctx)
		g.client.Timeout = cfg.RequestTimeout
	}
	return g, nil
}

// driveItem is the subset of a Graph driveItem the sync reads. The pre-authenticated
// @microsoft.graph.downloadUrl is not read, it expires within the hour.
type driveItem struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	WebURL string    `json:"webUrl"`
	Folder *struct{} `json:"folder"`
	File   *struct{} `json:"file"`
}

type childrenPage struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ListFolders lists the folders under rootPath with their direct files.
func (g *GraphFolderSource) ListFolders(ctx context.Context, rootPath string) ([]sharepoint.RemoteFolder, error) {
	folders, err := g.listFolders(ctx, rootPath)
	if err != nil {
		return nil, sharepoint.NewSourceUnavailableError(rootPath, err)
	}
	return sharepoint.RequireFolders(rootPath, folders)
}

func (g *GraphFolderSource) listFolders(ctx context.Context, rootPath string) ([]sharepoint.RemoteFolder, error) {
	rootItems, err := g.children(ctx, g.rootChildrenURL(rootPath))
	if err != nil {
		return nil, fmt.Errorf("list root %q: %w", rootPath, err)
	}

	var dirs []driveItem
	for _, item := range rootItems {
		if item.Folder != nil {
			dirs = append(dirs, item)
		}
	}

	folders := make([]sharepoint.RemoteFolder, len(dirs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxConcurrency)
	for i, dir := range dirs {
		eg.Go(func() error {
			items, err := g.children(egCtx, g.itemChildrenURL(dir.ID))
			if err != nil {
				return fmt.Errorf("list folder %q: %w", dir.Name, err)
			}
			folder := sharepoint.RemoteFolder{Name: dir.Name}
			for _, item := range items {
				if item.File == nil {
					continue
				}
				folder.Files = append(folder.Files, sharepoint.RemoteFile{Name: item.Name, DownloadURL: g.fileRef(item)})
			}
			folders[i] = folder
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.logger.Debug("Graph folders listed", zap.String("root", rootPath), zap.Int("folders", len(folders)))
	return folders, nil
}

func (g *GraphFolderSource) rootChildrenURL(rootPath string) string {
	segments := strings.Split(strings.Trim(rootPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/drives/%s/root:/%s:/children", g.baseURL, url.PathEscape(g.driveID), strings.Join(segments, "/"))
}

// fileRef is the stored download reference of a file: its SharePoint webUrl, or the Graph
// content endpoint when Graph sends none. Both stay valid for the life of the file.
func (g *GraphFolderSource) fileRef(item driveItem) string {
	if item.WebURL != "" {
		return item.WebURL
	}
	return fmt.Sprintf("%s/drives/%s/items/%s/content", g.baseURL, url.PathEscape(g.driveID), url.PathEscape(item.ID))
}

func (g *GraphFolderSource) itemChildrenURL(itemID string) string {
	return fmt.Sprintf("%s/drives/%s/items/%s/children", g.baseURL, url.PathEscape(g.driveID), url.PathEscape(itemID))
}

// children follows @odata.nextLink until the listing is exhausted.
func (g *GraphFolderSource) children(ctx context.Context, next string) ([]driveItem, error) {
	var items []driveItem
	for next != "" {
		page, err := g.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

func (g *GraphFolderSource) getPage(ctx context.Context, pageURL string) (*childrenPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("graph returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var page childrenPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}
	g.logger.Debug("Graph page fetched",
		zap.String("url", pageURL),
		zap.Int("items", len(page.Value)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &page, nil
}

var _ sharepoint.FolderSource = (*GraphFolderSource)(nil)
