// Package relatics is a client for the Relatics webservices. It wraps the
// GetResult and Import operations of the DataExchange endpoint with
// authentication handling (anonymous, entry code, or OAuth2 client
// credentials) and parsed result types.
package relatics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"relatics.dev/relatics/internal/importdata"
	"relatics.dev/relatics/internal/soap"
	"relatics.dev/relatics/internal/version"
)

// dataExchangePath is the path of the webservice endpoint on every
// Relatics host.
const dataExchangePath = "/DataExchange.asmx"

// Row is a single import row: column name to cell value.
type Row map[string]string

// Client talks to the webservices of one Relatics workspace.
type Client struct {
	baseURL     string
	workspaceID string
	userAgent   string
	httpClient  *http.Client
	soap        *soap.Client
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the host the client talks to. The default is
// https://<company>.relaticsonline.com.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithUserAgent overrides the User-Agent header. The value shows up in the
// webservice logs in Relatics, so a custom value can help trace callers.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHTTPClient sets the HTTP client used for webservice calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client for the given company's hosted environment and
// workspace. The workspace id is the value shown under the workspace's
// "Entry code & identification" settings.
func NewClient(company, workspaceID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     fmt.Sprintf("https://%s.relaticsonline.com", strings.ToLower(company)),
		workspaceID: workspaceID,
		userAgent:   version.UserAgent(),
		httpClient:  http.DefaultClient,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.soap = soap.NewClient(
		c.baseURL+dataExchangePath,
		soap.WithHTTPClient(c.httpClient),
		soap.WithUserAgent(c.userAgent),
	)

	return c
}

// BaseURL returns the base URL of the Relatics host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetResultOptions contains the optional arguments of a GetResult call.
type GetResultOptions struct {
	// Parameters are passed to the "Server for providing data" operation.
	Parameters map[string]string

	// Authentication for the call; nil makes an anonymous call.
	Authentication Authentication
}

// GetResult retrieves results from a "Server for providing data" operation.
func (c *Client) GetResult(ctx context.Context, operation string, opts GetResultOptions) (*ExportResult, error) {
	if operation == "" {
		return nil, ErrEmptyOperation
	}

	body := c.operationElement("GetResult", operation)

	// Parameters carry their values as attributes and are nested one level
	// deeper than the schema suggests; both quirks of the wire format.
	if len(opts.Parameters) > 0 {
		inner := body.CreateElement("Parameters").CreateElement("Parameters")

		names := make([]string, 0, len(opts.Parameters))
		for name := range opts.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			param := inner.CreateElement("Parameter")
			param.CreateAttr("Name", name)
			param.CreateAttr("Value", opts.Parameters[name])
		}
	}

	header, err := c.applyAuthentication(ctx, body, opts.Authentication)
	if err != nil {
		return nil, err
	}

	c.log.DebugContext(ctx, "calling GetResult", "operation", operation, "workspace", c.workspaceID)

	response, err := c.soap.Call(ctx, soap.NamespaceRelatics+"GetResult", body, header)
	if err != nil {
		return nil, err
	}

	return parseExportResult(response)
}

// ImportOptions contains the optional arguments of an import call.
type ImportOptions struct {
	// Authentication for the call; nil makes an anonymous call.
	Authentication Authentication

	// Filename is reported to Relatics and shows up in the "Imported file"
	// column of the import log. Any path or extension is stripped; the
	// extension is always derived from the payload. Empty means the default
	// name.
	Filename string

	// Documents are file paths packed into the import alongside the data,
	// for imports that reference documents.
	Documents []string

	// KeepZipFile writes the generated archive to the temp directory for
	// inspection. Debugging only.
	KeepZipFile bool
}

// Import sends in-memory rows to a "Server for importing data" operation.
func (c *Client) Import(ctx context.Context, operation string, rows []Row, opts ImportOptions) (*ImportResult, error) {
	if operation == "" {
		return nil, ErrEmptyOperation
	}
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}

	converted := make([]importdata.Row, len(rows))
	for i, row := range rows {
		converted[i] = importdata.Row(row)
	}

	payload, err := importdata.FromRows(converted)
	if err != nil {
		return nil, err
	}

	return c.runImport(ctx, operation, payload, opts)
}

// ImportFile sends a data file (xlsx, xlsm, xlsb, xls, or csv) to a "Server
// for importing data" operation.
func (c *Client) ImportFile(ctx context.Context, operation, path string, opts ImportOptions) (*ImportResult, error) {
	if operation == "" {
		return nil, ErrEmptyOperation
	}
	if path == "" {
		return nil, ErrEmptyData
	}

	payload, err := importdata.FromFile(path)
	if err != nil {
		return nil, err
	}

	return c.runImport(ctx, operation, payload, opts)
}

func (c *Client) runImport(ctx context.Context, operation string, payload *importdata.Payload, opts ImportOptions) (*ImportResult, error) {
	payload.SetBasename(opts.Filename)

	if len(opts.Documents) > 0 {
		if err := payload.AttachDocuments(opts.Documents); err != nil {
			return nil, err
		}

		if opts.KeepZipFile {
			path, err := payload.WriteDebugCopy()
			if err != nil {
				return nil, err
			}
			c.log.DebugContext(ctx, "kept import archive", "path", path)
		}
	}

	body := c.operationElement("Import", operation)

	header, err := c.applyAuthentication(ctx, body, opts.Authentication)
	if err != nil {
		return nil, err
	}

	body.CreateElement("Filename").SetText(payload.Filename())
	body.CreateElement("Data").SetText(payload.Encode())

	c.log.DebugContext(ctx, "calling Import",
		"operation", operation, "workspace", c.workspaceID, "filename", payload.Filename())

	response, err := c.soap.Call(ctx, soap.NamespaceRelatics+"Import", body, header)
	if err != nil {
		return nil, err
	}

	return parseImportResult(response)
}

// operationElement builds the shared part of a request body: the operation
// name and the workspace identification.
func (c *Client) operationElement(kind, operation string) *etree.Element {
	body := etree.NewElement(kind)
	body.CreateAttr("xmlns", soap.NamespaceRelatics)
	body.CreateElement("Operation").SetText(operation)
	body.CreateElement("Identification").CreateElement("Workspace").SetText(c.workspaceID)
	return body
}

// applyAuthentication appends the Authentication element and lets the
// configured authentication fill it or add headers. The element is sent even
// for anonymous calls; Relatics rejects requests without it.
func (c *Client) applyAuthentication(ctx context.Context, body *etree.Element, auth Authentication) (http.Header, error) {
	authElement := body.CreateElement("Authentication")
	header := http.Header{}

	if auth != nil {
		if err := auth.authenticate(ctx, c.baseURL, authElement, header); err != nil {
			return nil, err
		}
	}
	return header, nil
}
