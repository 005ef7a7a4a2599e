// Package testhelpers provides shared test infrastructure, most notably an
// httptest server that mocks a Relatics host: the DataExchange SOAP endpoint
// and the OAuth2 token endpoint.
package testhelpers

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/beevik/etree"
)

// CapturedCall records one SOAP request the mock server received.
type CapturedCall struct {
	Action        string
	Operation     string
	Authorization string
	UserAgent     string
	Envelope      string
}

// MockRelaticsServerConfig configures the behavior of a mock Relatics host.
type MockRelaticsServerConfig struct {
	// ClientID and ClientSecret are the credentials the token endpoint
	// accepts.
	ClientID     string
	ClientSecret string

	// Token is the access token the token endpoint hands out and, when
	// RequireBearer is set, the one the SOAP endpoint demands.
	Token string

	// TokenExpiresIn is the expires_in value of token responses, seconds.
	TokenExpiresIn int

	// FailTokenRequests makes the token endpoint answer every request with
	// an invalid_client error.
	FailTokenRequests bool

	// RequireBearer makes the SOAP endpoint reject calls without a valid
	// Bearer header.
	RequireBearer bool

	// GetResultResponses maps operation names to the inner XML placed in
	// GetResultResult. Unknown operations get an Export error response.
	GetResultResponses map[string]string

	// ImportResponses maps operation names to the inner XML placed in
	// ImportResult.
	ImportResponses map[string]string

	mu            sync.Mutex
	calls         []CapturedCall
	tokenRequests int
}

// NewMockRelaticsServerConfig creates a config with working defaults.
func NewMockRelaticsServerConfig() *MockRelaticsServerConfig {
	return &MockRelaticsServerConfig{
		ClientID:           "client-id",
		ClientSecret:       "client-secret",
		Token:              "token-abc123",
		TokenExpiresIn:     3600,
		GetResultResponses: make(map[string]string),
		ImportResponses:    make(map[string]string),
	}
}

// Calls returns the SOAP requests received so far.
func (c *MockRelaticsServerConfig) Calls() []CapturedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedCall(nil), c.calls...)
}

// TokenRequests returns how often the token endpoint was hit.
func (c *MockRelaticsServerConfig) TokenRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenRequests
}

// NewMockRelaticsServer starts an httptest server mocking a Relatics host.
// The server is closed automatically when the test finishes.
func NewMockRelaticsServer(t *testing.T, config *MockRelaticsServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockRelaticsServerConfig()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		config.tokenRequests++
		config.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		id, secret, ok := r.BasicAuth()
		if config.FailTokenRequests || !ok || id != config.ClientID || secret != config.ClientSecret {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_client",
				"error_description": "Client not found.",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": config.Token,
			"token_type":   "bearer",
			"expires_in":   config.TokenExpiresIn,
		})
	})

	mux.HandleFunc("/DataExchange.asmx", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		operation := ""
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(body); err == nil {
			if el := doc.FindElement("//Operation"); el != nil {
				operation = el.Text()
			}
		}

		config.mu.Lock()
		config.calls = append(config.calls, CapturedCall{
			Action:        r.Header.Get("SOAPAction"),
			Operation:     operation,
			Authorization: r.Header.Get("Authorization"),
			UserAgent:     r.Header.Get("User-Agent"),
			Envelope:      string(body),
		})
		config.mu.Unlock()

		if config.RequireBearer && r.Header.Get("Authorization") != "Bearer "+config.Token {
			writeEnvelope(w, http.StatusInternalServerError,
				`<soap:Fault><faultcode>soap:Client</faultcode><faultstring>Unauthorized</faultstring></soap:Fault>`)
			return
		}

		switch r.Header.Get("SOAPAction") {
		case `"http://www.relatics.com/GetResult"`:
			inner, ok := config.GetResultResponses[operation]
			if !ok {
				inner = `<Export Error="Unknown operation"/>`
			}
			writeEnvelope(w, http.StatusOK, fmt.Sprintf(
				`<GetResultResponse xmlns="http://www.relatics.com/"><GetResultResult>%s</GetResultResult></GetResultResponse>`,
				inner))

		case `"http://www.relatics.com/Import"`:
			inner, ok := config.ImportResponses[operation]
			if !ok {
				inner = `<Export Error="Unknown operation"/>`
			}
			writeEnvelope(w, http.StatusOK, fmt.Sprintf(
				`<ImportResponse xmlns="http://www.relatics.com/"><ImportResult>%s</ImportResult></ImportResponse>`,
				inner))

		default:
			writeEnvelope(w, http.StatusInternalServerError,
				`<soap:Fault><faultcode>soap:Client</faultcode><faultstring>Unknown action</faultstring></soap:Fault>`)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w,
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>%s</soap:Body></soap:Envelope>`,
		body)
}

// DocumentsArchive builds the base64 encoded zip that Relatics uses to
// attach documents to a report.
func DocumentsArchive(t *testing.T, documents map[string][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	for name, contents := range documents {
		entry, err := archive.Create(name)
		if err != nil {
			t.Fatalf("failed to create archive entry %s: %v", name, err)
		}
		if _, err := entry.Write(contents); err != nil {
			t.Fatalf("failed to write archive entry %s: %v", name, err)
		}
	}
	if err := archive.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
