package soap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	body := etree.NewElement("GetResult")
	body.CreateAttr("xmlns", NamespaceRelatics)
	body.CreateElement("Operation").SetText("getObjects")

	doc := Envelope(body)
	out, err := doc.WriteToString()
	require.NoError(t, err)

	require.Contains(t, out, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">`)
	require.Contains(t, out, "<soap:Body>")
	require.Contains(t, out, `<GetResult xmlns="http://www.relatics.com/">`)
	require.Contains(t, out, "<Operation>getObjects</Operation>")
}

func TestParseResponse(t *testing.T) {
	t.Run("returns the operation response element", func(t *testing.T) {
		raw := `<?xml version="1.0" encoding="utf-8"?>
			<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
				<soap:Body>
					<GetResultResponse xmlns="http://www.relatics.com/">
						<GetResultResult><Report/></GetResultResult>
					</GetResultResponse>
				</soap:Body>
			</soap:Envelope>`

		result, err := parseResponse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, "GetResultResponse", result.Tag)
	})

	t.Run("ignores the envelope prefix", func(t *testing.T) {
		raw := `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
				<soapenv:Body><ImportResponse/></soapenv:Body>
			</soapenv:Envelope>`

		result, err := parseResponse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, "ImportResponse", result.Tag)
	})

	t.Run("returns a typed fault", func(t *testing.T) {
		raw := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
				<soap:Body>
					<soap:Fault>
						<faultcode>soap:Server</faultcode>
						<faultstring>Unknown operation</faultstring>
					</soap:Fault>
				</soap:Body>
			</soap:Envelope>`

		_, err := parseResponse([]byte(raw))
		require.Error(t, err)

		var fault *Fault
		require.ErrorAs(t, err, &fault)
		require.Equal(t, "soap:Server", fault.Code)
		require.Equal(t, "Unknown operation", fault.Reason)
	})

	t.Run("rejects non-envelope payloads", func(t *testing.T) {
		_, err := parseResponse([]byte("<html><body>gateway error</body></html>"))
		require.Error(t, err)
	})
}

func TestClientCall(t *testing.T) {
	t.Run("posts envelope with SOAPAction and headers", func(t *testing.T) {
		var gotAction, gotContentType, gotUserAgent, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAction = r.Header.Get("SOAPAction")
			gotContentType = r.Header.Get("Content-Type")
			gotUserAgent = r.Header.Get("User-Agent")
			gotAuth = r.Header.Get("Authorization")

			w.Header().Set("Content-Type", "text/xml; charset=utf-8")
			_, _ = w.Write([]byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
				<soap:Body><GetResultResponse/></soap:Body>
			</soap:Envelope>`))
		}))
		defer server.Close()

		client := NewClient(server.URL, WithUserAgent("go-relatics/test"))

		header := http.Header{}
		header.Set("Authorization", "Bearer token-123")

		body := etree.NewElement("GetResult")
		result, err := client.Call(context.Background(), NamespaceRelatics+"GetResult", body, header)
		require.NoError(t, err)
		require.Equal(t, "GetResultResponse", result.Tag)

		require.Equal(t, `"http://www.relatics.com/GetResult"`, gotAction)
		require.Equal(t, "text/xml; charset=utf-8", gotContentType)
		require.Equal(t, "go-relatics/test", gotUserAgent)
		require.Equal(t, "Bearer token-123", gotAuth)
	})

	t.Run("surfaces faults from HTTP 500 responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
				<soap:Body><soap:Fault><faultcode>soap:Client</faultcode><faultstring>bad request</faultstring></soap:Fault></soap:Body>
			</soap:Envelope>`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Call(context.Background(), NamespaceRelatics+"Import", etree.NewElement("Import"), nil)

		var fault *Fault
		require.ErrorAs(t, err, &fault)
		require.Equal(t, "bad request", fault.Reason)
	})

	t.Run("reports non-xml error responses with their status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream unavailable"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Call(context.Background(), NamespaceRelatics+"GetResult", etree.NewElement("GetResult"), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "502")
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient(server.URL)
		_, err := client.Call(ctx, NamespaceRelatics+"GetResult", etree.NewElement("GetResult"), nil)
		require.Error(t, err)
	})
}
