// Package soap implements the small slice of SOAP 1.1 that the Relatics
// DataExchange endpoint speaks: envelope construction, the SOAPAction POST,
// and fault handling. Envelopes are built directly with etree documents
// instead of generated WSDL bindings.
package soap

import (
	"fmt"

	"github.com/beevik/etree"
)

const (
	// NamespaceEnvelope is the SOAP 1.1 envelope namespace.
	NamespaceEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"

	// NamespaceRelatics is the namespace of every Relatics operation. It is
	// also the prefix of each operation's SOAPAction value.
	NamespaceRelatics = "http://www.relatics.com/"
)

// Fault is the error returned when the service answers with a SOAP fault
// instead of an operation response.
type Fault struct {
	Code   string
	Reason string
}

func (f *Fault) Error() string {
	if f.Reason == "" {
		return fmt.Sprintf("soap fault: %s", f.Code)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Reason)
}

// Envelope wraps an operation body element in a SOAP envelope document,
// ready for serialization.
func Envelope(body *etree.Element) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	envelope := doc.CreateElement("soap:Envelope")
	envelope.CreateAttr("xmlns:soap", NamespaceEnvelope)

	envelope.CreateElement("soap:Body").AddChild(body)

	return doc
}

// childByTag returns the first child element with the given local name,
// ignoring namespace prefixes. Relatics responses are not consistent about
// the prefix they use for the envelope namespace.
func childByTag(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// parseResponse extracts the operation response element from a raw envelope.
// A fault in the body is returned as a *Fault error.
func parseResponse(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("response is not a soap envelope")
	}

	body := childByTag(root, "Body")
	if body == nil {
		return nil, fmt.Errorf("response envelope has no body")
	}

	if fault := childByTag(body, "Fault"); fault != nil {
		f := &Fault{}
		if code := childByTag(fault, "faultcode"); code != nil {
			f.Code = code.Text()
		}
		if reason := childByTag(fault, "faultstring"); reason != nil {
			f.Reason = reason.Text()
		}
		return nil, f
	}

	children := body.ChildElements()
	if len(children) == 0 {
		return nil, fmt.Errorf("response envelope body is empty")
	}

	return children[0], nil
}
