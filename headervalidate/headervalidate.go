// Package headervalidate checks decoded HTTP/2 header blocks against the
// pseudo-header and connection-header rules of RFC 7540 section 8.1.2.
// This is a listener-side concern: the decoder core's job is state
// machine and flow control, not header content, so this package is
// invoked by applications from inside their FrameListener implementation,
// grounded on the teacher's internal/stream/validation.go.
package headervalidate

import (
	"fmt"

	"github.com/i4oolish/h2decode/listener"
)

// connectionHeaders lists header names RFC 7540 section 8.1.2.2 forbids
// in an HTTP/2 request or response.
var connectionHeaders = map[string]bool{
	"connection":        true,
	"keep-alive":        true,
	"proxy-connection":  true,
	"transfer-encoding":  true,
	"upgrade":           true,
}

// ValidateRequestHeaders enforces that :method, :scheme, and :path are
// present exactly once, that pseudo-headers precede regular headers, and
// that no connection-specific header is present.
func ValidateRequestHeaders(headers []listener.HeaderField) error {
	seenPseudo := map[string]bool{}
	seenRegular := false
	for _, h := range headers {
		if len(h.Name) == 0 {
			return fmt.Errorf("empty header name")
		}
		if h.Name[0] == ':' {
			if seenRegular {
				return fmt.Errorf("pseudo-header %q after regular header", h.Name)
			}
			if seenPseudo[h.Name] {
				return fmt.Errorf("duplicate pseudo-header %q", h.Name)
			}
			seenPseudo[h.Name] = true
			continue
		}
		seenRegular = true
		if connectionHeaders[h.Name] {
			return fmt.Errorf("connection-specific header %q not allowed", h.Name)
		}
		if h.Name == "te" && h.Value != "trailers" {
			return fmt.Errorf(`"te" header must be "trailers", got %q`, h.Value)
		}
	}
	for _, required := range []string{":method", ":scheme", ":path"} {
		if !seenPseudo[required] {
			return fmt.Errorf("missing required pseudo-header %q", required)
		}
	}
	return nil
}

// ValidateTrailerHeaders enforces that a trailer block carries no
// pseudo-headers and no connection-specific headers.
func ValidateTrailerHeaders(headers []listener.HeaderField) error {
	for _, h := range headers {
		if len(h.Name) > 0 && h.Name[0] == ':' {
			return fmt.Errorf("pseudo-header %q not allowed in trailers", h.Name)
		}
		if connectionHeaders[h.Name] {
			return fmt.Errorf("connection-specific header %q not allowed in trailers", h.Name)
		}
	}
	return nil
}

// ValidateContentLength checks a declared content-length header against
// the number of DATA bytes actually observed on the stream.
func ValidateContentLength(headers []listener.HeaderField, observed int64) error {
	for _, h := range headers {
		if h.Name != "content-length" {
			continue
		}
		var declared int64
		if _, err := fmt.Sscanf(h.Value, "%d", &declared); err != nil {
			return fmt.Errorf("malformed content-length %q", h.Value)
		}
		if declared != observed {
			return fmt.Errorf("content-length %d does not match %d bytes received", declared, observed)
		}
	}
	return nil
}
