package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Attachment is a file upload accompanying a create or update call, e.g. a
// category image or product photo.
type Attachment struct {
	Field       string
	Filename    string
	ContentType string
	Reader      io.Reader
}

// encodeMultipart builds a multipart/form-data body from a field map plus
// file attachments. Scalar string fields are written verbatim; everything
// else (nested objects, arrays, numbers, booleans) is JSON-stringified into
// its part, which is the encoding the platform's upload endpoints expect.
func encodeMultipart(fields map[string]any, attachments []Attachment) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for name, value := range fields {
		if value == nil {
			continue
		}
		var text string
		if s, ok := value.(string); ok {
			text = s
		} else {
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, "", fmt.Errorf("encode multipart field %s: %w", name, err)
			}
			text = string(encoded)
		}
		if err := w.WriteField(name, text); err != nil {
			return nil, "", fmt.Errorf("write multipart field %s: %w", name, err)
		}
	}

	for _, att := range attachments {
		part, err := createFilePart(w, att)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, att.Reader); err != nil {
			return nil, "", fmt.Errorf("copy attachment %s: %w", att.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func createFilePart(w *multipart.Writer, att Attachment) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(att.Field), escapeQuotes(att.Filename)))
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create attachment part %s: %w", att.Field, err)
	}
	return part, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
