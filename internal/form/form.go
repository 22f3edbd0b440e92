// Package form builds multipart bodies for file-bearing requests.
package form

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/lukasbauer/fishaudio/transport"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Form accumulates fields and files in memory.
type Form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

// New returns an empty form.
func New() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// Field adds a text field. Errors are deferred to Body.
func (f *Form) Field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

// Fields adds one text field per value under the same name.
func (f *Form) Fields(name string, values []string) {
	for _, v := range values {
		f.Field(name, v)
	}
}

// File adds a file part with an explicit filename and media type. An empty
// contentType is sniffed from the first bytes of r.
func (f *Form) File(field, filename, contentType string, r io.Reader) {
	if f.err != nil {
		return
	}
	if filename == "" {
		f.err = fmt.Errorf("form: file for %q has no filename", field)
		return
	}

	br := bufio.NewReader(r)
	if contentType == "" {
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	if _, err := io.Copy(part, br); err != nil {
		f.err = fmt.Errorf("form: copy %q: %w", filename, err)
	}
}

// Body closes the form and returns it as a request body.
func (f *Form) Body() (*transport.RawBody, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, err
	}
	return &transport.RawBody{
		ContentType: f.w.FormDataContentType(),
		Reader:      bytes.NewReader(f.buf.Bytes()),
	}, nil
}
