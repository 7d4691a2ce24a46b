package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// UploadDescriptor is a [Descriptor] whose body is multipart form data
// written by Build. Parameters and encoding of the embedded Descriptor
// are ignored.
type UploadDescriptor struct {
	Descriptor
	Build func(*Form) error
}

// Form builds a multipart/form-data body. It is only valid inside
// an [UploadDescriptor]'s Build func.
type Form struct {
	buf bytes.Buffer
	w   *multipart.Writer
}

func newForm() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// AppendField adds a plain form field.
func (f *Form) AppendField(name, value string) error {
	if err := f.w.WriteField(name, value); err != nil {
		return fmt.Errorf("writing field %q: %w", name, err)
	}

	return nil
}

// AppendFile adds a file part read from r.
func (f *Form) AppendFile(fieldName, fileName string, r io.Reader) error {
	part, err := f.w.CreateFormFile(fieldName, fileName)
	if err != nil {
		return fmt.Errorf("creating file part %q: %w", fieldName, err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("writing file part %q: %w", fieldName, err)
	}

	return nil
}

// AppendPart adds a part with arbitrary headers read from r.
func (f *Form) AppendPart(header textproto.MIMEHeader, r io.Reader) error {
	part, err := f.w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("creating part: %w", err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("writing part: %w", err)
	}

	return nil
}

// Upload executes ud with a multipart/form-data body and returns the
// response body. Classification is the same as [Client.Perform].
func (c *Client) Upload(ctx context.Context, ud UploadDescriptor) ([]byte, error) {
	var data []byte
	if err := c.execute(ctx, "apiman.upload", ud.Descriptor, ud.multipart, readInto(&data)); err != nil {
		return nil, err
	}

	return data, nil
}

func (ud UploadDescriptor) multipart(d Descriptor, header http.Header) (*url.URL, io.Reader, error) {
	form := newForm()

	if ud.Build != nil {
		if err := ud.Build(form); err != nil {
			return nil, nil, fmt.Errorf("building multipart form: %w", err)
		}
	}

	if err := form.w.Close(); err != nil {
		return nil, nil, fmt.Errorf("closing multipart form: %w", err)
	}

	header.Set("Content-Type", form.w.FormDataContentType())

	u := *d.target
	return &u, &form.buf, nil
}

