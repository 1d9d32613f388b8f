// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package capability

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"strings"

	"github.com/tomanizer/markdown-converter/internal/registry"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// Email converts .eml/.msg messages: headers become a summary block, the
// body is rendered as Markdown. text/html parts go through the HTML
// capability's converter; text/plain parts are kept as paragraphs.
// Multipart/alternative messages prefer the HTML part.
type Email struct {
	html *HTML
}

// NewEmail returns the email capability.
func NewEmail() *Email {
	return &Email{html: NewHTML()}
}

func (e *Email) Name() string         { return "email" }
func (e *Email) Extensions() []string { return []string{".eml", ".msg"} }

func (e *Email) CanHandle(path string) bool {
	return hasExt(path, e.Extensions())
}

func (e *Email) Parse(path string) (registry.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return registry.Result{}, fmt.Errorf("%w: %v", types.ErrInputUnreadable, err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		// Outlook .msg is an OLE container, not RFC 5322 text; it lands
		// here along with any malformed .eml.
		return registry.Result{}, fmt.Errorf("%w: parsing message: %v", types.ErrCapabilityFailure, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	body, err := e.renderBody(msg)
	if err != nil {
		return registry.Result{}, err
	}

	var sb strings.Builder
	if subject != "" {
		sb.WriteString("# " + subject + "\n\n")
	}
	for _, h := range []string{"From", "To", "Cc", "Date"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			fmt.Fprintf(&sb, "**%s:** %s\n", h, v)
		}
	}
	if body != "" {
		sb.WriteString("\n" + body)
	}

	meta := map[string]string{"source_format": "email"}
	if from := decodeHeader(msg.Header.Get("From")); from != "" {
		meta["from"] = from
	}
	if date := msg.Header.Get("Date"); date != "" {
		meta["date"] = date
	}

	return registry.Result{
		Markdown: strings.TrimSpace(sb.String()),
		Title:    subject,
		Metadata: meta,
	}, nil
}

// renderBody walks the MIME structure and returns the message body as
// Markdown. For multipart messages the last text/html part wins, otherwise
// the concatenated text/plain parts.
func (e *Email) renderBody(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		// No (or broken) Content-Type: treat the body as plain text.
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", fmt.Errorf("%w: multipart message without boundary", types.ErrCapabilityFailure)
		}
		return e.renderMultipart(msg.Body, boundary)
	}

	data, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return "", fmt.Errorf("%w: decoding body: %v", types.ErrCapabilityFailure, err)
	}
	if mediaType == "text/html" {
		return e.html.convert(string(data))
	}
	return strings.Join(splitParagraphsTrimmed(string(data)), "\n\n"), nil
}

func (e *Email) renderMultipart(body io.Reader, boundary string) (string, error) {
	mr := multipart.NewReader(body, boundary)

	var plain []string
	var htmlPart string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: reading multipart body: %v", types.ErrCapabilityFailure, err)
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested, err := e.renderMultipart(part, params["boundary"]); err == nil && nested != "" {
				plain = append(plain, nested)
			}
		case mediaType == "text/html":
			data, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
			if err != nil {
				continue
			}
			htmlPart = string(data)
		case mediaType == "text/plain":
			data, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
			if err != nil {
				continue
			}
			plain = append(plain, string(data))
		}
		// Attachments and other media types are dropped.
	}

	if htmlPart != "" {
		return e.html.convert(htmlPart)
	}
	return strings.Join(splitParagraphsTrimmed(strings.Join(plain, "\n\n")), "\n\n"), nil
}

// decodeBody reads a MIME part, undoing its transfer encoding.
func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	return io.ReadAll(r)
}

// decodeHeader undoes RFC 2047 encoded-words in a header value.
func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(decoded)
}

// splitParagraphsTrimmed is splitParagraphs with each paragraph trimmed, so
// soft-wrapped email text keeps its line breaks but not trailing space.
func splitParagraphsTrimmed(text string) []string {
	paras := splitParagraphs(text)
	for i, p := range paras {
		paras[i] = strings.TrimSpace(p)
	}
	return paras
}
