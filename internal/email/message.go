package email

import (
	"bytes"
	"fmt"
	"mime"
	"net/textproto"
	"strings"
	"time"
)

// TemplateHeader names the template a message was rendered from. Mock
// senders key stored messages by it.
const TemplateHeader = "X-Template-Id"

// Message is a plain-text notification ready to be encoded.
type Message struct {
	From       string
	To         []string
	ReplyTo    string
	Subject    string
	Body       string
	TemplateID string
	Date       time.Time
}

// Bytes encodes the message in RFC 822 form with CRLF line endings.
func (m Message) Bytes() []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	header("Reply-To", m.ReplyTo)
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header(TemplateHeader, m.TemplateID)
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}

// templateOf reads TemplateHeader back out of an encoded message.
func templateOf(raw []byte) string {
	headerEnd := bytes.Index(raw, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		return ""
	}
	for _, line := range strings.Split(string(raw[:headerEnd]), "\r\n") {
		k, v, ok := strings.Cut(line, ":")
		if ok && textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(k)) == TemplateHeader {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
