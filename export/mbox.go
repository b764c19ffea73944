package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/rbaliyan/webmail"
)

// ContentType is the media type of a rendered archive (RFC 4155).
const ContentType = "application/mbox"

// mboxDateLayout is the asctime layout used on "From " separator lines.
const mboxDateLayout = "Mon Jan _2 15:04:05 2006"

// RenderMessage writes one entry as an RFC 5322 message with CRLF line
// endings. hostname qualifies the Message-ID.
func RenderMessage(w io.Writer, e webmail.Entry, hostname string) error {
	var h mail.Header
	h.SetDate(e.Timestamp.UTC())
	h.SetSubject(e.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: e.Sender}})
	to := make([]*mail.Address, len(e.Recipients))
	for i, r := range e.Recipients {
		to[i] = &mail.Address{Address: r}
	}
	h.SetAddressList("To", to)
	h.SetMessageID(e.ID + "@" + hostname)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("X-Webmail-Owner", e.Owner)
	h.Set("X-Webmail-Status", status(e))

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	if _, err := io.WriteString(body, e.Body); err != nil {
		_ = body.Close()
		return fmt.Errorf("write body: %w", err)
	}
	return body.Close()
}

// status mirrors the mbox Status header convention: R for read, O for old.
func status(e webmail.Entry) string {
	s := "O"
	if e.Read {
		s = "RO"
	}
	if e.Archived {
		s += "A"
	}
	return s
}

// WriteMbox writes entries as an mboxrd mailbox: each message is preceded by
// a "From " separator line, uses LF line endings, and has body lines that
// start with ">*From " quoted with one more '>'.
func WriteMbox(w io.Writer, entries []webmail.Entry, hostname string) error {
	bw := bufio.NewWriter(w)
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Reset()
		if err := RenderMessage(&buf, e, hostname); err != nil {
			return fmt.Errorf("render %s: %w", e.ID, err)
		}

		if _, err := fmt.Fprintf(bw, "From %s %s\n", e.Sender, e.Timestamp.UTC().Format(mboxDateLayout)); err != nil {
			return err
		}
		raw := strings.ReplaceAll(buf.String(), "\r\n", "\n")
		raw = strings.TrimSuffix(raw, "\n")
		for _, line := range strings.Split(raw, "\n") {
			if isFromLine(line) {
				line = ">" + line
			}
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// isFromLine reports whether line matches ^>*From .
func isFromLine(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, ">"), "From ")
}
