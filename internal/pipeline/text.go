package pipeline

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// maxBodyRunes 是写入索引的正文最大长度。
const maxBodyRunes = 100000

// ExtractText 从原始 MIME 邮件中提取纯文本正文。
// 优先使用 text/plain 部分；无法解析时把原始内容当作正文。
func ExtractText(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return truncate(string(raw))
	}
	text, ok := partText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if !ok {
		return ""
	}
	return truncate(strings.TrimSpace(text))
}

func partText(contentType, encoding string, body io.Reader) (string, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if contentType == "" || err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		var fallback string
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			text, ok := partText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if !ok {
				continue
			}
			if strings.HasPrefix(part.Header.Get("Content-Type"), "text/plain") || part.Header.Get("Content-Type") == "" {
				return text, true
			}
			if fallback == "" {
				fallback = text
			}
		}
		return fallback, fallback != ""
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", false
	}
	data, err := io.ReadAll(decodeTransfer(encoding, body))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxBodyRunes {
		return s
	}
	return string([]rune(s)[:maxBodyRunes])
}
