package util

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !MatchMimeType(mimeType, allowedTypes) {
		return mimeType, errors.New("invalid file type: " + mimeType)
	}
	return mimeType, nil
}

// MatchMimeType 判断 mimeType 是否属于允许的前缀或完整类型
func MatchMimeType(mimeType string, allowedTypes []string) bool {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	for _, allowed := range allowedTypes {
		if strings.HasSuffix(allowed, "/") && strings.HasPrefix(mimeType, allowed) {
			return true
		}
		if mimeType == allowed {
			return true
		}
	}
	return false
}

func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeImage)
}

func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeVideo) || mimeType == "application/x-mpegURL"
}

// IsDocument 图片或 PDF，可在批注层中打开
func IsDocument(mimeType string) bool {
	return MatchMimeType(mimeType, DocumentMimeTypes)
}
