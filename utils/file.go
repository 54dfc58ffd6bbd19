// utils/file.go
package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

var ErrFileTooLarge = errors.New("file too large")

// ReadUpload reads the uploaded file into memory, refusing anything over maxBytes.
func ReadUpload(fileHeader *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fileHeader.Size, maxBytes)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	r := io.Reader(file)
	if maxBytes > 0 {
		r = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrFileTooLarge, maxBytes)
	}
	return data, nil
}

// browsers record webm/ogg and label them as video or application types
var audioContainers = map[string]bool{
	"video/webm":      true,
	"application/ogg": true,
	"video/mp4":       true,
}

// AudioContentType picks the declared type when it is audio, otherwise sniffs
// the bytes. ok is false when neither looks like audio.
func AudioContentType(declared string, data []byte) (string, bool) {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if strings.HasPrefix(declared, "audio/") || audioContainers[declared] {
		return declared, true
	}
	sniffed := strings.Split(http.DetectContentType(data), ";")[0]
	if strings.HasPrefix(sniffed, "audio/") || audioContainers[sniffed] {
		return sniffed, true
	}
	return sniffed, false
}
